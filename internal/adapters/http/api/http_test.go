package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/partystats/internal/adapters/cache"
	"github.com/okian/partystats/internal/adapters/http/api"
	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/testutil"
	"github.com/okian/partystats/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type rankingBody struct {
	Data []struct {
		Code        string  `json:"code"`
		Name        string  `json:"name"`
		Rate        float64 `json:"rate"`
		SupportText *string `json:"supportText"`
	} `json:"data"`
	Meta struct {
		Sort        string `json:"sort"`
		Unit        string `json:"unit"`
		CurrentPage int    `json:"currentPage"`
		PageSize    int    `json:"pageSize"`
		TotalItems  int    `json:"totalItems"`
		TotalPages  int    `json:"totalPages"`
	} `json:"meta"`
}

func newHandler(t *testing.T) http.Handler {
	svc := service.New(testutil.OpenStore(t), cache.NewMemory(), service.WithPageSize(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return api.NewRouter(context.Background(), svc, svc)
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func message(w *httptest.ResponseRecorder) string {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Message
}

const base = "/elections/shugiin-2024/ranking/parties/ldp"

func TestRankingEndpoints(t *testing.T) {
	Convey("Given the API over the fixture with two rows per page", t, func() {
		h := newHandler(t)

		Convey("When requesting the national ranking", func() {
			w := get(h, base+"/national")

			Convey("Then page 1 of the region ranking is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
				var body rankingBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Meta.Sort, ShouldEqual, "desc-popularity")
				So(body.Meta.Unit, ShouldEqual, "region")
				So(body.Meta.CurrentPage, ShouldEqual, 1)
				So(body.Meta.PageSize, ShouldEqual, 2)
				So(body.Meta.TotalItems, ShouldEqual, 3)
				So(body.Meta.TotalPages, ShouldEqual, 2)
				So(body.Data, ShouldHaveLength, 2)
				So(body.Data[0].Code, ShouldEqual, "1")
				So(body.Data[0].Rate, ShouldEqual, 0.3)
				So(body.Data[0].SupportText, ShouldBeNil)
			})
		})

		Convey("When requesting a prefecture ranking in ascending order", func() {
			w := get(h, base+"/prefectures/130001?sort=asc-popularity")

			Convey("Then municipalities come back lowest first with support text", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body rankingBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Meta.Unit, ShouldEqual, "municipality")
				So(body.Data[0].Code, ShouldEqual, "13104")
				So(body.Data[1].Code, ShouldEqual, "13101")
				So(*body.Data[1].SupportText, ShouldEqual, "東京都")
			})
		})

		Convey("When the legacy Hokkaido region is requested", func() {
			w := get(h, base+"/regions/1?unit=municipality&page=2")

			Convey("Then the client is sent to the prefecture with the same query", func() {
				So(w.Code, ShouldEqual, http.StatusMovedPermanently)
				So(w.Header().Get("Location"), ShouldEqual, base+"/prefectures/010006?unit=municipality&page=2")
			})
		})

		Convey("When an archived city is requested", func() {
			w := get(h, base+"/cities/13102?sort=asc-popularity")

			Convey("Then the client is sent to the surviving city", func() {
				So(w.Code, ShouldEqual, http.StatusMovedPermanently)
				So(w.Header().Get("Location"), ShouldEqual, base+"/cities/13101?sort=asc-popularity")
			})
		})

		Convey("When the page is far past the end", func() {
			w := get(h, base+"/national?page=1000")

			Convey("Then data is an empty array and the totals are kept", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"data":[]`)
				var body rankingBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Meta.TotalPages, ShouldEqual, 2)
				So(body.Meta.CurrentPage, ShouldEqual, 1000)
			})
		})

		Convey("When query parameters are invalid", func() {
			cases := []struct {
				target string
				msg    string
			}{
				{base + "/national?sort=popular", "Invalid sort"},
				{base + "/national?sort=", "Invalid sort"},
				{base + "/prefectures/130001?unit=region", "Invalid unit"},
				{base + "/regions/3?unit=region", "Invalid unit"},
				{base + "/national?page=0", "Invalid page"},
				{base + "/national?page=1001", "Invalid page"},
				{base + "/national?page=abc", "Invalid page"},
				{base + "/national?page=", "Invalid page"},
				{base + "/national?sort=bad&unit=bad&page=bad", "Invalid sort"},
				{base + "/national?unit=bad&page=bad", "Invalid unit"},
				{base + "/national?unit=REGION", "Invalid unit"},
				{base + "/national?unit=%20region", "Invalid unit"},
				{base + "/national?page=1.5", "Invalid page"},
				{base + "/national?page=%20", "Invalid page"},
				{base + "/national?page=NaN", "Invalid page"},
				{base + "/national?page=Infinity", "Invalid page"},
			}

			Convey("Then each is rejected with its message", func() {
				for _, c := range cases {
					w := get(h, c.target)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(message(w), ShouldEqual, c.msg)
				}
			})
		})

		Convey("When the page is written as a numeral with a zero fraction or padding", func() {
			for _, raw := range []string{"2.0", "%202", "2%20", "2e0"} {
				w := get(h, base+"/national?page="+raw)
				So(w.Code, ShouldEqual, http.StatusOK)
				var body rankingBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Meta.CurrentPage, ShouldEqual, 2)
				So(body.Data, ShouldHaveLength, 1)
			}
		})

		Convey("When the city alias names the unit", func() {
			w := get(h, base+"/prefectures/130001?unit=city")

			Convey("Then meta echoes the alias", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body rankingBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Meta.Unit, ShouldEqual, "city")
				So(body.Data[0].Code, ShouldEqual, "13103")
			})

			Convey("Then the canonical name is echoed as given", func() {
				w := get(h, base+"/prefectures/130001?unit=municipality")
				var body rankingBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Meta.Unit, ShouldEqual, "municipality")
			})
		})

		Convey("When resources are missing", func() {
			So(message(get(h, "/elections/none/ranking/parties/none/national")), ShouldEqual, "election not found")
			So(message(get(h, "/elections/shugiin-2024/ranking/parties/none/national")), ShouldEqual, "party not found")
			w := get(h, base+"/prefectures/990000")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(message(w), ShouldEqual, "area not found")
		})

		Convey("When codes differ in case", func() {
			w := get(h, "/elections/SHUGIIN-2024/ranking/parties/LDP/national")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestHistoryEndpoints(t *testing.T) {
	Convey("Given the API over the fixture", t, func() {
		h := newHandler(t)

		Convey("When requesting a city's history", func() {
			w := get(h, "/parties/ldp/history/cities/13101")

			Convey("Then points are listed newest first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Data []struct {
						ElectionCode string  `json:"electionCode"`
						ElectionType string  `json:"electionType"`
						Rate         float64 `json:"rate"`
					} `json:"data"`
					Meta struct {
						Party string `json:"party"`
						Unit  string `json:"unit"`
					} `json:"meta"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Data, ShouldHaveLength, 2)
				So(body.Data[1].ElectionType, ShouldEqual, "sangiin")
				So(body.Meta.Party, ShouldEqual, "ldp")
				So(body.Meta.Unit, ShouldEqual, "municipality")
			})
		})

		Convey("When an archived city is requested", func() {
			w := get(h, "/parties/ldp/history/cities/13102")
			So(w.Code, ShouldEqual, http.StatusMovedPermanently)
			So(w.Header().Get("Location"), ShouldEqual, "/parties/ldp/history/cities/13101")
		})

		Convey("When a region has no data", func() {
			w := get(h, "/parties/cdp/history/regions/2")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"data":[`)
		})
	})
}

func TestDetailsEndpoints(t *testing.T) {
	Convey("Given the API over the fixture", t, func() {
		h := newHandler(t)
		const details = "/elections/shugiin-2024/details/parties/ldp"

		Convey("When requesting a city's details", func() {
			w := get(h, details+"/cities/13101")

			Convey("Then ranks and changes are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Party struct {
						Code string `json:"code"`
						ID   string `json:"id"`
					} `json:"party"`
					RankInNational   *struct{ Rank, TotalRank int } `json:"rankInNational"`
					RankInPrefecture *struct{ Rank, TotalRank int } `json:"rankInPrefecture"`
					Changes          []struct {
						Election struct {
							Code string `json:"code"`
						} `json:"election"`
						Count      float64 `json:"count"`
						TotalCount float64 `json:"totalCount"`
						Rate       float64 `json:"rate"`
					} `json:"changes"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Party.Code, ShouldEqual, "ldp")
				So(body.Party.ID, ShouldBeEmpty)
				So(body.RankInNational.Rank, ShouldEqual, 7)
				So(body.RankInNational.TotalRank, ShouldEqual, 9)
				So(body.RankInPrefecture.Rank, ShouldEqual, 2)
				So(body.Changes, ShouldHaveLength, 2)
				So(body.Changes[0].Election.Code, ShouldEqual, "sangiin-2022")
				So(body.Changes[1].Rate, ShouldEqual, 0.2)
			})
		})

		Convey("When requesting national details", func() {
			w := get(h, details+"/national")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldNotContainSubstring, "rankInNational")
			So(w.Body.String(), ShouldContainSubstring, `"unit":"national"`)
		})

		Convey("When an archived city or the legacy region is requested", func() {
			w := get(h, details+"/cities/13102")
			So(w.Code, ShouldEqual, http.StatusMovedPermanently)
			So(w.Header().Get("Location"), ShouldEqual, details+"/cities/13101")

			w = get(h, details+"/regions/1")
			So(w.Code, ShouldEqual, http.StatusMovedPermanently)
			So(w.Header().Get("Location"), ShouldEqual, details+"/prefectures/010006")
		})

		Convey("When resources are missing", func() {
			So(message(get(h, "/elections/none/details/parties/none/national")), ShouldEqual, "election not found")
			So(message(get(h, "/elections/shugiin-2024/details/parties/none/national")), ShouldEqual, "party not found")
			So(message(get(h, details+"/prefectures/990000")), ShouldEqual, "area not found")
		})
	})
}

func TestOverviewEndpoints(t *testing.T) {
	Convey("Given the API over the fixture", t, func() {
		h := newHandler(t)

		Convey("When requesting a city's overview", func() {
			w := get(h, "/elections/SHUGIIN-2024/overview/cities/13101")

			Convey("Then every party is compared with the previous election", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Election struct {
						Code string `json:"code"`
					} `json:"election"`
					PreviousElection *struct {
						Code string `json:"code"`
					} `json:"previousElection"`
					Unit       string  `json:"unit"`
					TotalCount float64 `json:"totalCount"`
					Parties    []struct {
						Code      string   `json:"code"`
						Count     float64  `json:"count"`
						Rate      float64  `json:"rate"`
						PrevCount *float64 `json:"prevCount"`
						PrevRate  *float64 `json:"prevRate"`
					} `json:"parties"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Election.Code, ShouldEqual, "shugiin-2024")
				So(body.PreviousElection.Code, ShouldEqual, "sangiin-2022")
				So(body.Unit, ShouldEqual, "municipality")
				So(body.TotalCount, ShouldEqual, 800)
				So(body.Parties, ShouldHaveLength, 2)
				So(body.Parties[0].Code, ShouldEqual, "ldp")
				So(*body.Parties[0].PrevRate, ShouldEqual, 0.15)
				So(body.Parties[1].PrevCount, ShouldBeNil)
			})
		})

		Convey("When the oldest election is requested", func() {
			w := get(h, "/elections/sangiin-2022/overview/national")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"previousElection":null`)
			So(w.Body.String(), ShouldContainSubstring, `"prevCount":null`)
		})

		Convey("When an area has no facts", func() {
			w := get(h, "/elections/sangiin-2022/overview/regions/2")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"parties":[]`)
		})

		Convey("When the archived city is requested", func() {
			w := get(h, "/elections/shugiin-2024/overview/cities/13102")
			So(w.Code, ShouldEqual, http.StatusMovedPermanently)
			So(w.Header().Get("Location"), ShouldEqual, "/elections/shugiin-2024/overview/cities/13101")
		})

		Convey("When the election is missing", func() {
			So(message(get(h, "/elections/none/overview/prefectures/990000")), ShouldEqual, "election not found")
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHandler(t)

		Convey("Then health, stats and metrics respond", func() {
			So(get(h, "/healthz").Body.String(), ShouldContainSubstring, `"status":"ok"`)
			So(get(h, "/stats").Code, ShouldEqual, http.StatusOK)
			get(h, base+"/national")
			So(get(h, "/metrics").Body.String(), ShouldContainSubstring, "partystats_http_requests_total")
		})

		Convey("Then an incoming request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "0b5f7a3c-1111-4222-8333-944455556666")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "0b5f7a3c-1111-4222-8333-944455556666")
		})
	})
}

type failingDeps struct {
	calls int
}

func (f *failingDeps) Ranking(context.Context, service.RankingRequest) (service.RankingResult, error) {
	f.calls++
	return service.RankingResult{}, errors.New("connection reset by peer")
}

func (f *failingDeps) History(context.Context, service.HistoryRequest) (service.HistoryResult, error) {
	f.calls++
	return service.HistoryResult{}, errors.New("connection reset by peer")
}

func (f *failingDeps) Details(context.Context, service.DetailsRequest) (service.DetailsResult, error) {
	f.calls++
	return service.DetailsResult{}, errors.New("connection reset by peer")
}

func (f *failingDeps) Overview(context.Context, service.OverviewRequest) (service.OverviewResult, error) {
	f.calls++
	return service.OverviewResult{}, errors.New("connection reset by peer")
}

func (f *failingDeps) Ping(context.Context) error {
	return errors.New("database is locked")
}

func (f *failingDeps) Stats(context.Context) (map[string]any, error) {
	return nil, errors.New("down")
}

func TestBackendFailures(t *testing.T) {
	Convey("Given dependencies that always fail", t, func() {
		deps := &failingDeps{}
		h := api.NewRouter(context.Background(), deps, deps)

		Convey("When a valid request arrives", func() {
			w := get(h, base+"/national")

			Convey("Then a generic message hides the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(message(w), ShouldEqual, "We're sorry, but there's an issue on our side. Please try again later.")
				So(w.Body.String(), ShouldNotContainSubstring, "connection reset")
			})
		})

		Convey("When the request is invalid", func() {
			w := get(h, base+"/national?page=-1")

			Convey("Then the backend is never called", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.calls, ShouldEqual, 0)
			})
		})

		Convey("When stats fail", func() {
			So(get(h, "/stats").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the database cannot be reached", func() {
			w := get(h, "/healthz")

			Convey("Then health reports unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, `"status":"unavailable"`)
			})
		})

		Convey("When details and overview fail", func() {
			So(get(h, "/elections/shugiin-2024/details/parties/ldp/national").Code, ShouldEqual, http.StatusInternalServerError)
			So(get(h, "/elections/shugiin-2024/overview/national").Code, ShouldEqual, http.StatusInternalServerError)
			So(deps.calls, ShouldEqual, 2)
		})
	})
}
