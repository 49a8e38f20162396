package smoke

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/partystats/internal/adapters/cache"
	"github.com/okian/partystats/internal/adapters/http/api"
	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/testutil"
	"github.com/okian/partystats/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(t *testing.T) *httptest.Server {
	svc := service.New(testutil.OpenStore(t), cache.NewMemory(), service.WithPageSize(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv := httptest.NewServer(api.NewRouter(context.Background(), svc, svc))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunAgainstServer(t *testing.T) {
	Convey("Given a server over the fixture", t, func() {
		srv := newServer(t)
		cfg := &Config{
			BaseURL:   srv.URL,
			Elections: []string{"shugiin-2024", "sangiin-2022"},
			Parties:   []string{"ldp", "cdp"},
			Scopes:    []string{"national", "regions/1", "regions/3", "prefectures/130001", "cities/13102"},
			Units:     []string{"region", "prefecture", "municipality"},
			Workers:   3,
			Timeout:   5 * time.Second,
		}

		Convey("When checking every target", func() {
			report, err := Run(context.Background(), cfg)

			Convey("Then every ranking is consistent", func() {
				So(err, ShouldBeNil)
				So(report.Targets, ShouldEqual, 2*2*(3+4))
				So(report.Failures, ShouldBeEmpty)
				So(report.Pages, ShouldBeGreaterThan, report.Targets)
			})
		})

		Convey("When a target does not exist", func() {
			cfg.Elections = []string{"none"}
			cfg.Parties = []string{"ldp"}
			cfg.Scopes = []string{"national"}
			cfg.Units = nil
			report, err := Run(context.Background(), cfg)

			Convey("Then it is reported as a failure", func() {
				So(err, ShouldBeNil)
				So(report.Failures, ShouldHaveLength, 1)
				So(errors.Is(report.Failures[0].Err, ErrStatus), ShouldBeTrue)
			})
		})

		Convey("When nothing is configured", func() {
			_, err := Run(context.Background(), &Config{BaseURL: srv.URL})
			So(errors.Is(err, ErrNoTargets), ShouldBeTrue)
		})
	})
}

func TestRunUnhealthy(t *testing.T) {
	Convey("Given a server whose health check fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := Run(context.Background(), &Config{
			BaseURL:   srv.URL,
			Elections: []string{"e"},
			Parties:   []string{"p"},
			Scopes:    []string{"national"},
			Timeout:   time.Second,
		})
		So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
	})
}

func TestVerify(t *testing.T) {
	meta := func(page, total, size int) Meta {
		return Meta{CurrentPage: page, TotalItems: total, PageSize: size, TotalPages: pageCount(total, size), Unit: "prefecture"}
	}
	a := Item{Code: "a", Rate: 0.5}
	b := Item{Code: "b", Rate: 0.3}
	c := Item{Code: "c", Rate: 0.3}

	Convey("Given a ranking walked in both orders", t, func() {
		descMeta := []Meta{meta(1, 3, 2), meta(2, 3, 2)}
		ascMeta := []Meta{meta(1, 3, 2), meta(2, 3, 2)}

		Convey("Then a reversed pair is consistent", func() {
			So(verify(descMeta, []Item{a, b, c}, ascMeta, []Item{c, b, a}), ShouldBeNil)
		})

		Convey("Then asc must be the exact reverse", func() {
			err := verify(descMeta, []Item{a, b, c}, ascMeta, []Item{b, c, a})
			So(errors.Is(err, ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then desc rates must not increase", func() {
			err := verify(descMeta, []Item{b, a, c}, ascMeta, []Item{c, a, b})
			So(errors.Is(err, ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then rates carry at most four decimals", func() {
			odd := Item{Code: "a", Rate: 0.12345}
			err := verify(descMeta, []Item{odd, b, c}, ascMeta, []Item{c, b, odd})
			So(errors.Is(err, ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then totals must match the rows", func() {
			err := verify(descMeta, []Item{a, b}, ascMeta, []Item{b, a})
			So(errors.Is(err, ErrInconsistent), ShouldBeTrue)
		})

		Convey("Then an empty ranking is consistent", func() {
			empty := []Meta{meta(1, 0, 2)}
			So(verify(empty, nil, empty, nil), ShouldBeNil)
		})
	})
}

func TestTargets(t *testing.T) {
	Convey("Given a config with units", t, func() {
		cfg := &Config{
			Elections: []string{"e"},
			Parties:   []string{"p"},
			Scopes:    []string{"national", "prefectures/130001"},
			Units:     []string{"region", "municipality"},
		}
		targets := cfg.Targets()
		So(targets, ShouldHaveLength, 3)
		So(targets[0].Path(), ShouldEqual, "/elections/e/ranking/parties/p/national?unit=region")
		So(withQuery(targets[0].Path(), sortAsc, 2), ShouldEqual, "/elections/e/ranking/parties/p/national?unit=region&page=2&sort=asc-popularity")
		So(withQuery(targets[2].Path(), sortDesc, 1), ShouldEqual, "/elections/e/ranking/parties/p/prefectures/130001?page=1&sort=desc-popularity")
	})
}
