package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recordingRefresher struct {
	mu   sync.Mutex
	seen []Job
	fail string
}

func (r *recordingRefresher) Refresh(_ context.Context, electionCode, partyID string, unit area.Unit) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, Job{ElectionCode: electionCode, PartyID: partyID, Unit: unit})
	if partyID == r.fail {
		return 0, errors.New("boom")
	}
	return 3, nil
}

func TestPool(t *testing.T) {
	Convey("Given a pool of three workers", t, func() {
		ref := &recordingRefresher{fail: "bad"}
		p := NewPool(ref, WithWorkers(3))
		jobs := []Job{
			{ElectionCode: "e", PartyID: "a", Unit: area.UnitRegion},
			{ElectionCode: "e", PartyID: "a", Unit: area.UnitPrefecture},
			{ElectionCode: "e", PartyID: "bad", Unit: area.UnitMunicipality},
			{ElectionCode: "e", PartyID: "b", Unit: area.UnitMunicipality},
		}

		Convey("When running jobs with one failure", func() {
			sum := p.Run(context.Background(), jobs)

			Convey("Then every job runs and the failure is reported", func() {
				So(sum.Jobs, ShouldEqual, 4)
				So(sum.Failed, ShouldEqual, 1)
				So(sum.Keys, ShouldEqual, 9)
				So(sum.Errors, ShouldHaveLength, 1)
				So(sum.Errors[0].Error(), ShouldContainSubstring, "e/bad/municipality")
				So(ref.seen, ShouldHaveLength, 4)
			})
		})

		Convey("When the context is already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			sum := p.Run(ctx, jobs)

			Convey("Then the run ends without hanging", func() {
				So(sum.Jobs, ShouldBeLessThanOrEqualTo, 4)
			})
		})

		Convey("When there is nothing to do", func() {
			sum := p.Run(context.Background(), nil)
			So(sum.Jobs, ShouldEqual, 0)
		})
	})
}
