package rate_test

import (
	"testing"

	"github.com/okian/partystats/internal/domain/rate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTruncate4(t *testing.T) {
	Convey("Given vote shares near a rounding boundary", t, func() {
		Convey("Then they are floored, never rounded", func() {
			So(rate.Truncate4(0.123449999), ShouldEqual, 0.1234)
			So(rate.Truncate4(0.99995), ShouldEqual, 0.9999)
			So(rate.Truncate4(0.12349), ShouldEqual, 0.1234)
			So(rate.Truncate4(0.00009), ShouldEqual, 0)
		})

		Convey("Then values a millionth below a boundary stay below it", func() {
			So(rate.Truncate4(0.1234999999), ShouldEqual, 0.1234)
			So(rate.Truncate4(0.2899999), ShouldEqual, 0.2899)
			So(rate.Truncate4(0.99999999), ShouldEqual, 0.9999)
		})

		Convey("Then exact four-place values survive float noise", func() {
			So(rate.Truncate4(0.29), ShouldEqual, 0.29)
			So(rate.Truncate4(0.1234), ShouldEqual, 0.1234)
			So(rate.Truncate4(1), ShouldEqual, 1)
		})

		Convey("Then truncation is idempotent", func() {
			for _, v := range []float64{0.123449999, 0.99995, 0.5, 0.333333, 0.0001} {
				once := rate.Truncate4(v)
				So(rate.Truncate4(once), ShouldEqual, once)
			}
		})

		Convey("Then NaN and infinities collapse to zero", func() {
			nan := 0.0
			nan /= nan
			So(rate.Truncate4(nan), ShouldEqual, 0)
		})
	})
}

func TestShare(t *testing.T) {
	Convey("Given counts and totals", t, func() {
		So(rate.Share(1, 3), ShouldEqual, 0.3333)
		So(rate.Share(2, 3), ShouldEqual, 0.6666)
		So(rate.Share(12.5, 100), ShouldEqual, 0.125)
		So(rate.Share(5, 0), ShouldEqual, 0)
		So(rate.Share(5, -1), ShouldEqual, 0)
		So(rate.Share(1234999999, 1e10), ShouldEqual, 0.1234)
		So(rate.Share(29, 100), ShouldEqual, 0.29)
	})
}

func TestTruncatePlaces(t *testing.T) {
	Convey("Given a different precision", t, func() {
		So(rate.Truncate(0.129, 2), ShouldEqual, 0.12)
		So(rate.Truncate(1.999, 0), ShouldEqual, 1)
	})
}
