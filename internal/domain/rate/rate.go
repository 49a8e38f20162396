// Package rate computes vote shares.
package rate

import "math"

// Places is the number of decimal places a published vote share keeps.
const Places = 4

// Truncate floors v to the given number of decimal places. It never rounds up.
func Truncate(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	digits := math.Pow(10, float64(places))
	scaled := v * digits
	// Products like 0.29*10000 land a few ulps below the integer they represent.
	if r := math.Round(scaled); math.Abs(scaled-r) <= 4*ulp(r) {
		scaled = r
	}
	return math.Floor(scaled) / digits
}

// Truncate4 floors v to four decimal places.
func Truncate4(v float64) float64 {
	return Truncate(v, Places)
}

// Share returns count/total truncated to four places, or 0 when total is not positive.
func Share(count, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Truncate4(count / total)
}

func ulp(v float64) float64 {
	v = math.Abs(v)
	return math.Nextafter(v, math.Inf(1)) - v
}
