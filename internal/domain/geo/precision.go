package geo

import "math"

// precisionStep maps a radius threshold to a key length. A radius strictly
// greater than MinRadiusKm selects Precision.
type precisionStep struct {
	MinRadiusKm float64
	Precision   int
}

// precisionTable is ordered coarse to fine; the first match wins.
var precisionTable = []precisionStep{
	{MinRadiusKm: 78, Precision: 3},
	{MinRadiusKm: 19, Precision: 4},
	{MinRadiusKm: 2.5, Precision: 5},
	{MinRadiusKm: 0.3, Precision: 6},
}

// finestPrecision is returned for radii below every table threshold.
const finestPrecision = 7

// SelectPrecision returns the key length whose cell size is calibrated to
// the radius. Larger radii get shorter keys.
func SelectPrecision(radiusKm float64) int {
	for _, step := range precisionTable {
		if radiusKm > step.MinRadiusKm {
			return step.Precision
		}
	}
	return finestPrecision
}

// FitPrecision coarsens p until a cell at center is larger than the query
// circle on both axes, so the 3x3 block around the center cell contains the
// whole circle. Circles that contain a pole only get the latitude constraint.
func FitPrecision(center Coordinate, radiusKm float64, p int) int {
	if p > MaxPrecision {
		p = MaxPrecision
	}
	latSpan, lonSpan, polar := circleSpan(center, radiusKm)
	for p > MinPrecision {
		h, w := CellSizeDeg(p)
		if h > latSpan && (polar || w > lonSpan) {
			break
		}
		p--
	}
	return p
}

// circleSpan returns the circle's half extent in degrees along each axis.
// polar is true when the circle reaches over a pole, where longitude extent
// is the whole parallel.
func circleSpan(center Coordinate, radiusKm float64) (latDeg, lonDeg float64, polar bool) {
	d := radiusKm / EarthRadiusKm
	latDeg = d * 180 / math.Pi

	phi := center.Latitude * math.Pi / 180
	if d >= math.Pi/2-math.Abs(phi) {
		return latDeg, 180, true
	}
	lonDeg = math.Asin(math.Sin(d)/math.Cos(phi)) * 180 / math.Pi
	return latDeg, lonDeg, false
}
