package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Validate checks that latitude is in [-90,90] and longitude in [-180,180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("%w: coordinate must be finite", domain.ErrInvalidArgument)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", domain.ErrInvalidArgument, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", domain.ErrInvalidArgument, c.Longitude)
	}
	if !c.LatLng().IsValid() {
		return fmt.Errorf("%w: coordinate (%v, %v) is not a valid lat/lng",
			domain.ErrInvalidArgument, c.Latitude, c.Longitude)
	}
	return nil
}

// LatLng converts the coordinate to an s2 point.
func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}
