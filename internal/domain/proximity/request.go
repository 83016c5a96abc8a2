package proximity

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	"github.com/kailas-cloud/nearlot/internal/domain/lot"
)

// Request is a validated proximity query.
type Request struct {
	center   geo.Coordinate
	radiusKm float64
	status   lot.Status
}

// New validates a query against the configured radius bounds.
// An empty status matches lots in any status.
func New(center geo.Coordinate, radiusKm float64, status lot.Status, cfg domain.ProximityConfig) (Request, error) {
	if math.IsNaN(radiusKm) || radiusKm <= 0 {
		return Request{}, fmt.Errorf("%w: radius must be > 0", domain.ErrInvalidArgument)
	}
	if radiusKm < cfg.MinRadiusKm || radiusKm > cfg.MaxRadiusKm {
		return Request{}, fmt.Errorf("%w: radius %v km outside [%v, %v]",
			domain.ErrInvalidArgument, radiusKm, cfg.MinRadiusKm, cfg.MaxRadiusKm)
	}
	if err := center.Validate(); err != nil {
		return Request{}, fmt.Errorf("center: %w", err)
	}
	if status != "" {
		if _, err := lot.ParseStatus(string(status)); err != nil {
			return Request{}, err
		}
	}
	return Request{center: center, radiusKm: radiusKm, status: status}, nil
}

// Center returns the query center.
func (r Request) Center() geo.Coordinate { return r.center }

// RadiusKm returns the query radius.
func (r Request) RadiusKm() float64 { return r.radiusKm }

// Status returns the status filter, empty for none.
func (r Request) Status() lot.Status { return r.status }

// Result pairs a lot with its distance from the query center.
type Result struct {
	Lot        lot.Lot
	DistanceKm float64
}
