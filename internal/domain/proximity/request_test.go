package proximity

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	"github.com/kailas-cloud/nearlot/internal/domain/lot"
)

func TestNew_Valid(t *testing.T) {
	cfg := domain.DefaultProximityConfig()
	c := geo.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

	req, err := New(c, 10, lot.StatusActive, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Center() != c || req.RadiusKm() != 10 || req.Status() != lot.StatusActive {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestNew_BoundsInclusive(t *testing.T) {
	cfg := domain.DefaultProximityConfig()
	for _, r := range []float64{cfg.MinRadiusKm, cfg.MaxRadiusKm} {
		if _, err := New(geo.Coordinate{}, r, "", cfg); err != nil {
			t.Errorf("radius %v: unexpected error: %v", r, err)
		}
	}
}

func TestNew_InvalidRadius(t *testing.T) {
	cfg := domain.DefaultProximityConfig()
	for _, r := range []float64{0, -1, 4.99, 100.01, 500, math.NaN()} {
		_, err := New(geo.Coordinate{}, r, "", cfg)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("radius %v: expected ErrInvalidArgument, got %v", r, err)
		}
	}
}

func TestNew_ZeroRadiusRejectedEvenWithZeroMin(t *testing.T) {
	cfg := domain.ProximityConfig{MinRadiusKm: 0, MaxRadiusKm: 10, MaxConcurrentScans: 1}
	if _, err := New(geo.Coordinate{}, 0, "", cfg); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNew_InvalidCenter(t *testing.T) {
	cfg := domain.DefaultProximityConfig()
	for _, c := range []geo.Coordinate{
		{Latitude: 91, Longitude: 0},
		{Latitude: 0, Longitude: -181},
		{Latitude: math.NaN(), Longitude: 0},
	} {
		if _, err := New(c, 10, "", cfg); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("center %v: expected ErrInvalidArgument, got %v", c, err)
		}
	}
}

func TestNew_InvalidStatus(t *testing.T) {
	_, err := New(geo.Coordinate{}, 10, "sold", domain.DefaultProximityConfig())
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
