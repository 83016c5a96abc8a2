package domain

import "fmt"

// ProximityConfig holds the query limits of the proximity engine.
type ProximityConfig struct {
	MinRadiusKm float64
	MaxRadiusKm float64
	// MaxConcurrentScans caps parallel prefix scans per query; at most 9 are ever issued.
	MaxConcurrentScans int
}

// DefaultProximityConfig returns the limits the marketplace shipped with.
func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{
		MinRadiusKm:        5,
		MaxRadiusKm:        100,
		MaxConcurrentScans: 9,
	}
}

// Validate checks the radius bounds are usable.
func (c ProximityConfig) Validate() error {
	if !(c.MinRadiusKm > 0) {
		return fmt.Errorf("min radius must be > 0, got %v", c.MinRadiusKm)
	}
	if !(c.MaxRadiusKm >= c.MinRadiusKm) {
		return fmt.Errorf("max radius %v must be >= min radius %v", c.MaxRadiusKm, c.MinRadiusKm)
	}
	if c.MaxConcurrentScans < 1 {
		return fmt.Errorf("max concurrent scans must be >= 1, got %d", c.MaxConcurrentScans)
	}
	return nil
}
