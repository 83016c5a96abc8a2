package lot

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
)

// MaxDescriptionLen caps the stored description in bytes.
const MaxDescriptionLen = 4096

// Draft carries the fields a merchant supplies when registering a lot,
// plus the merchant details copied onto it.
type Draft struct {
	MerchantID           string
	MerchantName         string
	MerchantAddressShort string
	WeightKg             float64
	ImageURL             string
	Description          string
	LimitDate            time.Time
	Location             geo.Coordinate
}

// State is the full persisted form of a lot, used for storage hydration.
type State struct {
	ID                   string
	MerchantID           string
	MerchantName         string
	MerchantAddressShort string
	Status               Status
	WeightKg             float64
	ImageURL             string
	Description          string
	LimitDate            time.Time
	CreatedAt            time.Time
	Location             geo.Coordinate
	SpatialKey           string
}

// Lot is a batch of surplus produce with a pickup location (immutable value object).
type Lot struct {
	s State
}

// New validates a draft and creates an active lot. The spatial key is
// computed from the location at geo.WritePrecision.
func New(id string, d Draft, createdAt time.Time) (Lot, error) {
	if strings.TrimSpace(id) == "" {
		return Lot{}, fmt.Errorf("%w: lot ID is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(d.MerchantID) == "" {
		return Lot{}, fmt.Errorf("%w: merchant ID is required", domain.ErrInvalidArgument)
	}
	if math.IsNaN(d.WeightKg) || math.IsInf(d.WeightKg, 0) || d.WeightKg <= 0 {
		return Lot{}, fmt.Errorf("%w: weight must be a positive number of kilograms", domain.ErrInvalidArgument)
	}
	if err := validateImageURL(d.ImageURL); err != nil {
		return Lot{}, err
	}
	if len(d.Description) > MaxDescriptionLen {
		return Lot{}, fmt.Errorf("%w: description too long (max %d bytes)", domain.ErrInvalidArgument, MaxDescriptionLen)
	}
	if d.LimitDate.IsZero() {
		return Lot{}, fmt.Errorf("%w: limit date is required", domain.ErrInvalidArgument)
	}
	if !d.LimitDate.After(createdAt) {
		return Lot{}, fmt.Errorf("%w: limit date must be in the future", domain.ErrInvalidArgument)
	}

	key, err := geo.Encode(d.Location, geo.WritePrecision)
	if err != nil {
		return Lot{}, fmt.Errorf("lot location: %w", err)
	}

	return Lot{s: State{
		ID:                   id,
		MerchantID:           d.MerchantID,
		MerchantName:         d.MerchantName,
		MerchantAddressShort: d.MerchantAddressShort,
		Status:               StatusActive,
		WeightKg:             d.WeightKg,
		ImageURL:             d.ImageURL,
		Description:          d.Description,
		LimitDate:            d.LimitDate.UTC(),
		CreatedAt:            createdAt.UTC(),
		Location:             d.Location,
		SpatialKey:           key,
	}}, nil
}

// Reconstruct creates a Lot without validation (storage hydration).
func Reconstruct(s State) Lot {
	return Lot{s: s}
}

// ID returns the lot identifier.
func (l *Lot) ID() string { return l.s.ID }

// MerchantID returns the owning merchant.
func (l *Lot) MerchantID() string { return l.s.MerchantID }

// MerchantName returns the merchant's display name.
func (l *Lot) MerchantName() string { return l.s.MerchantName }

// MerchantAddressShort returns a one-line merchant address.
func (l *Lot) MerchantAddressShort() string { return l.s.MerchantAddressShort }

// Status returns the lifecycle state.
func (l *Lot) Status() Status { return l.s.Status }

// WeightKg returns the lot weight.
func (l *Lot) WeightKg() float64 { return l.s.WeightKg }

// ImageURL returns the lot photo location.
func (l *Lot) ImageURL() string { return l.s.ImageURL }

// Description returns the lot description.
func (l *Lot) Description() string { return l.s.Description }

// LimitDate returns the pickup deadline.
func (l *Lot) LimitDate() time.Time { return l.s.LimitDate }

// CreatedAt returns the registration time.
func (l *Lot) CreatedAt() time.Time { return l.s.CreatedAt }

// Location returns the pickup coordinate.
func (l *Lot) Location() geo.Coordinate { return l.s.Location }

// SpatialKey returns the geohash persisted with the lot.
func (l *Lot) SpatialKey() string { return l.s.SpatialKey }

// State returns a copy of the persisted form.
func (l *Lot) State() State { return l.s }

// WithLocation returns a copy moved to c with a recomputed spatial key.
func (l *Lot) WithLocation(c geo.Coordinate) (Lot, error) {
	key, err := geo.Encode(c, geo.WritePrecision)
	if err != nil {
		return Lot{}, fmt.Errorf("lot location: %w", err)
	}
	s := l.s
	s.Location = c
	s.SpatialKey = key
	return Lot{s: s}, nil
}

// WithStatus returns a copy in the given status. Finished is terminal.
func (l *Lot) WithStatus(st Status) (Lot, error) {
	if _, err := ParseStatus(string(st)); err != nil {
		return Lot{}, err
	}
	if l.s.Status == StatusFinished && st != StatusFinished {
		return Lot{}, fmt.Errorf("%w: lot %s is finished", domain.ErrInvalidArgument, l.s.ID)
	}
	s := l.s
	s.Status = st
	return Lot{s: s}, nil
}

func validateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: image URL must be an absolute http(s) URL", domain.ErrInvalidArgument)
	}
	return nil
}
