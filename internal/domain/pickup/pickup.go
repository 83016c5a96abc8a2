package pickup

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

// ErrNotFound signals a missing booking. It matches domain.ErrNotFound.
var ErrNotFound = fmt.Errorf("pickup %w", domain.ErrNotFound)

// Draft carries a producer's booking request plus the lot details copied onto it.
type Draft struct {
	LotID        string
	ProducerID   string
	ProducerName string
	MerchantID   string
	MerchantName string
	LotImageURL  string
	ScheduledAt  time.Time
}

// State is the full persisted form of a booking.
type State struct {
	ID           string
	LotID        string
	ProducerID   string
	ProducerName string
	MerchantID   string
	MerchantName string
	LotImageURL  string
	Status       Status
	ScheduledAt  time.Time
	CreatedAt    time.Time
}

// Pickup is a producer's booking to collect a lot (immutable value object).
type Pickup struct {
	s State
}

// New validates a draft and creates a pending booking.
func New(id string, d Draft, createdAt time.Time) (Pickup, error) {
	if strings.TrimSpace(id) == "" {
		return Pickup{}, fmt.Errorf("%w: pickup ID is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(d.LotID) == "" {
		return Pickup{}, fmt.Errorf("%w: lot ID is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(d.ProducerID) == "" {
		return Pickup{}, fmt.Errorf("%w: producer ID is required", domain.ErrInvalidArgument)
	}
	if d.ScheduledAt.IsZero() {
		return Pickup{}, fmt.Errorf("%w: scheduled time is required", domain.ErrInvalidArgument)
	}
	if !d.ScheduledAt.After(createdAt) {
		return Pickup{}, fmt.Errorf("%w: scheduled time must be in the future", domain.ErrInvalidArgument)
	}

	return Pickup{s: State{
		ID:           id,
		LotID:        d.LotID,
		ProducerID:   d.ProducerID,
		ProducerName: d.ProducerName,
		MerchantID:   d.MerchantID,
		MerchantName: d.MerchantName,
		LotImageURL:  d.LotImageURL,
		Status:       StatusPending,
		ScheduledAt:  d.ScheduledAt.UTC(),
		CreatedAt:    createdAt.UTC(),
	}}, nil
}

// Reconstruct creates a Pickup without validation (storage hydration).
func Reconstruct(s State) Pickup {
	return Pickup{s: s}
}

// ID returns the booking identifier.
func (p *Pickup) ID() string { return p.s.ID }

// LotID returns the booked lot.
func (p *Pickup) LotID() string { return p.s.LotID }

// ProducerID returns the producer collecting the lot.
func (p *Pickup) ProducerID() string { return p.s.ProducerID }

// ProducerName returns the producer's display name.
func (p *Pickup) ProducerName() string { return p.s.ProducerName }

// MerchantID returns the merchant owning the lot.
func (p *Pickup) MerchantID() string { return p.s.MerchantID }

// MerchantName returns the merchant's display name.
func (p *Pickup) MerchantName() string { return p.s.MerchantName }

// LotImageURL returns the lot photo at booking time.
func (p *Pickup) LotImageURL() string { return p.s.LotImageURL }

// Status returns the lifecycle state.
func (p *Pickup) Status() Status { return p.s.Status }

// ScheduledAt returns the agreed collection time.
func (p *Pickup) ScheduledAt() time.Time { return p.s.ScheduledAt }

// CreatedAt returns the booking time.
func (p *Pickup) CreatedAt() time.Time { return p.s.CreatedAt }

// State returns a copy of the persisted form.
func (p *Pickup) State() State { return p.s }
