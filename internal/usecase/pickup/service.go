package pickup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/domain"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
	"github.com/kailas-cloud/nearlot/internal/logger"
)

// Producer identifies who is booking a pickup.
type Producer struct {
	ID   string
	Name string
}

// Viewer restricts reads to one party's bookings. The zero Viewer sees all.
type Viewer struct {
	ProducerID string
	MerchantID string
}

func (v Viewer) allows(p *dompickup.Pickup) bool {
	if v.ProducerID != "" && p.ProducerID() != v.ProducerID {
		return false
	}
	if v.MerchantID != "" && p.MerchantID() != v.MerchantID {
		return false
	}
	return true
}

// Service books lot pickups for producers. Booking takes the lot out of
// proximity results by moving it from active to confirmed.
type Service struct {
	repo  Repository
	lots  Lots
	now   func() time.Time
	newID func() string
}

// New creates a pickup service.
func New(repo Repository, lots Lots) *Service {
	return &Service{
		repo:  repo,
		lots:  lots,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithIDGenerator overrides booking ID generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	if gen != nil {
		s.newID = gen
	}
	return s
}

// Schedule books an active lot for collection at the given time and marks
// the lot confirmed. The time must fall before the lot's limit date.
func (s *Service) Schedule(
	ctx context.Context, who Producer, lotID string, at time.Time,
) (dompickup.Pickup, error) {
	if strings.TrimSpace(who.ID) == "" {
		return dompickup.Pickup{}, fmt.Errorf("%w: producer ID is required", domain.ErrInvalidArgument)
	}
	now := s.now().UTC()

	l, err := s.lots.Get(ctx, lotID)
	if err != nil {
		return dompickup.Pickup{}, fmt.Errorf("get lot: %w", err)
	}
	if l.Status() != domlot.StatusActive {
		return dompickup.Pickup{}, fmt.Errorf("%w: lot %s is %s", domain.ErrConflict, lotID, l.Status())
	}
	if !l.LimitDate().IsZero() && at.After(l.LimitDate()) {
		return dompickup.Pickup{}, fmt.Errorf("%w: pickup must be scheduled before %s",
			domain.ErrInvalidArgument, l.LimitDate().Format(time.RFC3339))
	}

	open, err := s.repo.ListByLot(ctx, lotID)
	if err != nil {
		return dompickup.Pickup{}, fmt.Errorf("list lot pickups: %w", err)
	}
	for i := range open {
		if st := open[i].Status(); st == dompickup.StatusPending || st == dompickup.StatusConfirmed {
			return dompickup.Pickup{}, fmt.Errorf("%w: lot %s already booked by pickup %s",
				domain.ErrConflict, lotID, open[i].ID())
		}
	}

	p, err := dompickup.New(s.newID(), dompickup.Draft{
		LotID:        lotID,
		ProducerID:   who.ID,
		ProducerName: who.Name,
		MerchantID:   l.MerchantID(),
		MerchantName: l.MerchantName(),
		LotImageURL:  l.ImageURL(),
		ScheduledAt:  at,
	}, now)
	if err != nil {
		return dompickup.Pickup{}, err
	}

	confirmed, err := l.WithStatus(domlot.StatusConfirmed)
	if err != nil {
		return dompickup.Pickup{}, err
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return dompickup.Pickup{}, fmt.Errorf("create pickup: %w", err)
	}
	if err := s.lots.Save(ctx, &confirmed); err != nil {
		if derr := s.repo.Delete(ctx, p.ID()); derr != nil {
			logger.FromContext(ctx).Error("pickup left without confirmed lot",
				zap.String("pickup_id", p.ID()),
				zap.String("lot_id", lotID),
				zap.Error(derr),
			)
		}
		return dompickup.Pickup{}, fmt.Errorf("confirm lot: %w", err)
	}

	logger.FromContext(ctx).Info("Pickup scheduled",
		zap.String("pickup_id", p.ID()),
		zap.String("lot_id", lotID),
		zap.String("producer_id", who.ID),
		zap.Time("scheduled_at", p.ScheduledAt()),
	)
	return p, nil
}

// Get returns a booking visible to v.
func (s *Service) Get(ctx context.Context, v Viewer, id string) (dompickup.Pickup, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return dompickup.Pickup{}, fmt.Errorf("get pickup: %w", err)
	}
	if !v.allows(&p) {
		return dompickup.Pickup{}, fmt.Errorf("pickup %s: %w", id, domain.ErrForbidden)
	}
	return p, nil
}

// List returns the bookings in status st visible to v, soonest collection first.
func (s *Service) List(ctx context.Context, v Viewer, st dompickup.Status) ([]dompickup.Pickup, error) {
	if _, err := dompickup.ParseStatus(string(st)); err != nil {
		return nil, err
	}

	var (
		all []dompickup.Pickup
		err error
	)
	if v.ProducerID != "" {
		all, err = s.repo.ListByProducer(ctx, v.ProducerID)
	} else {
		all, err = s.repo.ListByStatus(ctx, st)
	}
	if err != nil {
		return nil, fmt.Errorf("list pickups: %w", err)
	}

	out := make([]dompickup.Pickup, 0, len(all))
	for i := range all {
		if all[i].Status() == st && v.allows(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}
