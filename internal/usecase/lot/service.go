package lot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	"github.com/kailas-cloud/nearlot/internal/logger"
)

// Service handles the lot write path: registration, moves, status changes.
// Every write that sets a location recomputes the spatial key.
type Service struct {
	repo      Repository
	describer Describer
	now       func() time.Time
	newID     func() string
}

// New creates a lot service. describer may be nil.
func New(repo Repository, describer Describer) *Service {
	return &Service{
		repo:      repo,
		describer: describer,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithIDGenerator overrides lot ID generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	if gen != nil {
		s.newID = gen
	}
	return s
}

// Register validates a draft, fills in a description if missing, and stores an active lot.
func (s *Service) Register(ctx context.Context, d domlot.Draft) (domlot.Lot, error) {
	now := s.now().UTC()

	if strings.TrimSpace(d.Description) == "" && s.describer != nil {
		desc, err := s.describer.Describe(ctx, domain.DescribeInput{
			MerchantName: d.MerchantName,
			WeightKg:     d.WeightKg,
			ImageURL:     d.ImageURL,
			LimitDate:    d.LimitDate,
		})
		if err != nil {
			if !errors.Is(err, domain.ErrDescriberError) {
				err = fmt.Errorf("%w: %w", domain.ErrDescriberError, err)
			}
			return domlot.Lot{}, fmt.Errorf("describe lot: %w", err)
		}
		d.Description = desc
	}

	l, err := domlot.New(s.newID(), d, now)
	if err != nil {
		return domlot.Lot{}, err
	}
	if err := s.repo.Create(ctx, &l); err != nil {
		return domlot.Lot{}, fmt.Errorf("create lot: %w", err)
	}

	logger.FromContext(ctx).Info("Lot registered",
		zap.String("lot_id", l.ID()),
		zap.String("merchant_id", l.MerchantID()),
		zap.String("spatial_key", l.SpatialKey()),
	)
	return l, nil
}

// Get returns a lot by ID.
func (s *Service) Get(ctx context.Context, id string) (domlot.Lot, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return domlot.Lot{}, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

// UpdateLocation moves a lot and recomputes its spatial key.
// An empty merchantID skips the ownership check.
func (s *Service) UpdateLocation(
	ctx context.Context, merchantID, id string, c geo.Coordinate,
) (domlot.Lot, error) {
	cur, err := s.owned(ctx, merchantID, id)
	if err != nil {
		return domlot.Lot{}, err
	}
	moved, err := cur.WithLocation(c)
	if err != nil {
		return domlot.Lot{}, err
	}
	if err := s.repo.Save(ctx, &moved); err != nil {
		return domlot.Lot{}, fmt.Errorf("save lot: %w", err)
	}

	logger.FromContext(ctx).Info("Lot moved",
		zap.String("lot_id", id),
		zap.String("from", cur.SpatialKey()),
		zap.String("to", moved.SpatialKey()),
	)
	return moved, nil
}

// UpdateStatus changes a lot's status. Finished lots cannot be reopened.
func (s *Service) UpdateStatus(
	ctx context.Context, merchantID, id string, st domlot.Status,
) (domlot.Lot, error) {
	cur, err := s.owned(ctx, merchantID, id)
	if err != nil {
		return domlot.Lot{}, err
	}
	next, err := cur.WithStatus(st)
	if err != nil {
		return domlot.Lot{}, err
	}
	if next.Status() == cur.Status() {
		return cur, nil
	}
	if err := s.repo.Save(ctx, &next); err != nil {
		return domlot.Lot{}, fmt.Errorf("save lot: %w", err)
	}
	return next, nil
}

// Delete removes a lot.
func (s *Service) Delete(ctx context.Context, merchantID, id string) error {
	if _, err := s.owned(ctx, merchantID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	return nil
}

// ListByMerchant returns a merchant's lots, newest first.
func (s *Service) ListByMerchant(ctx context.Context, merchantID string) ([]domlot.Lot, error) {
	if strings.TrimSpace(merchantID) == "" {
		return nil, fmt.Errorf("%w: merchant ID is required", domain.ErrInvalidArgument)
	}
	lots, err := s.repo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (s *Service) owned(ctx context.Context, merchantID, id string) (domlot.Lot, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return domlot.Lot{}, fmt.Errorf("get lot: %w", err)
	}
	if merchantID != "" && l.MerchantID() != merchantID {
		return domlot.Lot{}, fmt.Errorf("lot %s: %w", id, domain.ErrForbidden)
	}
	return l, nil
}
