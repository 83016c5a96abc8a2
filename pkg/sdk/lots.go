package nearlot

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	domprox "github.com/kailas-cloud/nearlot/internal/domain/proximity"
)

// LotService registers, updates and searches lots.
//
// Methods taking a merchantID check ownership; pass "" to act as an operator.
type LotService struct {
	lots lotUseCase
	prox proximityUseCase
	obs  *observer
}

// Register validates and stores a new active lot.
func (s *LotService) Register(ctx context.Context, d LotDraft) (_ Lot, err error) {
	start := time.Now()
	defer func() { s.obs.observe("register", start, err) }()

	l, err := s.lots.Register(ctx, toInternalDraft(d))
	if err != nil {
		return Lot{}, fmt.Errorf("register lot: %w", err)
	}
	return fromInternalLot(&l), nil
}

// Get retrieves a lot by ID.
func (s *LotService) Get(ctx context.Context, id string) (_ Lot, err error) {
	start := time.Now()
	defer func() { s.obs.observe("get", start, err) }()

	l, err := s.lots.Get(ctx, id)
	if err != nil {
		return Lot{}, fmt.Errorf("get lot: %w", err)
	}
	return fromInternalLot(&l), nil
}

// Move changes a lot's pickup location.
func (s *LotService) Move(
	ctx context.Context, merchantID, id string, lat, lon float64,
) (_ Lot, err error) {
	start := time.Now()
	defer func() { s.obs.observe("move", start, err) }()

	l, err := s.lots.UpdateLocation(ctx, merchantID, id, geo.Coordinate{Latitude: lat, Longitude: lon})
	if err != nil {
		return Lot{}, fmt.Errorf("move lot: %w", err)
	}
	return fromInternalLot(&l), nil
}

// SetStatus moves a lot through its lifecycle.
func (s *LotService) SetStatus(
	ctx context.Context, merchantID, id string, st Status,
) (_ Lot, err error) {
	start := time.Now()
	defer func() { s.obs.observe("set_status", start, err) }()

	status, err := domlot.ParseStatus(string(st))
	if err != nil {
		return Lot{}, fmt.Errorf("set status: %w", err)
	}
	l, err := s.lots.UpdateStatus(ctx, merchantID, id, status)
	if err != nil {
		return Lot{}, fmt.Errorf("set status: %w", err)
	}
	return fromInternalLot(&l), nil
}

// Delete removes a lot.
func (s *LotService) Delete(ctx context.Context, merchantID, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("delete", start, err) }()

	if err = s.lots.Delete(ctx, merchantID, id); err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	return nil
}

// ListByMerchant returns a merchant's lots.
func (s *LotService) ListByMerchant(ctx context.Context, merchantID string) (_ []Lot, err error) {
	start := time.Now()
	defer func() { s.obs.observe("list_by_merchant", start, err) }()

	lots, err := s.lots.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	out := make([]Lot, len(lots))
	for i := range lots {
		out[i] = fromInternalLot(&lots[i])
	}
	return out, nil
}

// Nearby returns lots within radiusKm of (lat, lon), nearest first.
// An empty status matches every lot.
func (s *LotService) Nearby(
	ctx context.Context, lat, lon, radiusKm float64, status Status,
) (_ []NearbyLot, err error) {
	start := time.Now()
	defer func() { s.obs.observe("nearby", start, err) }()

	var st domlot.Status
	if status != "" {
		if st, err = domlot.ParseStatus(string(status)); err != nil {
			return nil, fmt.Errorf("nearby: %w", err)
		}
	}

	results, err := s.prox.Search(ctx, geo.Coordinate{Latitude: lat, Longitude: lon}, radiusKm, st)
	if err != nil {
		return nil, fmt.Errorf("nearby: %w", err)
	}
	s.obs.observeNearby(len(results))
	return fromResults(results), nil
}

func toInternalDraft(d LotDraft) domlot.Draft {
	return domlot.Draft{
		MerchantID:           d.MerchantID,
		MerchantName:         d.MerchantName,
		MerchantAddressShort: d.MerchantAddressShort,
		WeightKg:             d.WeightKg,
		ImageURL:             d.ImageURL,
		Description:          d.Description,
		LimitDate:            d.LimitDate,
		Location:             geo.Coordinate{Latitude: d.Latitude, Longitude: d.Longitude},
	}
}

func fromInternalLot(l *domlot.Lot) Lot {
	loc := l.Location()
	return Lot{
		ID:                   l.ID(),
		MerchantID:           l.MerchantID(),
		MerchantName:         l.MerchantName(),
		MerchantAddressShort: l.MerchantAddressShort(),
		Status:               Status(l.Status()),
		WeightKg:             l.WeightKg(),
		ImageURL:             l.ImageURL(),
		Description:          l.Description(),
		LimitDate:            l.LimitDate(),
		CreatedAt:            l.CreatedAt(),
		Latitude:             loc.Latitude,
		Longitude:            loc.Longitude,
		SpatialKey:           l.SpatialKey(),
	}
}

func fromResults(results []domprox.Result) []NearbyLot {
	out := make([]NearbyLot, len(results))
	for i := range results {
		out[i] = NearbyLot{
			Lot:        fromInternalLot(&results[i].Lot),
			DistanceKm: results[i].DistanceKm,
		}
	}
	return out
}
