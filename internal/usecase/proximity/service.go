package proximity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	domprox "github.com/kailas-cloud/nearlot/internal/domain/proximity"
	"github.com/kailas-cloud/nearlot/internal/logger"
	"github.com/kailas-cloud/nearlot/internal/metrics"
)

// Service answers "which lots lie within r km of this point" over a store
// that only supports ordered range scans on the spatial key.
type Service struct {
	scanner Scanner
	cfg     domain.ProximityConfig
}

// New creates a proximity query service.
func New(scanner Scanner, cfg domain.ProximityConfig) *Service {
	return &Service{scanner: scanner, cfg: cfg}
}

// Config returns the radius bounds the service validates against.
func (s *Service) Config() domain.ProximityConfig { return s.cfg }

// Search validates the raw inputs and runs Query.
func (s *Service) Search(
	ctx context.Context, center geo.Coordinate, radiusKm float64, status domlot.Status,
) ([]domprox.Result, error) {
	req, err := domprox.New(center, radiusKm, status, s.cfg)
	if err != nil {
		metrics.ProximityQueriesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	return s.Query(ctx, req)
}

// Query returns every lot within the request radius, nearest first, ties by ID.
// A failed scan aborts the whole query; partial results are never returned.
func (s *Service) Query(ctx context.Context, req domprox.Request) ([]domprox.Result, error) {
	start := time.Now()
	center, radius := req.Center(), req.RadiusKm()

	p := geo.FitPrecision(center, radius, geo.SelectPrecision(radius))
	centerKey, err := geo.Encode(center, p)
	if err != nil {
		metrics.ProximityQueriesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("encode center: %w", err)
	}
	neighbors, err := geo.Neighbors(centerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: neighbors of %q: %w", domain.ErrEncoding, centerKey, err)
	}
	prefixes := append([]string{centerKey}, neighbors...)
	metrics.ProximityPrecision.WithLabelValues(strconv.Itoa(p)).Inc()

	batches, err := s.scanAll(ctx, prefixes)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	seen := make(map[string]struct{})
	candidates := 0
	results := make([]domprox.Result, 0)
	for i, batch := range batches {
		prefix := prefixes[i]
		for _, l := range batch {
			if _, dup := seen[l.ID()]; dup {
				continue
			}
			if !strings.HasPrefix(l.SpatialKey(), prefix) {
				log.Warn("Skipping lot with mismatched spatial key",
					zap.String("lot_id", l.ID()),
					zap.String("spatial_key", l.SpatialKey()),
					zap.String("prefix", prefix),
				)
				metrics.ProximitySkippedTotal.WithLabelValues("key_mismatch").Inc()
				continue
			}
			seen[l.ID()] = struct{}{}
			candidates++

			d := geo.DistanceKm(center, l.Location())
			if d > radius {
				continue
			}
			if req.Status() != "" && l.Status() != req.Status() {
				continue
			}
			results = append(results, domprox.Result{Lot: l, DistanceKm: d})
		}
	}

	slices.SortFunc(results, func(a, b domprox.Result) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return strings.Compare(a.Lot.ID(), b.Lot.ID())
	})

	duration := time.Since(start)
	metrics.ProximityQueriesTotal.WithLabelValues("ok").Inc()
	metrics.ProximityQueryDuration.Observe(duration.Seconds())
	metrics.ProximityCandidates.Observe(float64(candidates))
	metrics.ProximityResults.Observe(float64(len(results)))

	log.Debug("Proximity query completed",
		zap.Stringer("center", center),
		zap.Float64("radius_km", radius),
		zap.Int("precision", p),
		zap.Strings("prefixes", prefixes),
		zap.Int("candidates", candidates),
		zap.Int("results", len(results)),
		zap.Duration("duration", duration),
	)

	return results, nil
}

// scanAll runs one range scan per prefix concurrently. batches[i] holds the
// lots found under prefixes[i].
func (s *Service) scanAll(ctx context.Context, prefixes []string) ([][]domlot.Lot, error) {
	batches := make([][]domlot.Lot, len(prefixes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(s.cfg.MaxConcurrentScans, len(prefixes))))

	for i, prefix := range prefixes {
		g.Go(func() error {
			lots, err := s.scanner.ScanSpatialKey(gctx, prefix, prefix+geo.MaxSuffix)
			if err != nil {
				return fmt.Errorf("scan prefix %q: %w", prefix, err)
			}
			batches[i] = lots
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.ProximityQueriesTotal.WithLabelValues("canceled").Inc()
			return nil, fmt.Errorf("proximity query: %w", ctxErr)
		}
		metrics.ProximityQueriesTotal.WithLabelValues("store_error").Inc()
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return batches, nil
}
