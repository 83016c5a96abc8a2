package lot

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/db"
	"github.com/kailas-cloud/nearlot/internal/domain"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	"github.com/kailas-cloud/nearlot/internal/logger"
	"github.com/kailas-cloud/nearlot/internal/metrics"
)

// Collection is the record collection holding lots.
const Collection = "lots"

// Schema indexes the fields lots are looked up by.
var Schema = db.NewSchema(Collection).
	Index(fieldSpatialKey, fieldMerchantID, fieldStatus).
	MustBuild()

// store is the consumer interface for lots (ISP).
type store interface {
	Insert(ctx context.Context, schema *db.Schema, rec db.Record) error
	Update(ctx context.Context, schema *db.Schema, rec db.Record) error
	Delete(ctx context.Context, schema *db.Schema, id string) error
	Get(ctx context.Context, collection, id string) (db.Record, error)
	RangeScan(ctx context.Context, q *db.RangeQuery) ([]db.Record, error)
	FindBy(ctx context.Context, collection, field, value string) ([]db.Record, error)
}

// Repo implements usecase/lot.Repository and usecase/proximity.Scanner.
type Repo struct {
	store store
}

// New creates a lot repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new lot.
func (r *Repo) Create(ctx context.Context, l *domlot.Lot) error {
	err := r.store.Insert(ctx, Schema, db.Record{ID: l.ID(), Fields: buildFields(l)})
	if err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("lot %s: %w", l.ID(), domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert lot %s: %w", l.ID(), storeErr(err))
	}
	return nil
}

// Save overwrites an existing lot.
func (r *Repo) Save(ctx context.Context, l *domlot.Lot) error {
	err := r.store.Update(ctx, Schema, db.Record{ID: l.ID(), Fields: buildFields(l)})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("lot %s: %w", l.ID(), domain.ErrNotFound)
		}
		return fmt.Errorf("update lot %s: %w", l.ID(), storeErr(err))
	}
	return nil
}

// Get returns a lot by ID.
func (r *Repo) Get(ctx context.Context, id string) (domlot.Lot, error) {
	rec, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domlot.Lot{}, fmt.Errorf("lot %s: %w", id, domain.ErrNotFound)
		}
		return domlot.Lot{}, fmt.Errorf("get lot %s: %w", id, storeErr(err))
	}
	return parseFields(rec.ID, rec.Fields)
}

// Delete removes a lot.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Schema, id); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("lot %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete lot %s: %w", id, storeErr(err))
	}
	return nil
}

// ScanSpatialKey returns lots whose spatial key lies in [lower, upper).
// Records that cannot be decoded are skipped and logged.
func (r *Repo) ScanSpatialKey(ctx context.Context, lower, upper string) ([]domlot.Lot, error) {
	recs, err := r.store.RangeScan(ctx, &db.RangeQuery{
		Collection: Collection,
		Field:      fieldSpatialKey,
		Lower:      lower,
		Upper:      upper,
	})
	if err != nil {
		return nil, fmt.Errorf("range scan %s [%q, %q): %w", fieldSpatialKey, lower, upper, storeErr(err))
	}
	return r.decodeAll(ctx, recs), nil
}

// ListByMerchant returns a merchant's lots, newest first.
func (r *Repo) ListByMerchant(ctx context.Context, merchantID string) ([]domlot.Lot, error) {
	recs, err := r.store.FindBy(ctx, Collection, fieldMerchantID, merchantID)
	if err != nil {
		return nil, fmt.Errorf("find lots of merchant %s: %w", merchantID, storeErr(err))
	}
	lots := r.decodeAll(ctx, recs)
	slices.SortStableFunc(lots, func(a, b domlot.Lot) int {
		if c := b.CreatedAt().Compare(a.CreatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
	return lots, nil
}

func (r *Repo) decodeAll(ctx context.Context, recs []db.Record) []domlot.Lot {
	lots := make([]domlot.Lot, 0, len(recs))
	for _, rec := range recs {
		l, err := parseFields(rec.ID, rec.Fields)
		if err != nil {
			logger.FromContext(ctx).Warn("skipping malformed lot record",
				zap.String("lot_id", rec.ID),
				zap.Error(err),
			)
			metrics.ProximitySkippedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		lots = append(lots, l)
	}
	return lots
}

// storeErr marks driver failures as ErrStoreUnavailable. Other errors pass through.
func storeErr(err error) error {
	var dbErr *db.Error
	if errors.As(err, &dbErr) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
