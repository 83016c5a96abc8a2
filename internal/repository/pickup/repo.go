package pickup

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/nearlot/internal/db"
	"github.com/kailas-cloud/nearlot/internal/domain"
	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
)

// Collection is the record collection holding pickup bookings.
const Collection = "pickups"

// Schema indexes the fields bookings are looked up by.
var Schema = db.NewSchema(Collection).
	Index(fieldLotID, fieldProducerID, fieldStatus).
	MustBuild()

// store is the consumer interface for bookings (ISP).
type store interface {
	Insert(ctx context.Context, schema *db.Schema, rec db.Record) error
	Delete(ctx context.Context, schema *db.Schema, id string) error
	Get(ctx context.Context, collection, id string) (db.Record, error)
	FindBy(ctx context.Context, collection, field, value string) ([]db.Record, error)
}

// Repo implements usecase/pickup.Repository.
type Repo struct {
	store store
}

// New creates a pickup repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new booking.
func (r *Repo) Create(ctx context.Context, p *dompickup.Pickup) error {
	err := r.store.Insert(ctx, Schema, db.Record{ID: p.ID(), Fields: buildFields(p)})
	if err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("pickup %s: %w", p.ID(), domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert pickup %s: %w", p.ID(), storeErr(err))
	}
	return nil
}

// Get returns a booking by ID.
func (r *Repo) Get(ctx context.Context, id string) (dompickup.Pickup, error) {
	rec, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dompickup.Pickup{}, fmt.Errorf("%s: %w", id, dompickup.ErrNotFound)
		}
		return dompickup.Pickup{}, fmt.Errorf("get pickup %s: %w", id, storeErr(err))
	}
	return parseFields(rec.ID, rec.Fields), nil
}

// Delete removes a booking.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Schema, id); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", id, dompickup.ErrNotFound)
		}
		return fmt.Errorf("delete pickup %s: %w", id, storeErr(err))
	}
	return nil
}

// ListByStatus returns bookings in a status, soonest collection first.
func (r *Repo) ListByStatus(ctx context.Context, st dompickup.Status) ([]dompickup.Pickup, error) {
	return r.list(ctx, fieldStatus, string(st))
}

// ListByLot returns the bookings made for a lot, soonest collection first.
func (r *Repo) ListByLot(ctx context.Context, lotID string) ([]dompickup.Pickup, error) {
	return r.list(ctx, fieldLotID, lotID)
}

// ListByProducer returns a producer's bookings, soonest collection first.
func (r *Repo) ListByProducer(ctx context.Context, producerID string) ([]dompickup.Pickup, error) {
	return r.list(ctx, fieldProducerID, producerID)
}

func (r *Repo) list(ctx context.Context, field, value string) ([]dompickup.Pickup, error) {
	recs, err := r.store.FindBy(ctx, Collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("find pickups by %s=%s: %w", field, value, storeErr(err))
	}
	out := make([]dompickup.Pickup, len(recs))
	for i, rec := range recs {
		out[i] = parseFields(rec.ID, rec.Fields)
	}
	slices.SortStableFunc(out, func(a, b dompickup.Pickup) int {
		if c := a.ScheduledAt().Compare(b.ScheduledAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
	return out, nil
}

func storeErr(err error) error {
	var dbErr *db.Error
	if errors.As(err, &dbErr) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
