package lot

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/nearlot/internal/db"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	insertFn    func(ctx context.Context, schema *db.Schema, rec db.Record) error
	updateFn    func(ctx context.Context, schema *db.Schema, rec db.Record) error
	deleteFn    func(ctx context.Context, schema *db.Schema, id string) error
	getFn       func(ctx context.Context, collection, id string) (db.Record, error)
	rangeScanFn func(ctx context.Context, q *db.RangeQuery) ([]db.Record, error)
	findByFn    func(ctx context.Context, collection, field, value string) ([]db.Record, error)
}

func (m *mockStore) Insert(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, schema, rec)
	}
	return nil
}

func (m *mockStore) Update(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, schema, rec)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, schema *db.Schema, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, schema, id)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, collection, id string) (db.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return db.Record{}, db.ErrKeyNotFound
}

func (m *mockStore) RangeScan(ctx context.Context, q *db.RangeQuery) ([]db.Record, error) {
	if m.rangeScanFn != nil {
		return m.rangeScanFn(ctx, q)
	}
	return []db.Record{}, nil
}

func (m *mockStore) FindBy(ctx context.Context, collection, field, value string) ([]db.Record, error) {
	if m.findByFn != nil {
		return m.findByFn(ctx, collection, field, value)
	}
	return []db.Record{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLot(t *testing.T, id string) domlot.Lot {
	t.Helper()
	l, err := domlot.New(id, domlot.Draft{
		MerchantID:           "m-1",
		MerchantName:         "Green Grocer",
		MerchantAddressShort: "Main St, Centro, 10",
		WeightKg:             12.5,
		ImageURL:             "https://img.example.com/lot.jpg",
		Description:          "Ripe tomatoes",
		LimitDate:            testNow.Add(48 * time.Hour),
		Location:             geo.Coordinate{Latitude: 42.6, Longitude: -5.6},
	}, testNow)
	if err != nil {
		t.Fatalf("domlot.New: %v", err)
	}
	return l
}
