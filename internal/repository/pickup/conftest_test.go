package pickup

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/nearlot/internal/db"
	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	insertFn func(ctx context.Context, schema *db.Schema, rec db.Record) error
	deleteFn func(ctx context.Context, schema *db.Schema, id string) error
	getFn    func(ctx context.Context, collection, id string) (db.Record, error)
	findByFn func(ctx context.Context, collection, field, value string) ([]db.Record, error)
}

func (m *mockStore) Insert(ctx context.Context, schema *db.Schema, rec db.Record) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, schema, rec)
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

func (m *mockStore) FindBy(ctx context.Context, collection, field, value string) ([]db.Record, error) {
	if m.findByFn != nil {
		return m.findByFn(ctx, collection, field, value)
	}
	return []db.Record{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testPickup(t *testing.T, id string, in time.Duration) dompickup.Pickup {
	t.Helper()
	p, err := dompickup.New(id, dompickup.Draft{
		LotID:        "lot-1",
		ProducerID:   "p-1",
		ProducerName: "Compost Co",
		MerchantID:   "m-1",
		MerchantName: "Green Grocer",
		LotImageURL:  "https://img.example.com/lot.jpg",
		ScheduledAt:  testNow.Add(in),
	}, testNow)
	if err != nil {
		t.Fatalf("dompickup.New: %v", err)
	}
	return p
}
