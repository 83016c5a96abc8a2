package pickup

import (
	"context"

	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
)

// Repository defines the storage contract for pickup bookings.
type Repository interface {
	Create(ctx context.Context, p *dompickup.Pickup) error
	Get(ctx context.Context, id string) (dompickup.Pickup, error)
	Delete(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, st dompickup.Status) ([]dompickup.Pickup, error)
	ListByLot(ctx context.Context, lotID string) ([]dompickup.Pickup, error)
	ListByProducer(ctx context.Context, producerID string) ([]dompickup.Pickup, error)
}

// Lots reads and updates the lot being booked.
type Lots interface {
	Get(ctx context.Context, id string) (domlot.Lot, error)
	Save(ctx context.Context, l *domlot.Lot) error
}
