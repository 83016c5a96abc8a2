package lot

import (
	"context"

	"github.com/kailas-cloud/nearlot/internal/domain"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
)

// Repository defines the storage contract for lots.
type Repository interface {
	Create(ctx context.Context, l *domlot.Lot) error
	Save(ctx context.Context, l *domlot.Lot) error
	Get(ctx context.Context, id string) (domlot.Lot, error)
	Delete(ctx context.Context, id string) error
	ListByMerchant(ctx context.Context, merchantID string) ([]domlot.Lot, error)
}

// Describer writes a lot description when the merchant leaves it blank.
type Describer interface {
	Describe(ctx context.Context, in domain.DescribeInput) (string, error)
}
