package proximity

import (
	"context"

	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
)

// Scanner reads lots whose spatial key lies in [lower, upper).
type Scanner interface {
	ScanSpatialKey(ctx context.Context, lower, upper string) ([]domlot.Lot, error)
}
