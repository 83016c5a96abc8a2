package nearlot

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

// Describer writes a human-readable lot description.
type Describer interface {
	Describe(ctx context.Context, in DescribeInput) (string, error)
}

// describerAdapter wraps a public Describer to satisfy domain.Describer.
type describerAdapter struct {
	inner Describer
}

func (a *describerAdapter) Describe(ctx context.Context, in domain.DescribeInput) (string, error) {
	desc, err := a.inner.Describe(ctx, DescribeInput{
		MerchantName: in.MerchantName,
		WeightKg:     in.WeightKg,
		ImageURL:     in.ImageURL,
		LimitDate:    in.LimitDate,
	})
	if err != nil {
		return "", fmt.Errorf("describe: %w", err)
	}
	return desc, nil
}
