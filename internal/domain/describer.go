package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DescribeInput is what a merchant tells us about a lot before it is stored.
type DescribeInput struct {
	MerchantName string
	WeightKg     float64
	ImageURL     string
	LimitDate    time.Time
}

// Describer produces the human-readable description shown for a lot.
type Describer interface {
	Describe(ctx context.Context, in DescribeInput) (string, error)
}

// HealthChecker verifies description provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FallbackDescriber wraps a Describer and substitutes a templated text when
// the provider fails or returns nothing. Registration never fails because of it.
type FallbackDescriber struct {
	inner   Describer
	onError func(err error)
}

// NewFallbackDescriber creates the decorator. inner may be nil, in which case
// the template is always used. onError, if set, observes provider failures.
func NewFallbackDescriber(inner Describer, onError func(err error)) *FallbackDescriber {
	return &FallbackDescriber{inner: inner, onError: onError}
}

// Describe delegates to the provider and falls back to TemplateDescription.
func (d *FallbackDescriber) Describe(ctx context.Context, in DescribeInput) (string, error) {
	if d.inner != nil {
		desc, err := d.inner.Describe(ctx, in)
		if err == nil && strings.TrimSpace(desc) != "" {
			return strings.TrimSpace(desc), nil
		}
		if err == nil {
			err = fmt.Errorf("%w: empty description", ErrDescriberError)
		}
		if d.onError != nil {
			d.onError(err)
		}
	}
	return TemplateDescription(in), nil
}

// HealthCheck forwards to the provider when it supports health checks.
func (d *FallbackDescriber) HealthCheck(ctx context.Context) error {
	if hc, ok := d.inner.(HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("describer health: %w", err)
		}
	}
	return nil
}

// TemplateDescription renders a plain description without a provider.
func TemplateDescription(in DescribeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.1f kg of surplus produce", in.WeightKg)
	if in.MerchantName != "" {
		fmt.Fprintf(&b, " from %s", in.MerchantName)
	}
	if !in.LimitDate.IsZero() {
		fmt.Fprintf(&b, ", available until %s", in.LimitDate.UTC().Format("2006-01-02"))
	}
	b.WriteString(".")
	return b.String()
}
