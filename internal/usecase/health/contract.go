package health

import "context"

// StorePinger checks record store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DescriberChecker checks description provider availability.
type DescriberChecker interface {
	HealthCheck(ctx context.Context) error
}
