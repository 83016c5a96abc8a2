package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed; lots are still served.
	Degraded Status = "degraded"
	// Unhealthy indicates the record store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	describer DescriberChecker
	timeout   time.Duration
}

// New creates a Service. describer can be nil.
func New(store StorePinger, describer DescriberChecker) *Service {
	return &Service{store: store, describer: describer, timeout: defaultCheckTimeout}
}

// WithTimeout sets the per-check deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.run(ctx, "database", s.store.Ping) {
		checks["database"] = CheckOK
	} else {
		checks["database"] = CheckError
		status = Unhealthy
	}

	if s.describer != nil {
		if s.run(ctx, "describer", s.describer.HealthCheck) {
			checks["describer"] = CheckOK
		} else {
			checks["describer"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, name string, check func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		logger.FromContext(ctx).Warn("Health check failed",
			zap.String("component", name),
			zap.Error(err),
		)
		return false
	}
	return true
}
