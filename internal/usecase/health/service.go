package health

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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

// Component names used in reports.
const (
	ComponentSearch = "search"
	ComponentLLM    = "llm"
	ComponentStore  = "store"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	checkers map[string]Checker
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Service. Nil checkers are skipped.
func New(checkers map[string]Checker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make(map[string]Checker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			active[name] = c
		}
	}
	return &Service{checkers: active, timeout: defaultCheckTimeout, logger: logger}
}

// Check runs every checker with a per-check timeout.
// Status is Unhealthy when all checks fail, Degraded when some do.
func (s *Service) Check(ctx context.Context) Report {
	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]CheckResult, len(names))
	failed := 0
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checkers[name].HealthCheck(cctx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = CheckError
			failed++
			continue
		}
		checks[name] = CheckOK
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(names):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
