package ports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateChecker is returned when a checker name is registered twice.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is one entry of /-/ready. The SQL store pings the database,
// the Redis cache pings Redis and each quote API reports its circuit breaker.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthRegistry aggregates health checks from multiple components.
type HealthRegistry interface {
	// Register adds a checker whose failure makes the service unhealthy.
	Register(checker HealthChecker) error

	// RegisterOptional adds a checker whose failure only degrades the service.
	// Quote APIs are optional: the database can still serve quotes without them.
	RegisterOptional(checker HealthChecker) error

	// CheckAll runs all registered checks concurrently and aggregates them.
	CheckAll(ctx context.Context) *HealthResult
}

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the body of /-/ready.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one checker.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Optional bool          `json:"optional,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Registry is the HealthRegistry used by the service. Checks run in
// parallel and each one is bounded by the request context.
type Registry struct {
	mu     sync.RWMutex
	checks []check
}

type check struct {
	HealthChecker
	optional bool
}

func NewHealthRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker whose failure makes the service unhealthy.
func (r *Registry) Register(c HealthChecker) error { return r.add(c, false) }

// RegisterOptional adds a checker whose failure only degrades the service.
func (r *Registry) RegisterOptional(c HealthChecker) error { return r.add(c, true) }

func (r *Registry) add(c HealthChecker, optional bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.ContainsFunc(r.checks, func(existing check) bool { return existing.Name() == c.Name() }) {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, c.Name())
	}

	r.checks = append(r.checks, check{HealthChecker: c, optional: optional})

	return nil
}

// CheckAll runs every check and folds the outcomes: any required failure is
// unhealthy, optional failures alone are degraded.
func (r *Registry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checks := slices.Clone(r.checks)
	r.mu.RUnlock()

	outcomes := make([]*CheckResult, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			outcomes[i] = run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	res := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checks)),
		Timestamp: time.Now(),
	}

	for i, c := range checks {
		out := outcomes[i]
		res.Checks[c.Name()] = out

		if out.Status == HealthStatusHealthy {
			continue
		}

		if !c.optional {
			res.Status = HealthStatusUnhealthy
		} else if res.Status == HealthStatusHealthy {
			res.Status = HealthStatusDegraded
		}
	}

	return res
}

func run(ctx context.Context, c check) *CheckResult {
	start := time.Now()
	err := c.Check(ctx)

	out := &CheckResult{Status: HealthStatusHealthy, Optional: c.optional, Duration: time.Since(start)}
	if err != nil {
		out.Status = HealthStatusUnhealthy
		out.Message = err.Error()
	}

	return out
}
