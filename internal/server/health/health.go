// Package health runs readiness checks against the server's dependencies.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sgics/sgics/internal/logging"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// Checker probes one dependency. Check must honour ctx cancellation.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) Name() string                    { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckFunc adapts a function to Checker.
func CheckFunc(name string, fn func(ctx context.Context) error) Checker {
	return checkFunc{name: name, fn: fn}
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DBCheck reports whether the database accepts connections.
func DBCheck(db Pinger) Checker {
	return CheckFunc("database", db.PingContext)
}

// Report is the outcome of a readiness run. Checks maps every failed check
// to its error text.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (r Report) OK() bool { return r.Status == StatusOK }

// Redacted keeps the names of failed checks but replaces their error text,
// which may carry hosts or endpoints, with StatusUnavailable. Registry.Ready
// logs the full text.
func (r Report) Redacted() Report {
	if len(r.Checks) == 0 {
		return Report{Status: r.Status}
	}
	checks := make(map[string]string, len(r.Checks))
	for name := range r.Checks {
		checks[name] = StatusUnavailable
	}
	return Report{Status: r.Status, Checks: checks}
}

// Registry runs a fixed set of checks. With no checks it is always ready.
type Registry struct {
	checks  []Checker
	timeout time.Duration
	logger  logging.Logger
}

func NewRegistry(timeout time.Duration, logger logging.Logger, checks ...Checker) *Registry {
	return &Registry{checks: checks, timeout: timeout, logger: logger.With("module", "health")}
}

// Names lists the registered checks, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	sort.Strings(names)
	return names
}

// Ready runs every check concurrently, each bounded by the registry timeout.
func (r *Registry) Ready(ctx context.Context) Report {
	if len(r.checks) == 0 {
		return Report{Status: StatusOK}
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed = make(map[string]string)
	)
	for _, c := range r.checks {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			cctx := ctx
			if r.timeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}

			if err := c.Check(cctx); err != nil {
				r.logger.Warn(ctx, "readiness check failed", "check", c.Name(), "error", err.Error())
				mu.Lock()
				failed[c.Name()] = err.Error()
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	if len(failed) > 0 {
		return Report{Status: StatusUnavailable, Checks: failed}
	}
	return Report{Status: StatusOK}
}
