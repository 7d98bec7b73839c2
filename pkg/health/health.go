// Package health runs preflight checks against the inputs and external
// systems of a run before any work starts.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sort"
	"sync"
	"time"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check is a function that checks a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Down lists the components reported down, sorted by name.
func (r Report) Down() []string {
	var names []string
	for name, comp := range r.Components {
		if comp.Status == StatusDown {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Checker holds named checks and runs them concurrently.
type Checker struct {
	mu     sync.Mutex
	checks map[string]Check
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
		logger: slog.Default().With("component", "preflight"),
	}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

type namedResult struct {
	name   string
	health ComponentHealth
}

// Run executes every check in its own goroutine. The report status is the
// worst component status: down beats degraded beats up.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	checks := maps.Clone(c.checks)
	c.mu.Unlock()

	results := make(chan namedResult, len(checks))
	for name, check := range checks {
		go func() {
			start := time.Now()
			h := check(ctx)
			h.Latency = time.Since(start).Round(time.Millisecond).String()
			results <- namedResult{name: name, health: h}
		}()
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for range checks {
		r := <-results
		report.Components[r.name] = r.health
		switch {
		case r.health.Status == StatusDown:
			report.Status = StatusDown
			c.logger.Warn("check failed", "check", r.name, "message", r.health.Message)
		case r.health.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		default:
			c.logger.Debug("check passed", "check", r.name, "latency", r.health.Latency)
		}
	}
	return report
}

// FileCheck reports down unless path is a readable, non-empty regular file.
func FileCheck(path string) Check {
	return func(ctx context.Context) ComponentHealth {
		f, err := os.Open(path)
		if err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		if !info.Mode().IsRegular() {
			return ComponentHealth{Status: StatusDown, Message: fmt.Sprintf("%s is not a regular file", path)}
		}
		if info.Size() == 0 {
			return ComponentHealth{Status: StatusDown, Message: fmt.Sprintf("%s is empty", path)}
		}
		return ComponentHealth{Status: StatusUp, Message: fmt.Sprintf("%d bytes", info.Size())}
	}
}

// PingCheck reports down when ping fails within timeout.
func PingCheck(timeout time.Duration, ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}
