package health

import (
	"context"
	"time"
)

// Result represents the outcome of a readiness check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface readiness probes implement
type Checker interface {
	// Check performs the probe and returns the result
	Check(ctx context.Context) Result

	// Name identifies the probe in readiness responses
	Name() string
}

// Pinger is anything that can verify its backing connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker probes the upstream repository connection
type UpstreamChecker struct {
	pinger  Pinger
	timeout time.Duration
}

// NewUpstreamChecker creates a checker over an upstream connection
func NewUpstreamChecker(p Pinger, timeout time.Duration) *UpstreamChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UpstreamChecker{pinger: p, timeout: timeout}
}

// Name implements Checker
func (c *UpstreamChecker) Name() string {
	return "upstream"
}

// Check implements Checker
func (c *UpstreamChecker) Check(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := Result{
		Healthy:   true,
		Message:   "upstream reachable",
		CheckedAt: start,
	}
	if err := c.pinger.Ping(ctx); err != nil {
		result.Healthy = false
		result.Message = err.Error()
	}
	result.Duration = time.Since(start)
	return result
}

// CheckAll runs every checker and reports whether all passed
func CheckAll(ctx context.Context, checkers []Checker) (map[string]Result, bool) {
	results := make(map[string]Result, len(checkers))
	ready := true
	for _, c := range checkers {
		r := c.Check(ctx)
		results[c.Name()] = r
		if !r.Healthy {
			ready = false
		}
	}
	return results, ready
}
