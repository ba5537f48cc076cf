package health

import (
	"context"
	"time"
)

// Checkable is implemented by store adapters
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker reports on anything with a HealthCheck method
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker creates a health checker for an adapter. A zero timeout means 5s.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout}
}

// Check performs the health check on the adapter
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return result(c.name, time.Now(), c.adapter.HealthCheck(checkCtx))
}

// Name returns the name of the health check
func (c *AdapterChecker) Name() string {
	return c.name
}

// ProbeChecker runs an arbitrary probe, such as a point read against a container.
type ProbeChecker struct {
	name  string
	probe func(ctx context.Context) error
}

// NewProbeChecker creates a checker that is healthy when probe returns nil.
func NewProbeChecker(name string, probe func(ctx context.Context) error) *ProbeChecker {
	return &ProbeChecker{name: name, probe: probe}
}

// Check runs the probe
func (c *ProbeChecker) Check(ctx context.Context) CheckResult {
	return result(c.name, time.Now(), c.probe(ctx))
}

// Name returns the name of the health check
func (c *ProbeChecker) Name() string {
	return c.name
}

func result(name string, start time.Time, err error) CheckResult {
	res := CheckResult{
		Name:      name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = ""
		res.Error = err.Error()
	}
	return res
}
