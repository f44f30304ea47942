// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports a Manager over its limits. It satisfies
// health.HealthCheck.
type HealthCheck struct {
	manager *Manager
}

// NewHealthCheck creates a health check for m
func NewHealthCheck(m *Manager) *HealthCheck {
	return &HealthCheck{manager: m}
}

// Name returns the name of this health check.
func (r *HealthCheck) Name() string {
	return "resource"
}

// Check fails when memory is over the limit or tracked goroutines pass 80%
// of theirs.
func (r *HealthCheck) Check(ctx context.Context) error {
	stats := r.manager.Stats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := stats.MaxGoroutines * 8 / 10
	if stats.Goroutines > threshold {
		return fmt.Errorf("goroutine count %d exceeds 80%% threshold (%d/%d)",
			stats.Goroutines, threshold, stats.MaxGoroutines)
	}
	return nil
}
