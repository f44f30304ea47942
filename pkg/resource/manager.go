// pkg/resource/manager.go
package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-idealgas/pkg/logging"
)

// Limits bounds what a Manager allows
type Limits struct {
	MaxMemoryMB     int64
	MaxGoroutines   int64
	ShutdownTimeout time.Duration
	CheckInterval   time.Duration
}

// Manager tracks the driver's goroutines and heap size, and waits for the
// goroutines to finish on shutdown.
type Manager struct {
	limits Limits
	logger *logging.Logger

	goroutines    atomic.Int64
	memoryUsageMB atomic.Int64
	lastCheck     atomic.Int64 // unix nanoseconds
	wg            sync.WaitGroup

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewManager creates a stopped manager
func NewManager(limits Limits, logger *logging.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		limits: limits,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start begins periodic memory checks
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("resource manager already running")
	}
	m.running = true

	go m.monitoringLoop()

	m.logger.Info(m.ctx, "Resource manager started",
		"max_memory_mb", m.limits.MaxMemoryMB,
		"max_goroutines", m.limits.MaxGoroutines,
		"check_interval", m.limits.CheckInterval.String(),
	)
	return nil
}

// Go runs fn on a tracked goroutine. It fails when the goroutine limit is
// reached. A panic in fn is logged and the goroutine ends.
func (m *Manager) Go(ctx context.Context, name string, fn func(context.Context)) error {
	if n := m.goroutines.Add(1); n > m.limits.MaxGoroutines {
		m.goroutines.Add(-1)
		m.logger.Warn(ctx, "Goroutine limit exceeded", "name", name, "limit", m.limits.MaxGoroutines)
		return fmt.Errorf("goroutine limit exceeded: %d/%d", n-1, m.limits.MaxGoroutines)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.goroutines.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error(ctx, "Goroutine panic", fmt.Errorf("panic: %v", r), "name", name)
			}
		}()

		fn(ctx)
	}()

	return nil
}

// CheckMemoryUsage samples the heap and compares it with the limit
func (m *Manager) CheckMemoryUsage() error {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	currentMB := int64(stats.Alloc / 1024 / 1024)
	m.memoryUsageMB.Store(currentMB)
	m.lastCheck.Store(time.Now().UnixNano())

	if currentMB > m.limits.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.limits.MaxMemoryMB)
	}
	return nil
}

// Stats is a point-in-time view of tracked resources
type Stats struct {
	Goroutines    int64     `json:"goroutines"`
	MaxGoroutines int64     `json:"max_goroutines"`
	MemoryUsageMB int64     `json:"memory_usage_mb"`
	MaxMemoryMB   int64     `json:"max_memory_mb"`
	LastCheck     time.Time `json:"last_check"`
}

// Stats returns current resource usage
func (m *Manager) Stats() Stats {
	var last time.Time
	if ns := m.lastCheck.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Goroutines:    m.goroutines.Load(),
		MaxGoroutines: m.limits.MaxGoroutines,
		MemoryUsageMB: m.memoryUsageMB.Load(),
		MaxMemoryMB:   m.limits.MaxMemoryMB,
		LastCheck:     last,
	}
}

// Shutdown stops monitoring and waits up to the shutdown timeout for tracked
// goroutines to return. Callers cancel the goroutines' context first.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	m.cancel()
	if wasRunning {
		<-m.done
	}

	ctx, cancel := context.WithTimeout(ctx, m.limits.ShutdownTimeout)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Debug(ctx, "All tracked goroutines finished")
		return nil
	case <-ctx.Done():
		remaining := m.goroutines.Load()
		m.logger.Warn(ctx, "Shutdown timeout exceeded with goroutines still running", "remaining", remaining)
		return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
	}
}

func (m *Manager) monitoringLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.limits.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.CheckMemoryUsage(); err != nil {
				m.logger.Error(m.ctx, "Memory limit exceeded", err)
			}
		case <-m.ctx.Done():
			return
		}
	}
}
