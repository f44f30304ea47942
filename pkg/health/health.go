// Package health serves liveness and readiness endpoints for a running
// simulation. Checks read a Status the frame loop publishes, never the
// container itself.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Report status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusAlive     = "alive"
)

// DefaultCheckTimeout bounds each check run by CheckHealth
const DefaultCheckTimeout = 2 * time.Second

// HealthCheck is one named readiness condition.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the readiness report. Status is healthy only when every
// check passed.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker runs registered checks, each under its own timeout.
type HealthChecker struct {
	mu           sync.RWMutex
	checks       []HealthCheck
	checkTimeout time.Duration
	started      time.Time
}

// NewHealthChecker creates a checker with DefaultCheckTimeout.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checkTimeout: DefaultCheckTimeout, started: time.Now()}
}

// SetCheckTimeout changes the per-check timeout.
func (hc *HealthChecker) SetCheckTimeout(d time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checkTimeout = d
}

// AddCheck registers check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = slices.DeleteFunc(hc.checks, func(c HealthCheck) bool { return c.Name() == check.Name() })
	hc.checks = append(hc.checks, check)
}

// RemoveCheck drops the check called name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = slices.DeleteFunc(hc.checks, func(c HealthCheck) bool { return c.Name() == name })
}

// CheckHealth runs every check in registration order.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	checks := slices.Clone(hc.checks)
	timeout := hc.checkTimeout
	hc.mu.RUnlock()

	report := HealthStatus{Status: StatusHealthy, Checks: make(map[string]ComponentHealth, len(checks))}
	for _, check := range checks {
		result := ComponentHealth{Status: StatusHealthy}
		if err := runCheck(ctx, check, timeout); err != nil {
			result = ComponentHealth{Status: StatusUnhealthy, Message: err.Error()}
			report.Status = StatusUnhealthy
		}
		report.Checks[check.Name()] = result
	}
	return report
}

func runCheck(ctx context.Context, check HealthCheck, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return check.Check(ctx)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// LivenessHandler answers 200 while the process can serve HTTP, with the
// checker's uptime.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": StatusAlive,
		"uptime": time.Since(hc.started).Round(time.Second).String(),
	})
}

// ReadinessHandler answers 200 with the report when every check passes and
// 503 otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	report := hc.CheckHealth(r.Context())
	code := http.StatusOK
	if report.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

// NewServeMux routes /health and /ready to hc
func NewServeMux(hc *HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	return mux
}

// Status is the frame loop's published view of the simulation. It is safe
// for concurrent use.
type Status struct {
	running   atomic.Bool
	finite    atomic.Bool
	frame     atomic.Uint64
	lastFrame atomic.Int64 // unix nanoseconds
}

// NewStatus returns a stopped status with finite state
func NewStatus() *Status {
	s := &Status{}
	s.finite.Store(true)
	return s
}

// SetRunning records whether the frame loop is running
func (s *Status) SetRunning(running bool) { s.running.Store(running) }

// Running reports whether the frame loop is running
func (s *Status) Running() bool { return s.running.Load() }

// RecordFrame records a completed frame
func (s *Status) RecordFrame(frame uint64, finite bool, at time.Time) {
	s.frame.Store(frame)
	s.finite.Store(finite)
	s.lastFrame.Store(at.UnixNano())
}

// Frame returns the last recorded frame number
func (s *Status) Frame() uint64 { return s.frame.Load() }

// Finite reports whether the last recorded frame had finite state
func (s *Status) Finite() bool { return s.finite.Load() }

// LastFrame returns when the last frame was recorded, or the zero time
func (s *Status) LastFrame() time.Time {
	ns := s.lastFrame.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// SimulationHealthCheck fails while the frame loop is not running.
type SimulationHealthCheck struct {
	running func() bool
}

// NewSimulationHealthCheck creates a health check for the frame loop.
func NewSimulationHealthCheck(running func() bool) *SimulationHealthCheck {
	return &SimulationHealthCheck{running: running}
}

// Name returns the name of this health check.
func (c *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies that the frame loop is running.
func (c *SimulationHealthCheck) Check(ctx context.Context) error {
	if !c.running() {
		return fmt.Errorf("simulation is not running")
	}
	return nil
}

// FiniteStateHealthCheck fails once a particle position or velocity became
// NaN or infinite. Such state never recovers.
type FiniteStateHealthCheck struct {
	finite func() bool
}

// NewFiniteStateHealthCheck creates a health check for numeric state.
func NewFiniteStateHealthCheck(finite func() bool) *FiniteStateHealthCheck {
	return &FiniteStateHealthCheck{finite: finite}
}

// Name returns the name of this health check.
func (c *FiniteStateHealthCheck) Name() string {
	return "finite_state"
}

// Check verifies that the particle state is finite.
func (c *FiniteStateHealthCheck) Check(ctx context.Context) error {
	if !c.finite() {
		return fmt.Errorf("particle state contains NaN or Inf")
	}
	return nil
}

// ProgressHealthCheck fails when no frame completed within maxStall.
type ProgressHealthCheck struct {
	lastFrame func() time.Time
	maxStall  time.Duration
	now       func() time.Time
}

// NewProgressHealthCheck creates a health check for frame loop stalls.
func NewProgressHealthCheck(lastFrame func() time.Time, maxStall time.Duration) *ProgressHealthCheck {
	return &ProgressHealthCheck{lastFrame: lastFrame, maxStall: maxStall, now: time.Now}
}

// Name returns the name of this health check.
func (c *ProgressHealthCheck) Name() string {
	return "progress"
}

// Check verifies that a frame completed recently.
func (c *ProgressHealthCheck) Check(ctx context.Context) error {
	last := c.lastFrame()
	if last.IsZero() {
		return fmt.Errorf("no frame advanced yet")
	}
	if stall := c.now().Sub(last); stall > c.maxStall {
		return fmt.Errorf("no frame advanced for %v (limit %v)", stall.Round(time.Millisecond), c.maxStall)
	}
	return nil
}
