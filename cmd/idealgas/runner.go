// cmd/idealgas/runner.go
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/opd-ai/go-idealgas/pkg/config"
	"github.com/opd-ai/go-idealgas/pkg/engine"
	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/event"
	"github.com/opd-ai/go-idealgas/pkg/health"
	"github.com/opd-ai/go-idealgas/pkg/logging"
	"github.com/opd-ai/go-idealgas/pkg/scenario"
	"github.com/opd-ai/go-idealgas/pkg/stats"
)

// loadParticles reads the saved state or generates a random one
func loadParticles(cfg *config.SimulationConfig, rng *rand.Rand) ([]entity.Particle, error) {
	if cfg.Files.LoadSaved {
		return scenario.LoadFile(cfg.Files.StatePath)
	}
	return scenario.GenerateFile(cfg.Files.GeneratorPath, cfg.Bounds(), rng)
}

// newRNG seeds a generator, using the clock when seed is 0
func newRNG(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}

// runner owns the container and drives it from a single goroutine
type runner struct {
	cfg       *config.SimulationConfig
	logger    *logging.Logger
	logCtx    context.Context
	bus       *event.Bus
	container *engine.Container
	status    *health.Status

	// collisions since the last stats entry
	wallHits     int
	particleHits int
}

func newRunner(ctx context.Context, cfg *config.SimulationConfig, logger *logging.Logger, particles []entity.Particle) *runner {
	r := &runner{
		cfg:    cfg,
		logger: logger,
		logCtx: ctx,
		bus:    event.NewEventBus(),
		status: health.NewStatus(),
	}
	r.container = engine.NewContainer(particles, cfg.Bounds(),
		engine.WithEventBus(r.bus),
		engine.WithBroadphase(cfg.Broadphase()),
	)

	r.bus.Subscribe(event.FrameAdvanced, r.countCollisions)
	for _, t := range []event.Type{event.SimulationStarted, event.SimulationStopped, event.StateSaved} {
		r.bus.Subscribe(t, r.logLifecycle)
	}
	return r
}

func (r *runner) countCollisions(e event.Event) {
	if fe, ok := e.(*event.FrameEvent); ok {
		r.wallHits += fe.WallCollisions
		r.particleHits += fe.ParticleCollisions
	}
}

func (r *runner) logLifecycle(e event.Event) {
	if fe, ok := e.(*event.FrameEvent); ok {
		r.logger.Info(r.logCtx, "Simulation lifecycle",
			"event", string(fe.GetType()),
			"frame", fe.Frame,
			"particles", r.container.Len(),
		)
	}
}

// run advances one frame per tick until ctx is done or the frame limit is hit
func (r *runner) run(ctx context.Context, ticks <-chan time.Time) {
	r.status.SetRunning(true)
	r.bus.Publish(event.NewFrameEvent(event.SimulationStarted, r, r.container.Frame(), 0, 0))
	defer func() {
		r.status.SetRunning(false)
		r.bus.Publish(event.NewFrameEvent(event.SimulationStopped, r, r.container.Frame(), 0, 0))
	}()

	warned := false
	for {
		if limit := r.cfg.Simulation.MaxFrames; limit > 0 && r.container.Frame() >= limit {
			return
		}

		select {
		case <-ctx.Done():
			return
		case now := <-ticks:
			r.container.AdvanceOneFrame()
			frame := r.container.Frame()
			finite := r.container.IsFinite()
			r.status.RecordFrame(frame, finite, now)

			if !finite && !warned {
				r.logger.Warn(r.logCtx, "Particle state is no longer finite", "frame", frame)
				warned = true
			}
			if interval := r.cfg.Observability.StatsInterval; interval > 0 && frame%interval == 0 {
				r.logStats()
			}
		}
	}
}

func (r *runner) logStats() {
	r.logger.Info(r.logCtx, "Simulation statistics",
		"snapshot", stats.Collect(r.container),
		"wall_collisions", r.wallHits,
		"particle_collisions", r.particleHits,
	)
	r.wallHits, r.particleHits = 0, 0
}

// save writes the current particles to the configured state path
func (r *runner) save() error {
	if err := scenario.SaveFile(r.cfg.Files.StatePath, r.container.Particles()); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	r.bus.Publish(event.NewFrameEvent(event.StateSaved, r, r.container.Frame(), 0, 0))
	return nil
}
