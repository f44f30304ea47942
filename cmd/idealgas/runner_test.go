package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-idealgas/pkg/config"
	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/logging"
	"github.com/opd-ai/go-idealgas/pkg/physics"
	"github.com/opd-ai/go-idealgas/pkg/scenario"
)

const generatorDoc = `{
    "particle_types": {"gas": {"radius": 3, "mass": 1, "red": 0.2, "green": 0.4, "blue": 0.6}},
    "particle_counts": [{"type": "gas", "count": 40, "max_velocity": 2}]
}`

func testConfig(t *testing.T) *config.SimulationConfig {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Files.GeneratorPath = filepath.Join(dir, "generator.json")
	cfg.Files.StatePath = filepath.Join(dir, "saved.json")
	cfg.Observability.StatsInterval = 5
	require.NoError(t, os.WriteFile(cfg.Files.GeneratorPath, []byte(generatorDoc), 0o644))
	return cfg
}

func testRunner(t *testing.T, cfg *config.SimulationConfig) (*runner, *bytes.Buffer) {
	t.Helper()
	t.Setenv(logging.LevelEnv, "INFO")

	rng, _ := newRNG(11)
	particles, err := loadParticles(cfg, rng)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := logging.NewLoggerTo(&buf)
	ctx := logging.WithRunID(context.Background(), "test-run")
	return newRunner(ctx, cfg, logger, particles), &buf
}

// feed returns a channel preloaded with n ticks
func feed(n int) <-chan time.Time {
	ticks := make(chan time.Time, n)
	for i := 0; i < n; i++ {
		ticks <- time.Now()
	}
	return ticks
}

func TestRunnerStopsAtFrameLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.MaxFrames = 20
	r, buf := testRunner(t, cfg)

	energy := r.container.TotalKineticEnergy()
	r.run(context.Background(), feed(50))

	assert.Equal(t, uint64(20), r.container.Frame())
	assert.Equal(t, uint64(20), r.status.Frame())
	assert.False(t, r.status.Running())
	assert.True(t, r.status.Finite())
	assert.InEpsilon(t, energy, r.container.TotalKineticEnergy(), 1e-9)

	out := buf.String()
	assert.Equal(t, 4, strings.Count(out, "Simulation statistics"))
	assert.Contains(t, out, `"event":"simulation_started"`)
	assert.Contains(t, out, `"event":"simulation_stopped"`)
	assert.Contains(t, out, `"run_id":"test-run"`)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	r, _ := testRunner(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		r.run(ctx, ticks)
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	assert.Equal(t, uint64(2), r.container.Frame())
	assert.False(t, r.status.Running())
}

func TestRunnerWarnsOnNonFiniteState(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.MaxFrames = 3
	cfg.Observability.StatsInterval = 0

	t.Setenv(logging.LevelEnv, "INFO")
	var buf bytes.Buffer
	specs := entity.Specs{Name: "gas", Radius: 1, Mass: 1}
	particles := []entity.Particle{
		entity.NewParticle(physics.Vector2D{X: 400, Y: 200}, physics.Vector2D{X: math.Inf(1), Y: 0}, specs),
	}
	r := newRunner(context.Background(), cfg, logging.NewLoggerTo(&buf), particles)
	r.run(context.Background(), feed(3))

	assert.False(t, r.status.Finite())
	assert.Equal(t, 1, strings.Count(buf.String(), "Particle state is no longer finite"))
}

func TestRunnerSaveRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.MaxFrames = 10
	r, buf := testRunner(t, cfg)
	r.run(context.Background(), feed(10))

	require.NoError(t, r.save())
	assert.Contains(t, buf.String(), `"event":"state_saved"`)

	saved, err := scenario.LoadFile(cfg.Files.StatePath)
	require.NoError(t, err)
	assert.Equal(t, r.container.Particles(), saved)

	cfg.Files.LoadSaved = true
	loaded, err := loadParticles(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadParticlesMissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Files.LoadSaved = true

	_, err := loadParticles(cfg, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRNG(t *testing.T) {
	a, seedA := newRNG(5)
	b, seedB := newRNG(5)
	assert.Equal(t, uint64(5), seedA)
	assert.Equal(t, seedA, seedB)
	assert.Equal(t, a.Uint64(), b.Uint64())

	_, clockSeed := newRNG(0)
	assert.NotZero(t, clockSeed)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv(config.EnvFrameRate, "30")
	t.Setenv(logging.LevelEnv, "INFO")
	var buf bytes.Buffer
	logger := logging.NewLoggerTo(&buf)

	cfg, err := loadConfig(context.Background(), logger, filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Simulation.FrameRate)
	assert.Equal(t, config.DefaultConfig().Bounds(), cfg.Bounds())
	assert.Contains(t, buf.String(), "using default configuration")
}
