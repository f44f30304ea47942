// cmd/idealgas/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opd-ai/go-idealgas/pkg/config"
	"github.com/opd-ai/go-idealgas/pkg/health"
	"github.com/opd-ai/go-idealgas/pkg/logging"
	"github.com/opd-ai/go-idealgas/pkg/resource"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithRunID(context.Background(), "")

	configPath := flag.String("config", "idealgas.json", "Path to configuration file (.json, .gcfg, .ini)")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	frames := flag.Uint64("frames", 0, "Stop after this many frames (overrides config when set)")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return
	}

	cfg, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *frames > 0 {
		cfg.Simulation.MaxFrames = *frames
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	rng, seed := newRNG(cfg.Simulation.Seed)
	particles, err := loadParticles(cfg, rng)
	if err != nil {
		logger.Error(ctx, "Failed to load particles", err,
			"load_saved", cfg.Files.LoadSaved,
			"state_path", cfg.Files.StatePath,
			"generator_path", cfg.Files.GeneratorPath,
		)
		os.Exit(1)
	}
	logger.Info(ctx, "Particles loaded",
		"count", len(particles),
		"seed", seed,
		"broadphase", cfg.Simulation.Broadphase,
	)

	r := newRunner(ctx, cfg, logger, particles)

	manager := resource.NewManager(resource.Limits{
		MaxMemoryMB:     cfg.Resources.MaxMemoryMB,
		MaxGoroutines:   int64(cfg.Resources.MaxGoroutines),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		CheckInterval:   cfg.ResourceCheckInterval(),
	}, logger)
	if err := manager.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	var healthServer *http.Server
	if cfg.Observability.HealthPort > 0 {
		healthServer = startHealthServer(ctx, logger, manager, cfg, r.status)
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	frameInterval := time.Second / time.Duration(cfg.Simulation.FrameRate)
	err = manager.Go(loopCtx, "frame-loop", func(ctx context.Context) {
		defer close(loopDone)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		r.run(ctx, ticker.C)
	})
	if err != nil {
		logger.Error(ctx, "Failed to start frame loop", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info(ctx, "Received signal, shutting down", "signal", sig.String())
	case <-loopDone:
		logger.Info(ctx, "Frame limit reached, shutting down", "frames", cfg.Simulation.MaxFrames)
	}

	stopLoop()
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if healthServer != nil {
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Health check server shutdown failed", err)
		}
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Resource manager shutdown failed", err)
	}

	if cfg.Files.SaveOnExit {
		if err := r.save(); err != nil {
			logger.Error(ctx, "Failed to save particles", err, "state_path", cfg.Files.StatePath)
			os.Exit(1)
		}
	}
}

// loadConfig reads path, falling back to defaults when it does not exist,
// then applies environment overrides
func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.SimulationConfig, error) {
	var cfg *config.SimulationConfig

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration", "config_path", path)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func startHealthServer(ctx context.Context, logger *logging.Logger, manager *resource.Manager, cfg *config.SimulationConfig, status *health.Status) *http.Server {
	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewSimulationHealthCheck(status.Running))
	checker.AddCheck(health.NewFiniteStateHealthCheck(status.Finite))
	// allow a generous number of missed ticks before calling the loop stalled
	checker.AddCheck(health.NewProgressHealthCheck(status.LastFrame,
		max(time.Second, 30*time.Second/time.Duration(cfg.Simulation.FrameRate))))
	checker.AddCheck(resource.NewHealthCheck(manager))

	port := strconv.Itoa(cfg.Observability.HealthPort)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      health.NewServeMux(checker),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	err := manager.Go(ctx, "health-server", func(ctx context.Context) {
		logger.Info(ctx, "Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Health check server failed", err)
		}
	})
	if err != nil {
		logger.Error(ctx, "Failed to start health check server", err)
		return nil
	}
	return server
}
