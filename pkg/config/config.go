// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gcfg.v1"

	"github.com/opd-ai/go-idealgas/pkg/engine"
	"github.com/opd-ai/go-idealgas/pkg/physics"
	"github.com/opd-ai/go-idealgas/pkg/validation"
)

// ErrInvalidConfig is wrapped by every error Validate returns
var ErrInvalidConfig = errors.New("invalid config")

// SimulationConfig contains configuration for a simulation run. It reads from
// JSON, or from gcfg (INI style) files with one section per field below.
type SimulationConfig struct {
	Container     ContainerConfig     `json:"container"`
	Simulation    RunConfig           `json:"simulation"`
	Files         FilesConfig         `json:"files"`
	Observability ObservabilityConfig `json:"observability"`
	Resources     ResourcesConfig     `json:"resources"`
}

// ContainerConfig describes the box the gas lives in
type ContainerConfig struct {
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
	Top       float64 `json:"top"`
	Bottom    float64 `json:"bottom"`
	WallColor string  `json:"wallColor"`
}

// RunConfig controls the frame loop
type RunConfig struct {
	FrameRate  int    `json:"frameRate"`
	Broadphase string `json:"broadphase"`
	MaxFrames  uint64 `json:"maxFrames"`
	Seed       uint64 `json:"seed"`
}

// FilesConfig names the scenario documents
type FilesConfig struct {
	StatePath     string `json:"statePath"`
	GeneratorPath string `json:"generatorPath"`
	LoadSaved     bool   `json:"loadSaved"`
	SaveOnExit    bool   `json:"saveOnExit"`
}

// ObservabilityConfig controls health endpoints and stat logging
type ObservabilityConfig struct {
	HealthPort    int    `json:"healthPort"`
	StatsInterval uint64 `json:"statsInterval"`
}

// ResourcesConfig limits the driver's goroutines and memory
type ResourcesConfig struct {
	MaxMemoryMB     int64 `json:"maxMemoryMB"`
	MaxGoroutines   int   `json:"maxGoroutines"`
	ShutdownTimeout int   `json:"shutdownTimeout"`
	CheckInterval   int   `json:"checkInterval"`
}

// Bounds returns the container bounds
func (c *SimulationConfig) Bounds() physics.Bounds {
	return physics.Bounds{
		Left:   c.Container.Left,
		Right:  c.Container.Right,
		Top:    c.Container.Top,
		Bottom: c.Container.Bottom,
	}
}

// ShutdownTimeout returns how long shutdown waits for goroutines
func (c *SimulationConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Resources.ShutdownTimeout) * time.Second
}

// ResourceCheckInterval returns the period between resource checks
func (c *SimulationConfig) ResourceCheckInterval() time.Duration {
	return time.Duration(c.Resources.CheckInterval) * time.Second
}

// Broadphase returns the configured pair gathering strategy
func (c *SimulationConfig) Broadphase() engine.Broadphase {
	return engine.Broadphase(c.Simulation.Broadphase)
}

// LoadConfig loads a configuration from a file. Files ending in .gcfg, .ini
// or .conf are read as gcfg, everything else as JSON. Fields missing from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (*SimulationConfig, error) {
	config := DefaultConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcfg", ".ini", ".conf":
		if err := gcfg.ReadFileInto(config, path); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveConfig saves a configuration to a file as JSON
func SaveConfig(config *SimulationConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the default simulation configuration
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Container: ContainerConfig{
			Left:      300,
			Right:     700,
			Top:       50,
			Bottom:    450,
			WallColor: "#FFFFFF",
		},
		Simulation: RunConfig{
			FrameRate:  60,
			Broadphase: string(engine.BroadphaseNone),
		},
		Files: FilesConfig{
			StatePath:     "saved_particles.json",
			GeneratorPath: "random_generation_parameters.json",
			LoadSaved:     false,
			SaveOnExit:    true,
		},
		Observability: ObservabilityConfig{
			HealthPort:    8080,
			StatsInterval: 60,
		},
		Resources: ResourcesConfig{
			MaxMemoryMB:     512,
			MaxGoroutines:   16,
			ShutdownTimeout: 10,
			CheckInterval:   10,
		},
	}
}

// Environment variables read by ApplyEnvironmentOverrides
const (
	EnvFrameRate     = "IDEALGAS_FRAME_RATE"
	EnvBroadphase    = "IDEALGAS_BROADPHASE"
	EnvMaxFrames     = "IDEALGAS_MAX_FRAMES"
	EnvSeed          = "IDEALGAS_SEED"
	EnvStatePath     = "IDEALGAS_STATE_PATH"
	EnvGeneratorPath = "IDEALGAS_GENERATOR_PATH"
	EnvLoadSaved     = "IDEALGAS_LOAD_SAVED"
	EnvSaveOnExit    = "IDEALGAS_SAVE_ON_EXIT"
	EnvHealthPort    = "IDEALGAS_HEALTH_PORT"
	EnvStatsInterval = "IDEALGAS_STATS_INTERVAL"
)

// ApplyEnvironmentOverrides replaces fields with values from IDEALGAS_*
// environment variables. Unset variables leave fields untouched.
func (c *SimulationConfig) ApplyEnvironmentOverrides() error {
	var err error

	if v := os.Getenv(EnvFrameRate); v != "" {
		if c.Simulation.FrameRate, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFrameRate, err)
		}
	}
	if v := os.Getenv(EnvBroadphase); v != "" {
		c.Simulation.Broadphase = strings.ToLower(v)
	}
	if v := os.Getenv(EnvMaxFrames); v != "" {
		if c.Simulation.MaxFrames, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxFrames, err)
		}
	}
	if v := os.Getenv(EnvSeed); v != "" {
		if c.Simulation.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSeed, err)
		}
	}
	if v := os.Getenv(EnvStatePath); v != "" {
		c.Files.StatePath = v
	}
	if v := os.Getenv(EnvGeneratorPath); v != "" {
		c.Files.GeneratorPath = v
	}
	if v := os.Getenv(EnvLoadSaved); v != "" {
		if c.Files.LoadSaved, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLoadSaved, err)
		}
	}
	if v := os.Getenv(EnvSaveOnExit); v != "" {
		if c.Files.SaveOnExit, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSaveOnExit, err)
		}
	}
	if v := os.Getenv(EnvHealthPort); v != "" {
		if c.Observability.HealthPort, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHealthPort, err)
		}
	}
	if v := os.Getenv(EnvStatsInterval); v != "" {
		if c.Observability.StatsInterval, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStatsInterval, err)
		}
	}

	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Validate checks that the configuration can drive a run
func (c *SimulationConfig) Validate() error {
	if err := validation.ValidateBounds(c.Bounds()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !hexColor.MatchString(c.Container.WallColor) {
		return fmt.Errorf("%w: wall color %q is not #RRGGBB", ErrInvalidConfig, c.Container.WallColor)
	}
	if c.Simulation.FrameRate <= 0 || c.Simulation.FrameRate > 1000 {
		return fmt.Errorf("%w: frame rate %d out of range [1, 1000]", ErrInvalidConfig, c.Simulation.FrameRate)
	}
	switch c.Broadphase() {
	case engine.BroadphaseNone, engine.BroadphaseQuadTree:
	default:
		return fmt.Errorf("%w: unknown broadphase %q", ErrInvalidConfig, c.Simulation.Broadphase)
	}
	if c.Files.LoadSaved && c.Files.StatePath == "" {
		return fmt.Errorf("%w: loadSaved requires statePath", ErrInvalidConfig)
	}
	if !c.Files.LoadSaved && c.Files.GeneratorPath == "" {
		return fmt.Errorf("%w: generatorPath is required unless loadSaved is set", ErrInvalidConfig)
	}
	if c.Files.SaveOnExit && c.Files.StatePath == "" {
		return fmt.Errorf("%w: saveOnExit requires statePath", ErrInvalidConfig)
	}
	if c.Observability.HealthPort < 0 || c.Observability.HealthPort > 65535 {
		return fmt.Errorf("%w: health port %d out of range", ErrInvalidConfig, c.Observability.HealthPort)
	}
	r := c.Resources
	if r.MaxMemoryMB <= 0 || r.MaxGoroutines <= 0 || r.ShutdownTimeout <= 0 || r.CheckInterval <= 0 {
		return fmt.Errorf("%w: resource limits must be positive, got %+v", ErrInvalidConfig, r)
	}
	return nil
}
