// Package stats summarizes the speed distribution of a running simulation.
package stats

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/opd-ai/go-idealgas/pkg/engine"
	"github.com/opd-ai/go-idealgas/pkg/physics"
)

// Summary describes the speeds of one particle type
type Summary struct {
	Type   string
	Radius float64
	Mass   float64
	Count  int
	Mean   float64
	StdDev float64
	RMS    float64
	Max    float64
}

// Snapshot is the state of a container at one frame
type Snapshot struct {
	Frame         uint64
	Momentum      physics.Vector2D
	KineticEnergy float64
	Finite        bool
	Types         []Summary
}

// Summarize computes one Summary per group, keeping the group order.
// Empty groups summarize to zeros. StdDev is the sample standard deviation
// and is zero for a single particle.
func Summarize(groups []engine.TypeSpeeds) []Summary {
	summaries := make([]Summary, len(groups))
	for i, g := range groups {
		s := Summary{
			Type:   g.Specs.Name,
			Radius: g.Specs.Radius,
			Mass:   g.Specs.Mass,
			Count:  len(g.Speeds),
		}
		if s.Count > 0 {
			s.Mean = stat.Mean(g.Speeds, nil)
			s.Max = floats.Max(g.Speeds)
			s.RMS = math.Sqrt(floats.Dot(g.Speeds, g.Speeds) / float64(s.Count))
		}
		if s.Count > 1 {
			s.StdDev = stat.StdDev(g.Speeds, nil)
		}
		summaries[i] = s
	}
	return summaries
}

// Collect takes a Snapshot of c
func Collect(c *engine.Container) Snapshot {
	return Snapshot{
		Frame:         c.Frame(),
		Momentum:      c.TotalMomentum(),
		KineticEnergy: c.TotalKineticEnergy(),
		Finite:        c.IsFinite(),
		Types:         Summarize(c.SpeedsByType()),
	}
}

// LogValue renders the snapshot as a structured log group
func (s Snapshot) LogValue() slog.Value {
	types := make([]any, 0, len(s.Types))
	seen := make(map[string]int, len(s.Types))
	for _, t := range s.Types {
		types = append(types, slog.Group(groupKey(seen, t.Type),
			"radius", t.Radius,
			"mass", t.Mass,
			"count", t.Count,
			"mean", t.Mean,
			"stddev", t.StdDev,
			"rms", t.RMS,
			"max", t.Max,
		))
	}

	return slog.GroupValue(
		slog.Uint64("frame", s.Frame),
		slog.Float64("momentum_x", s.Momentum.X),
		slog.Float64("momentum_y", s.Momentum.Y),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Bool("finite", s.Finite),
		slog.Group("types", types...),
	)
}

// groupKey returns label, suffixed with #2, #3 and so on when an earlier type
// with a different radius or mass already used it
func groupKey(seen map[string]int, label string) string {
	seen[label]++
	if n := seen[label]; n > 1 {
		return fmt.Sprintf("%s#%d", label, n)
	}
	return label
}
