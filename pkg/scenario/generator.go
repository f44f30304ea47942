package scenario

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/physics"
	"github.com/opd-ai/go-idealgas/pkg/validation"
)

type particleCount struct {
	Type        string   `json:"type"`
	Count       *int     `json:"count"`
	MaxVelocity *float64 `json:"max_velocity"`
}

type generatorDocument struct {
	ParticleTypes  map[string]typeDetails `json:"particle_types"`
	ParticleCounts []particleCount        `json:"particle_counts"`
}

// Generate reads a generator document and creates the requested particles.
// Velocity components are uniform in [-max_velocity, max_velocity] and
// centers are uniform over the area where the particle fits inside bounds.
func Generate(r io.Reader, bounds physics.Bounds, rng *rand.Rand) ([]entity.Particle, error) {
	if err := validation.ValidateBounds(bounds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	var doc generatorDocument
	if err := readDocument(r, &doc); err != nil {
		return nil, err
	}

	types, err := resolveTypes(doc.ParticleTypes)
	if err != nil {
		return nil, err
	}
	if doc.ParticleCounts == nil {
		return nil, invalidf("missing particle_counts section")
	}

	total := 0
	for i, pc := range doc.ParticleCounts {
		specs, ok := types[pc.Type]
		if !ok {
			return nil, invalidf("particle_counts[%d] has unknown type %q", i, pc.Type)
		}
		if pc.Count == nil || pc.MaxVelocity == nil {
			return nil, invalidf("particle_counts[%d] is missing count or max_velocity", i)
		}
		if err := validation.ValidateParticleCount(*pc.Count); err != nil {
			return nil, fmt.Errorf("%w: particle_counts[%d]: %w", ErrInvalidScenario, i, err)
		}
		if err := validation.ValidateMaxVelocity(*pc.MaxVelocity); err != nil {
			return nil, fmt.Errorf("%w: particle_counts[%d]: %w", ErrInvalidScenario, i, err)
		}
		if 2*specs.Radius > bounds.Width() || 2*specs.Radius > bounds.Height() {
			return nil, invalidf("type %q does not fit inside the container", pc.Type)
		}
		total += *pc.Count
	}
	if err := validation.ValidateParticleCount(total); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	particles := make([]entity.Particle, 0, total)
	for _, pc := range doc.ParticleCounts {
		specs := types[pc.Type]
		for n := 0; n < *pc.Count; n++ {
			particles = append(particles, randomParticle(rng, bounds, *pc.MaxVelocity, specs))
		}
	}

	if err := validation.ValidatePlacement(particles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	return particles, nil
}

// GenerateFile reads a generator document from path
func GenerateFile(path string, bounds physics.Bounds, rng *rand.Rand) ([]entity.Particle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open generator file %s: %w", path, err)
	}
	defer file.Close()

	particles, err := Generate(file, bounds, rng)
	if err != nil {
		return nil, fmt.Errorf("generator file %s: %w", path, err)
	}
	return particles, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func randomParticle(rng *rand.Rand, bounds physics.Bounds, maxVelocity float64, specs entity.Specs) entity.Particle {
	r := specs.Radius
	position := physics.Vector2D{
		X: uniform(rng, bounds.Left+r, bounds.Right-r),
		Y: uniform(rng, bounds.Top+r, bounds.Bottom-r),
	}
	velocity := physics.Vector2D{
		X: uniform(rng, -maxVelocity, maxVelocity),
		Y: uniform(rng, -maxVelocity, maxVelocity),
	}
	return entity.NewParticle(position, velocity, specs)
}
