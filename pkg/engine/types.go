// pkg/engine/types.go
package engine

import (
	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/physics"
)

// TypeSpeeds groups the current speeds of every particle of one type
type TypeSpeeds struct {
	Specs  entity.Specs
	Speeds []float64
}

// FindUniqueParticleTypes returns each distinct particle type in the order it
// first appears. Types are told apart by label, radius and mass; when several
// particles share a type, the first one's specs (including color) are kept.
func (c *Container) FindUniqueParticleTypes() []entity.Specs {
	var unique []entity.Specs

	for i := range c.particles {
		specs := c.particles[i].GetSpecs()
		if indexOfType(unique, specs) < 0 {
			unique = append(unique, specs)
		}
	}

	return unique
}

// SpeedsByType returns the speeds of all particles grouped by type, with groups
// in the same order as FindUniqueParticleTypes
func (c *Container) SpeedsByType() []TypeSpeeds {
	types := c.FindUniqueParticleTypes()
	groups := make([]TypeSpeeds, len(types))
	for i, specs := range types {
		groups[i].Specs = specs
	}

	for i := range c.particles {
		idx := indexOfType(types, c.particles[i].GetSpecs())
		groups[idx].Speeds = append(groups[idx].Speeds, c.particles[i].Speed())
	}

	return groups
}

func indexOfType(types []entity.Specs, specs entity.Specs) int {
	for i, t := range types {
		if t.SameType(specs) {
			return i
		}
	}
	return -1
}

// TotalMomentum returns the sum of mass times velocity over all particles
func (c *Container) TotalMomentum() physics.Vector2D {
	var total physics.Vector2D
	for i := range c.particles {
		total = total.Add(c.particles[i].GetVelocity().Scale(c.particles[i].GetMass()))
	}
	return total
}

// TotalKineticEnergy returns the sum of half mass times speed squared
func (c *Container) TotalKineticEnergy() float64 {
	total := 0.0
	for i := range c.particles {
		total += 0.5 * c.particles[i].GetMass() * c.particles[i].GetVelocity().LengthSquared()
	}
	return total
}

// IsFinite reports whether every position and velocity is a real number. A
// NaN or Inf in any particle spreads to its collision partners in later frames.
func (c *Container) IsFinite() bool {
	for i := range c.particles {
		if !c.particles[i].GetPosition().IsFinite() || !c.particles[i].GetVelocity().IsFinite() {
			return false
		}
	}
	return true
}
