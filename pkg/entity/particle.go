// pkg/entity/particle.go
package entity

import (
	"github.com/opd-ai/go-idealgas/pkg/physics"
)

// Color holds red, green and blue intensities between 0 and 1
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// Specs describes a particle type: everything about a particle except its
// position and velocity
type Specs struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius"`
	Mass   float64 `json:"mass"`
	Color  Color   `json:"color"`
}

// SameType reports whether two specs share the label, radius and mass that
// identify a particle type. Color is not part of the key.
func (s Specs) SameType(other Specs) bool {
	return s.Name == other.Name && s.Radius == other.Radius && s.Mass == other.Mass
}

// Particle is a single gas particle. Radius and mass must be positive; they are
// checked once when particles are loaded, not on every frame.
type Particle struct {
	position physics.Vector2D
	velocity physics.Vector2D
	specs    Specs
}

// NewParticle creates a particle of the given type
func NewParticle(position, velocity physics.Vector2D, specs Specs) Particle {
	return Particle{
		position: position,
		velocity: velocity,
		specs:    specs,
	}
}

// UpdatePosition advances the particle by one frame of its current velocity
func (p *Particle) UpdatePosition() {
	p.position = p.position.Add(p.velocity)
}

// SetVelocity replaces the particle's velocity
func (p *Particle) SetVelocity(velocity physics.Vector2D) {
	p.velocity = velocity
}

func (p *Particle) GetVelocity() physics.Vector2D {
	return p.velocity
}

func (p *Particle) GetPosition() physics.Vector2D {
	return p.position
}

func (p *Particle) GetRadius() float64 {
	return p.specs.Radius
}

func (p *Particle) GetMass() float64 {
	return p.specs.Mass
}

func (p *Particle) GetTypeName() string {
	return p.specs.Name
}

func (p *Particle) GetColor() Color {
	return p.specs.Color
}

// GetSpecs returns the particle's type details
func (p *Particle) GetSpecs() Specs {
	return p.specs
}

// Speed returns the magnitude of the particle's velocity
func (p *Particle) Speed() float64 {
	return p.velocity.Length()
}

// Body returns the particle's state as seen by the collision code
func (p *Particle) Body() physics.Body {
	return physics.Body{
		Position: p.position,
		Velocity: p.velocity,
		Radius:   p.specs.Radius,
		Mass:     p.specs.Mass,
	}
}
