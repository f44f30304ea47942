// pkg/engine/container.go
package engine

import (
	"slices"

	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/event"
	"github.com/opd-ai/go-idealgas/pkg/physics"
)

// Broadphase selects how candidate particle pairs are gathered each frame
type Broadphase string

const (
	// BroadphaseNone tests every pair i < j
	BroadphaseNone Broadphase = "none"
	// BroadphaseQuadTree tests only pairs close enough to touch. It visits
	// pairs in the same order as BroadphaseNone, so results are identical.
	BroadphaseQuadTree Broadphase = "quadtree"
)

// quadTreeCapacity is the number of particles per quad before subdivision
const quadTreeCapacity = 8

// Option configures a Container
type Option func(*Container)

// WithEventBus publishes collision and frame events to bus
func WithEventBus(bus *event.Bus) Option {
	return func(c *Container) {
		c.bus = bus
	}
}

// WithBroadphase selects the pair gathering strategy
func WithBroadphase(b Broadphase) Option {
	return func(c *Container) {
		c.broadphase = b
	}
}

// Container is the box holding the gas. It owns its particles exclusively and
// advances them one frame at a time. It is not safe for concurrent use.
type Container struct {
	particles  []entity.Particle
	bounds     physics.Bounds
	broadphase Broadphase
	bus        *event.Bus
	frame      uint64
}

// NewContainer creates a container holding a copy of particles in their given
// order. The population is fixed for the container's lifetime.
func NewContainer(particles []entity.Particle, bounds physics.Bounds, opts ...Option) *Container {
	c := &Container{
		particles:  slices.Clone(particles),
		bounds:     bounds,
		broadphase: BroadphaseNone,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AdvanceOneFrame moves the simulation one step forward. Walls are resolved
// first, then particle pairs, then every particle moves by its new velocity.
//
// Pairs are resolved one after another in index order, each using velocities
// as already updated earlier in the same frame. When three or more particles
// touch in one frame the outcome therefore depends on their order.
func (c *Container) AdvanceOneFrame() {
	c.frame++

	wallHits := c.handleParticleWallInteractions()

	var particleHits int
	if c.broadphase == BroadphaseQuadTree {
		particleHits = c.handleIndexedParticleInteractions()
	} else {
		particleHits = c.handleMultiParticleInteractions()
	}

	for i := range c.particles {
		c.particles[i].UpdatePosition()
	}

	if c.publishes(event.FrameAdvanced) {
		c.bus.Publish(event.NewFrameEvent(event.FrameAdvanced, c, c.frame, wallHits, particleHits))
	}
}

func (c *Container) handleParticleWallInteractions() int {
	hits := 0
	notify := c.publishes(event.WallCollision)

	for i := range c.particles {
		velocity, reflected := physics.ReflectOffWalls(c.particles[i].Body(), c.bounds)
		if !reflected {
			continue
		}

		c.particles[i].SetVelocity(velocity)
		hits++
		if notify {
			c.bus.Publish(event.NewWallCollisionEvent(c, c.frame, i))
		}
	}

	return hits
}

func (c *Container) handleMultiParticleInteractions() int {
	hits := 0
	n := len(c.particles)

	for i := 0; i < n; i++ {
		// Pairs with lower indices were already checked
		for j := i + 1; j < n; j++ {
			if c.collide(i, j) {
				hits++
			}
		}
	}

	return hits
}

// handleIndexedParticleInteractions narrows each particle's partners with a
// quadtree. Positions do not change while pairs are resolved, so the tree
// built at the start stays valid for the whole pass.
//
// Particles with a non-finite position are left out of the tree; their
// distance to any partner is NaN or Inf, so they never touch anything. If a
// finite position cannot be indexed the pass falls back to the full scan.
func (c *Container) handleIndexedParticleInteractions() int {
	if len(c.particles) < 2 {
		return 0
	}

	points := make([]physics.Vector2D, len(c.particles))
	maxRadius := 0.0
	for i := range c.particles {
		points[i] = c.particles[i].GetPosition()
		maxRadius = max(maxRadius, c.particles[i].GetRadius())
	}

	tree := physics.NewQuadTree(physics.BoundingRect(points, maxRadius+1), quadTreeCapacity)
	for i, p := range points {
		if !p.IsFinite() {
			continue
		}
		if !tree.Insert(p, i) {
			return c.handleMultiParticleInteractions()
		}
	}

	hits := 0
	var candidates []int
	for i := range c.particles {
		if !points[i].IsFinite() {
			continue
		}
		reach := c.particles[i].GetRadius() + maxRadius + 1
		area := physics.Rect{Center: points[i], Width: 2 * reach, Height: 2 * reach}

		candidates = tree.Query(area, candidates[:0])
		slices.Sort(candidates)

		for _, j := range candidates {
			if j <= i {
				continue
			}
			if c.collide(i, j) {
				hits++
			}
		}
	}

	return hits
}

// collide resolves the pair (i, j) if it is colliding and reports whether it was
func (c *Container) collide(i, j int) bool {
	a := c.particles[i].Body()
	b := c.particles[j].Body()

	if !physics.AreColliding(a, b) {
		return false
	}

	va, vb := physics.ResolveCollision(a, b)
	c.particles[i].SetVelocity(va)
	c.particles[j].SetVelocity(vb)

	if c.publishes(event.ParticleCollision) {
		c.bus.Publish(event.NewParticleCollisionEvent(c, c.frame, i, j))
	}
	return true
}

func (c *Container) publishes(eventType event.Type) bool {
	return c.bus != nil && c.bus.HasSubscribers(eventType)
}

// Particles returns a copy of the particles in container order
func (c *Container) Particles() []entity.Particle {
	return slices.Clone(c.particles)
}

// Len returns the number of particles
func (c *Container) Len() int {
	return len(c.particles)
}

// Bounds returns the container walls
func (c *Container) Bounds() physics.Bounds {
	return c.bounds
}

// Frame returns the number of frames advanced so far
func (c *Container) Frame() uint64 {
	return c.frame
}
