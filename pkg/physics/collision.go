// pkg/physics/collision.go
package physics

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Touches reports whether two circles touch or overlap
func (c Circle) Touches(other Circle) bool {
	return c.Center.Distance(other.Center) <= c.Radius+other.Radius
}

// Body is the state a collision needs from a particle
type Body struct {
	Position Vector2D
	Velocity Vector2D
	Radius   float64
	Mass     float64
}

// Circle returns the collision shape of the body
func (b Body) Circle() Circle {
	return Circle{Center: b.Position, Radius: b.Radius}
}

// Bounds is an axis-aligned container rectangle. Top is the smaller y value.
type Bounds struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent
func (b Bounds) Width() float64 {
	return b.Right - b.Left
}

// Height returns the vertical extent
func (b Bounds) Height() float64 {
	return b.Bottom - b.Top
}

// Range returns the near and far wall coordinates for an axis
func (b Bounds) Range(axis Axis) (near, far float64) {
	if axis == XAxis {
		return b.Left, b.Right
	}
	return b.Top, b.Bottom
}

// Contains reports whether a circle lies entirely inside the bounds
func (b Bounds) Contains(c Circle) bool {
	return c.Center.X-c.Radius >= b.Left && c.Center.X+c.Radius <= b.Right &&
		c.Center.Y-c.Radius >= b.Top && c.Center.Y+c.Radius <= b.Bottom
}

// IsApproachingWall reports whether the body's leading edge has reached a wall
// on the given axis while its velocity still points into that wall. A body that
// overlaps a wall but already moves away from it is not colliding.
func IsApproachingWall(body Body, axis Axis, bounds Bounds) bool {
	near, far := bounds.Range(axis)
	pos := body.Position.Component(axis)
	vel := body.Velocity.Component(axis)

	atMin := pos-body.Radius <= near && vel < 0
	atMax := pos+body.Radius >= far && vel > 0
	return atMin || atMax
}

// ReflectOffWalls returns the body's velocity after elastic reflection off any
// walls it is moving into. Axes are handled independently, so a corner hit
// flips both components.
func ReflectOffWalls(body Body, bounds Bounds) (Vector2D, bool) {
	velocity := body.Velocity
	reflected := false

	for _, axis := range []Axis{XAxis, YAxis} {
		if IsApproachingWall(body, axis, bounds) {
			velocity = velocity.WithComponent(axis, -velocity.Component(axis))
			reflected = true
		}
	}

	return velocity, reflected
}

// AreColliding reports whether two bodies touch or overlap and are closing
// along the line between their centers
func AreColliding(a, b Body) bool {
	velocityDiff := a.Velocity.Sub(b.Velocity)
	positionDiff := a.Position.Sub(b.Position)

	if velocityDiff.Dot(positionDiff) >= 0 {
		return false
	}

	return a.Circle().Touches(b.Circle())
}

// VelocityAfterCollision returns the velocity of a after an elastic collision
// with b. Coincident centers divide by zero and yield NaN components; such a
// pair never passes AreColliding because its closing speed is zero.
func VelocityAfterCollision(a, b Body) Vector2D {
	velocityDiff := a.Velocity.Sub(b.Velocity)
	positionDiff := a.Position.Sub(b.Position)

	massScalar := 2 * b.Mass / (a.Mass + b.Mass)
	projection := velocityDiff.Dot(positionDiff) / positionDiff.LengthSquared()

	return a.Velocity.Sub(positionDiff.Scale(massScalar * projection))
}

// ResolveCollision returns the post-collision velocities of both bodies,
// each computed from the pre-collision state of the pair
func ResolveCollision(a, b Body) (Vector2D, Vector2D) {
	return VelocityAfterCollision(a, b), VelocityAfterCollision(b, a)
}
