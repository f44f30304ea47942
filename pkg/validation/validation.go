// Package validation checks the construction-time contract of a simulation:
// particle types, placements and container bounds. The physics engine assumes
// these checks passed and never re-validates during a run.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/physics"
)

// Document and content limits
const (
	MaxDocumentSize  = 16 * 1024 * 1024
	MaxTypeNameLen   = 32
	MaxParticleCount = 100000
)

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid argument")

// Alphanumeric plus spaces, hyphens, underscores and dots
var validTypeNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.]+$`)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidateDocument checks a raw JSON document against size and format constraints
func ValidateDocument(data []byte) error {
	if len(data) > MaxDocumentSize {
		return invalidf("document too large: %d bytes (max %d)", len(data), MaxDocumentSize)
	}
	if !json.Valid(data) {
		return invalidf("invalid JSON format")
	}
	return nil
}

// ValidateTypeName validates and trims a particle type label
func ValidateTypeName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", invalidf("type name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", invalidf("type name cannot be empty")
	}
	if len(trimmed) > MaxTypeNameLen {
		return "", invalidf("type name too long: %d characters (max %d)", len(trimmed), MaxTypeNameLen)
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", invalidf("type name contains control characters")
		}
	}

	if !validTypeNameChars.MatchString(trimmed) {
		return "", invalidf("type name %q contains invalid characters", trimmed)
	}

	return trimmed, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ValidateSpecs checks that a particle type has a positive radius and mass and
// color intensities between 0 and 1
func ValidateSpecs(specs entity.Specs) error {
	if !isFinite(specs.Radius) || specs.Radius <= 0 {
		return invalidf("type %q: radius must be positive, got %v", specs.Name, specs.Radius)
	}
	if !isFinite(specs.Mass) || specs.Mass <= 0 {
		return invalidf("type %q: mass must be positive, got %v", specs.Name, specs.Mass)
	}

	channels := []struct {
		name  string
		value float64
	}{
		{"red", specs.Color.Red},
		{"green", specs.Color.Green},
		{"blue", specs.Color.Blue},
	}
	for _, ch := range channels {
		if !isFinite(ch.value) || ch.value < 0 || ch.value > 1 {
			return invalidf("type %q: %s intensity must be between 0 and 1, got %v", specs.Name, ch.name, ch.value)
		}
	}

	return nil
}

// ValidateVector checks that both components of v are finite
func ValidateVector(field string, v physics.Vector2D) error {
	if !v.IsFinite() {
		return invalidf("%s must be finite, got %v", field, v)
	}
	return nil
}

// ValidateBounds checks that the container has a positive width and height
func ValidateBounds(bounds physics.Bounds) error {
	for _, x := range []float64{bounds.Left, bounds.Right, bounds.Top, bounds.Bottom} {
		if !isFinite(x) {
			return invalidf("bounds must be finite, got %+v", bounds)
		}
	}
	if bounds.Right <= bounds.Left {
		return invalidf("right bound %v must be greater than left bound %v", bounds.Right, bounds.Left)
	}
	if bounds.Bottom <= bounds.Top {
		return invalidf("bottom bound %v must be greater than top bound %v", bounds.Bottom, bounds.Top)
	}
	return nil
}

// ValidateParticleCount checks a requested number of particles
func ValidateParticleCount(count int) error {
	if count < 0 {
		return invalidf("particle count cannot be negative: %d", count)
	}
	if count > MaxParticleCount {
		return invalidf("particle count too large: %d (max %d)", count, MaxParticleCount)
	}
	return nil
}

// ValidateMaxVelocity checks the speed limit used when generating particles
func ValidateMaxVelocity(maxVelocity float64) error {
	if !isFinite(maxVelocity) || maxVelocity < 0 {
		return invalidf("max velocity must be a non-negative number, got %v", maxVelocity)
	}
	return nil
}

// ValidatePlacement rejects particles that share a center. The collision
// formula divides by the squared center distance, so coincident centers are
// excluded before a run starts.
func ValidatePlacement(particles []entity.Particle) error {
	seen := make(map[physics.Vector2D]int, len(particles))
	for i := range particles {
		pos := particles[i].GetPosition()
		if j, ok := seen[pos]; ok {
			return invalidf("particles %d and %d share center %v", j, i, pos)
		}
		seen[pos] = i
	}
	return nil
}
