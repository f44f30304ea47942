// Package scenario reads and writes the JSON documents that seed a simulation:
// saved particle states and random generator settings.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/physics"
	"github.com/opd-ai/go-idealgas/pkg/validation"
)

// ErrInvalidScenario is wrapped by every schema or content error
var ErrInvalidScenario = errors.New("invalid scenario")

// vec2 is a 2D vector stored as a JSON array. Missing components read as 0.
type vec2 physics.Vector2D

func (v vec2) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{v.X, v.Y})
}

func (v *vec2) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	*v = vec2{}
	if len(values) > 0 {
		v.X = values[0]
	}
	if len(values) > 1 {
		v.Y = values[1]
	}
	return nil
}

// typeDetails uses pointers so missing fields can be told apart from zeros
type typeDetails struct {
	Radius *float64 `json:"radius"`
	Mass   *float64 `json:"mass"`
	Red    *float64 `json:"red"`
	Green  *float64 `json:"green"`
	Blue   *float64 `json:"blue"`
}

type particleState struct {
	Type     string `json:"type"`
	Position *vec2  `json:"position"`
	Velocity *vec2  `json:"velocity"`
}

type savedDocument struct {
	ParticleTypes  map[string]typeDetails `json:"particle_types"`
	ParticleStates []particleState        `json:"particle_states"`
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

// readDocument reads and decodes a size-limited JSON document into dst
func readDocument(r io.Reader, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r, validation.MaxDocumentSize+1))
	if err != nil {
		return fmt.Errorf("failed to read scenario: %w", err)
	}
	if err := validation.ValidateDocument(data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// resolveTypes validates every type definition and returns them keyed by name
func resolveTypes(raw map[string]typeDetails) (map[string]entity.Specs, error) {
	if raw == nil {
		return nil, invalidf("missing particle_types section")
	}

	types := make(map[string]entity.Specs, len(raw))
	for name, details := range raw {
		label, err := validation.ValidateTypeName(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		if label != name {
			return nil, invalidf("type name %q has surrounding whitespace", name)
		}

		fields := []struct {
			key   string
			value *float64
		}{
			{"radius", details.Radius},
			{"mass", details.Mass},
			{"red", details.Red},
			{"green", details.Green},
			{"blue", details.Blue},
		}
		for _, f := range fields {
			if f.value == nil {
				return nil, invalidf("type %q is missing %q", name, f.key)
			}
		}

		specs := entity.Specs{
			Name:   name,
			Radius: *details.Radius,
			Mass:   *details.Mass,
			Color: entity.Color{
				Red:   *details.Red,
				Green: *details.Green,
				Blue:  *details.Blue,
			},
		}
		if err := validation.ValidateSpecs(specs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		types[name] = specs
	}

	return types, nil
}

// Load reads a saved state document and returns its particles in document order
func Load(r io.Reader) ([]entity.Particle, error) {
	var doc savedDocument
	if err := readDocument(r, &doc); err != nil {
		return nil, err
	}

	types, err := resolveTypes(doc.ParticleTypes)
	if err != nil {
		return nil, err
	}
	if doc.ParticleStates == nil {
		return nil, invalidf("missing particle_states section")
	}

	particles := make([]entity.Particle, 0, len(doc.ParticleStates))
	for i, state := range doc.ParticleStates {
		specs, ok := types[state.Type]
		if !ok {
			return nil, invalidf("particle %d has unknown type %q", i, state.Type)
		}
		if state.Position == nil || state.Velocity == nil {
			return nil, invalidf("particle %d is missing position or velocity", i)
		}

		position := physics.Vector2D(*state.Position)
		velocity := physics.Vector2D(*state.Velocity)
		if err := validation.ValidateVector("position", position); err != nil {
			return nil, fmt.Errorf("%w: particle %d: %w", ErrInvalidScenario, i, err)
		}
		if err := validation.ValidateVector("velocity", velocity); err != nil {
			return nil, fmt.Errorf("%w: particle %d: %w", ErrInvalidScenario, i, err)
		}

		particles = append(particles, entity.NewParticle(position, velocity, specs))
	}

	if err := validation.ValidatePlacement(particles); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	return particles, nil
}

// LoadFile reads a saved state document from path
func LoadFile(path string) ([]entity.Particle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file %s: %w", path, err)
	}
	defer file.Close()

	particles, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	return particles, nil
}

// encode builds a saved state document. Each type is described by the first
// particle carrying its name. Two particles whose names match but whose radius
// or mass differ cannot share one type entry and are rejected.
func encode(particles []entity.Particle) ([]byte, error) {
	doc := savedDocument{
		ParticleTypes:  make(map[string]typeDetails),
		ParticleStates: make([]particleState, 0, len(particles)),
	}
	first := make(map[string]entity.Specs)

	for i := range particles {
		p := &particles[i]
		name := p.GetTypeName()
		specs := p.GetSpecs()

		if prev, ok := first[name]; !ok {
			first[name] = specs
			doc.ParticleTypes[name] = typeDetails{
				Radius: &specs.Radius,
				Mass:   &specs.Mass,
				Red:    &specs.Color.Red,
				Green:  &specs.Color.Green,
				Blue:   &specs.Color.Blue,
			}
		} else if !prev.SameType(specs) {
			return nil, invalidf("particle %d: type %q has radius %v and mass %v, but an earlier particle of that name has radius %v and mass %v",
				i, name, specs.Radius, specs.Mass, prev.Radius, prev.Mass)
		}

		position := vec2(p.GetPosition())
		velocity := vec2(p.GetVelocity())
		doc.ParticleStates = append(doc.ParticleStates, particleState{
			Type:     name,
			Position: &position,
			Velocity: &velocity,
		})
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes particles as a saved state document
func Save(w io.Writer, particles []entity.Particle) error {
	data, err := encode(particles)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	return nil
}

// SaveFile writes particles as a saved state document at path. An existing
// file is left untouched when the particles cannot be encoded.
func SaveFile(path string, particles []entity.Particle) error {
	data, err := encode(particles)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scenario file %s: %w", path, err)
	}
	return nil
}
