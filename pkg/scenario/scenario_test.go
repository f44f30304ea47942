package scenario

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-idealgas/pkg/entity"
	"github.com/opd-ai/go-idealgas/pkg/physics"
)

const savedState = `{
    "particle_types": {
        "helium": {"radius": 2, "mass": 4, "red": 1, "green": 0.5, "blue": 0},
        "argon":  {"radius": 5, "mass": 40, "red": 0, "green": 0, "blue": 1}
    },
    "particle_states": [
        {"type": "helium", "position": [350, 350], "velocity": [1, -2]},
        {"type": "argon",  "position": [400, 100], "velocity": [0.5]},
        {"type": "helium", "position": [320, 60],  "velocity": []}
    ]
}`

var box = physics.Bounds{Left: 300, Right: 700, Top: 50, Bottom: 450}

func TestLoad(t *testing.T) {
	particles, err := Load(strings.NewReader(savedState))
	require.NoError(t, err)
	require.Len(t, particles, 3)

	first := &particles[0]
	assert.Equal(t, "helium", first.GetTypeName())
	assert.Equal(t, physics.Vector2D{X: 350, Y: 350}, first.GetPosition())
	assert.Equal(t, physics.Vector2D{X: 1, Y: -2}, first.GetVelocity())
	assert.Equal(t, 2.0, first.GetRadius())
	assert.Equal(t, 4.0, first.GetMass())
	assert.Equal(t, entity.Color{Red: 1, Green: 0.5, Blue: 0}, first.GetColor())

	// missing vector components read as zero
	assert.Equal(t, physics.Vector2D{X: 0.5, Y: 0}, particles[1].GetVelocity())
	assert.Equal(t, physics.Vector2D{}, particles[2].GetVelocity())
	assert.Equal(t, 40.0, particles[1].GetMass())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		errContains string
	}{
		{
			name:        "not json",
			doc:         `particle_types = 1`,
			errContains: "invalid",
		},
		{
			name:        "missing types",
			doc:         `{"particle_states": []}`,
			errContains: "missing particle_types",
		},
		{
			name:        "missing states",
			doc:         `{"particle_types": {}}`,
			errContains: "missing particle_states",
		},
		{
			name:        "unknown type",
			doc:         `{"particle_types": {}, "particle_states": [{"type": "neon", "position": [1, 1], "velocity": [0, 0]}]}`,
			errContains: `unknown type "neon"`,
		},
		{
			name:        "missing mass",
			doc:         `{"particle_types": {"a": {"radius": 1, "red": 0, "green": 0, "blue": 0}}, "particle_states": []}`,
			errContains: `missing "mass"`,
		},
		{
			name:        "zero radius",
			doc:         `{"particle_types": {"a": {"radius": 0, "mass": 1, "red": 0, "green": 0, "blue": 0}}, "particle_states": []}`,
			errContains: "radius",
		},
		{
			name:        "color out of range",
			doc:         `{"particle_types": {"a": {"radius": 1, "mass": 1, "red": 2, "green": 0, "blue": 0}}, "particle_states": []}`,
			errContains: "red",
		},
		{
			name:        "missing velocity",
			doc:         `{"particle_types": {"a": {"radius": 1, "mass": 1, "red": 0, "green": 0, "blue": 0}}, "particle_states": [{"type": "a", "position": [1, 1]}]}`,
			errContains: "missing position or velocity",
		},
		{
			name: "coincident centers",
			doc: `{"particle_types": {"a": {"radius": 1, "mass": 1, "red": 0, "green": 0, "blue": 0}}, "particle_states": [
				{"type": "a", "position": [5, 5], "velocity": [1, 0]},
				{"type": "a", "position": [5, 5], "velocity": [-1, 0]}]}`,
			errContains: "share center",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			particles, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Nil(t, particles)
			assert.True(t, errors.Is(err, ErrInvalidScenario), "error %v should wrap ErrInvalidScenario", err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	original, err := Load(strings.NewReader(savedState))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, original))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestSave_FirstParticleDefinesType(t *testing.T) {
	red := entity.Specs{Name: "x", Radius: 1, Mass: 1, Color: entity.Color{Red: 1}}
	blue := entity.Specs{Name: "x", Radius: 1, Mass: 1, Color: entity.Color{Blue: 1}}
	particles := []entity.Particle{
		entity.NewParticle(physics.Vector2D{X: 10, Y: 10}, physics.Vector2D{}, red),
		entity.NewParticle(physics.Vector2D{X: 20, Y: 20}, physics.Vector2D{}, blue),
	}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, particles))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, red.Color, loaded[1].GetColor())
}

func TestSave_RejectsConflictingTypesWithSameName(t *testing.T) {
	small := entity.Specs{Name: "x", Radius: 1, Mass: 1}
	tests := []struct {
		name  string
		other entity.Specs
	}{
		{"different_radius", entity.Specs{Name: "x", Radius: 2, Mass: 1}},
		{"different_mass", entity.Specs{Name: "x", Radius: 1, Mass: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			particles := []entity.Particle{
				entity.NewParticle(physics.Vector2D{X: 10, Y: 10}, physics.Vector2D{}, small),
				entity.NewParticle(physics.Vector2D{X: 20, Y: 20}, physics.Vector2D{}, tt.other),
			}

			var buf bytes.Buffer
			err := Save(&buf, particles)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidScenario)
			assert.Contains(t, err.Error(), `type "x"`)
			assert.Zero(t, buf.Len(), "nothing should be written on error")
		})
	}
}

func TestSaveFile_KeepsExistingFileOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_particles.json")
	require.NoError(t, os.WriteFile(path, []byte(savedState), 0o644))

	particles := []entity.Particle{
		entity.NewParticle(physics.Vector2D{X: 10, Y: 10}, physics.Vector2D{}, entity.Specs{Name: "x", Radius: 1, Mass: 1}),
		entity.NewParticle(physics.Vector2D{X: 20, Y: 20}, physics.Vector2D{}, entity.Specs{Name: "x", Radius: 1, Mass: 2}),
	}
	require.ErrorIs(t, SaveFile(path, particles), ErrInvalidScenario)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, savedState, string(data))
}

func TestSaveFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_particles.json")

	original, err := Load(strings.NewReader(savedState))
	require.NoError(t, err)
	require.NoError(t, SaveFile(path, original))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), path)
}

const generatorDoc = `{
    "particle_types": {
        "helium": {"radius": 2, "mass": 4, "red": 1, "green": 1, "blue": 0},
        "argon":  {"radius": 5, "mass": 40, "red": 0, "green": 0, "blue": 1}
    },
    "particle_counts": [
        {"type": "helium", "count": 50, "max_velocity": 3},
        {"type": "argon", "count": 10, "max_velocity": 0.5}
    ]
}`

func TestGenerate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	particles, err := Generate(strings.NewReader(generatorDoc), box, rng)
	require.NoError(t, err)
	require.Len(t, particles, 60)

	for i := range particles {
		p := &particles[i]
		maxVelocity := 3.0
		if i >= 50 {
			maxVelocity = 0.5
			assert.Equal(t, "argon", p.GetTypeName())
		} else {
			assert.Equal(t, "helium", p.GetTypeName())
		}

		circle := physics.Circle{Center: p.GetPosition(), Radius: p.GetRadius()}
		assert.True(t, box.Contains(circle), "particle %d at %v outside box", i, p.GetPosition())

		v := p.GetVelocity()
		assert.LessOrEqual(t, v.X, maxVelocity)
		assert.GreaterOrEqual(t, v.X, -maxVelocity)
		assert.LessOrEqual(t, v.Y, maxVelocity)
		assert.GreaterOrEqual(t, v.Y, -maxVelocity)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(strings.NewReader(generatorDoc), box, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	b, err := Generate(strings.NewReader(generatorDoc), box, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		bounds      physics.Bounds
		errContains string
	}{
		{
			name:        "missing counts",
			doc:         `{"particle_types": {}}`,
			bounds:      box,
			errContains: "missing particle_counts",
		},
		{
			name:        "unknown type",
			doc:         `{"particle_types": {}, "particle_counts": [{"type": "neon", "count": 1, "max_velocity": 1}]}`,
			bounds:      box,
			errContains: `unknown type "neon"`,
		},
		{
			name:        "negative count",
			doc:         `{"particle_types": {"a": {"radius": 1, "mass": 1, "red": 0, "green": 0, "blue": 0}}, "particle_counts": [{"type": "a", "count": -1, "max_velocity": 1}]}`,
			bounds:      box,
			errContains: "particle_counts[0]",
		},
		{
			name:        "missing max velocity",
			doc:         `{"particle_types": {"a": {"radius": 1, "mass": 1, "red": 0, "green": 0, "blue": 0}}, "particle_counts": [{"type": "a", "count": 1}]}`,
			bounds:      box,
			errContains: "missing count or max_velocity",
		},
		{
			name:        "particle wider than box",
			doc:         `{"particle_types": {"a": {"radius": 300, "mass": 1, "red": 0, "green": 0, "blue": 0}}, "particle_counts": [{"type": "a", "count": 1, "max_velocity": 1}]}`,
			bounds:      box,
			errContains: "does not fit",
		},
		{
			name:        "inverted bounds",
			doc:         generatorDoc,
			bounds:      physics.Bounds{Left: 10, Right: 0, Top: 0, Bottom: 10},
			errContains: "right bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(strings.NewReader(tt.doc), tt.bounds, rand.New(rand.NewPCG(1, 1)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidScenario), "error %v should wrap ErrInvalidScenario", err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestGenerateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "random_generation_parameters.json")
	require.NoError(t, os.WriteFile(path, []byte(generatorDoc), 0o644))

	particles, err := GenerateFile(path, box, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.Len(t, particles, 60)
}
