package verlet

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mottledev/marionette/internal/noise"
)

func fiveParticleChain(t *testing.T, cfg Config) *Chain {
	t.Helper()
	positions := make([]mgl64.Vec3, 5)
	lengths := make([]float64, 4)
	for i := range positions {
		positions[i] = mgl64.Vec3{0, -0.2 * float64(i), 0}
	}
	for i := range lengths {
		lengths[i] = 0.2
	}
	c, err := NewChain(positions, lengths, cfg, noise.Zero{})
	require.NoError(t, err)
	return c
}

func TestNewChain_Validation(t *testing.T) {
	_, err := NewChain([]mgl64.Vec3{{0, 0, 0}}, nil, DefaultConfig(), nil)
	assert.Error(t, err, "single particle is not a chain")

	_, err = NewChain([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, []float64{1, 1}, DefaultConfig(), nil)
	assert.Error(t, err, "segment count mismatch")

	_, err = NewChain([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, []float64{-1}, DefaultConfig(), nil)
	assert.Error(t, err, "negative rest length")
}

func TestConstraintConvergence_MonotonicWithIterations(t *testing.T) {
	// Stretch every segment 50% past rest length, then compare the residual
	// error after 1 vs 3 relaxation iterations on otherwise identical
	// chains.
	stretched := make([]mgl64.Vec3, 5)
	lengths := make([]float64, 4)
	for i := range stretched {
		stretched[i] = mgl64.Vec3{0, -0.3 * float64(i), 0}
	}
	for i := range lengths {
		lengths[i] = 0.2
	}

	cfgOne := DefaultConfig()
	cfgOne.Iterations = 1
	cfgOne.Gravity = mgl64.Vec3{}
	one, err := NewChain(stretched, lengths, cfgOne, nil)
	require.NoError(t, err)

	cfgThree := cfgOne
	cfgThree.Iterations = 3
	three, err := NewChain(stretched, lengths, cfgThree, nil)
	require.NoError(t, err)

	anchor := mgl64.Vec3{}
	one.Step(anchor, 1.0/60.0)
	three.Step(anchor, 1.0/60.0)

	assert.Less(t, three.MeanLengthError(), one.MeanLengthError(),
		"more relaxation iterations must reduce average length error")
}

func TestStep_RootPinnedToAnchor(t *testing.T) {
	c := fiveParticleChain(t, DefaultConfig())
	anchor := mgl64.Vec3{3, 1, -2}
	c.Step(anchor, 1.0/60.0)
	assert.Equal(t, anchor, c.Particles()[0].Position)
}

func TestStep_SettlesUnderGravityWithoutDivergence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 4
	c := fiveParticleChain(t, cfg)

	anchor := mgl64.Vec3{0, 0, 0}
	for i := 0; i < 600; i++ {
		c.Step(anchor, 1.0/60.0)
	}

	// Hanging chain: the tip should settle below the anchor at roughly the
	// total rest length, with small constraint error.
	tip := c.Particles()[4].Position
	assert.InDelta(t, -0.8, tip.Y(), 0.05)
	assert.Less(t, c.MaxLengthError(), 0.01)
}

func TestStep_ZeroDtIsNoOp(t *testing.T) {
	c := fiveParticleChain(t, DefaultConfig())
	before := c.Particles()[2].Position
	c.Step(mgl64.Vec3{5, 5, 5}, 0)
	assert.Equal(t, before, c.Particles()[2].Position)
}

func TestApplyImpulse_InjectsVelocity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	c := fiveParticleChain(t, cfg)
	anchor := c.Particles()[0].Position

	c.Step(anchor, 1.0/60.0)
	restingX := c.Particles()[2].Position.X()

	// Displacing the previous position (not the current one) means the next
	// step observes an instantaneous velocity.
	c.ApplyImpulse(2, mgl64.Vec3{0.05, 0, 0})
	c.Step(anchor, 1.0/60.0)
	assert.Greater(t, c.Particles()[2].Position.X(), restingX,
		"impulse should carry the particle forward on the following step")
}

func TestApplyImpulse_RootAndOutOfRangeIgnored(t *testing.T) {
	c := fiveParticleChain(t, DefaultConfig())
	before := c.Particles()[0]
	c.ApplyImpulse(0, mgl64.Vec3{1, 0, 0})
	c.ApplyImpulse(-1, mgl64.Vec3{1, 0, 0})
	c.ApplyImpulse(99, mgl64.Vec3{1, 0, 0})
	assert.Equal(t, before, c.Particles()[0])
}

func TestNoiseField_PerturbsRestingChain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	cfg.NoiseAmplitude = 0.5
	positions := make([]mgl64.Vec3, 4)
	lengths := []float64{0.2, 0.2, 0.2}
	for i := range positions {
		positions[i] = mgl64.Vec3{0.2 * float64(i), 0, 0}
	}
	c, err := NewChain(positions, lengths, cfg, noise.NewPerlin(7, 2.0))
	require.NoError(t, err)

	anchor := positions[0]
	moved := false
	for i := 0; i < 120 && !moved; i++ {
		c.Step(anchor, 1.0/60.0)
		if c.Particles()[3].Position.Sub(positions[3]).Len() > 1e-5 {
			moved = true
		}
	}
	assert.True(t, moved, "noise field should produce visible secondary motion")
}
