package gait

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhasePartition_ExactlyOnePhase(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)

	// Sweep global phase and limb offsets: a limb is always in exactly one
	// phase, never both, never neither.
	for g := 0.0; g < 1.0; g += 0.013 {
		c.phase = g
		for p := 0.0; p < 1.0; p += 0.017 {
			stance := c.IsInStance(p)
			swing := c.IsInSwing(p)
			require.True(t, stance != swing,
				"phase partition violated at global=%v offset=%v", g, p)
		}
	}
}

func TestStanceFractionMatchesDutyFactor(t *testing.T) {
	for _, duty := range []float64{0.3, 0.5, 0.65, 0.8} {
		c := New(Config{CycleDuration: 1, DutyFactor: duty, StrideLength: 1})

		const samples = 100000
		stanceCount := 0
		for i := 0; i < samples; i++ {
			c.phase = float64(i) / samples
			if c.IsInStance(0) {
				stanceCount++
			}
		}
		got := float64(stanceCount) / samples
		assert.InDelta(t, duty, got, 1e-3, "stance fraction for duty %v", duty)
	}
}

func TestConfigClamping(t *testing.T) {
	c := New(Config{CycleDuration: -1, DutyFactor: 0.05, StrideLength: 0})
	cfg := c.Config()
	assert.Equal(t, 0.3, cfg.DutyFactor)
	assert.Positive(t, cfg.CycleDuration)
	assert.Positive(t, cfg.StrideLength)

	c = New(Config{CycleDuration: 1, DutyFactor: 0.95, StrideLength: 1})
	assert.Equal(t, 0.8, c.Config().DutyFactor)
}

func TestAdvance_ScalesWithSpeed(t *testing.T) {
	cfg := Config{CycleDuration: 1, DutyFactor: 0.5, StrideLength: 0.5}

	slow := New(cfg)
	fast := New(cfg)
	for i := 0; i < 60; i++ {
		slow.Advance(1.0/60.0, 0.5)
		fast.Advance(1.0/60.0, 1.5)
	}
	assert.Greater(t, fast.Phase(), slow.Phase(),
		"faster movement must advance the cycle further")

	// Stationary character: the cycle freezes rather than looping in place.
	frozen := New(cfg)
	frozen.Advance(1.0/60.0, 0)
	assert.Zero(t, frozen.Phase())
}

func TestAdvance_WrapsPhase(t *testing.T) {
	c := New(Config{CycleDuration: 0.5, DutyFactor: 0.5, StrideLength: 0.5})
	for i := 0; i < 1000; i++ {
		c.Advance(1.0/30.0, 2.0)
		require.GreaterOrEqual(t, c.Phase(), 0.0)
		require.Less(t, c.Phase(), 1.0)
	}
}

func TestSwingProgressAndFootHeight(t *testing.T) {
	c := New(Config{CycleDuration: 1, DutyFactor: 0.6, StrideLength: 1, StepHeight: 0.2})

	// Mid-stance: flat on the ground.
	c.phase = 0.3
	assert.Zero(t, c.SwingProgress(0))
	assert.Zero(t, c.FootHeight(0))

	// Swing start and end: height returns to zero.
	c.phase = 0.6
	assert.InDelta(t, 0.0, c.SwingProgress(0), 1e-12)
	c.phase = 0.8 // halfway through the 0.6..1.0 swing window
	assert.InDelta(t, 0.5, c.SwingProgress(0), 1e-12)
	assert.InDelta(t, 0.2, c.FootHeight(0), 1e-12, "arc apex at mid-swing")

	c.phase = 0.999999
	assert.Less(t, c.FootHeight(0), 0.01, "arc lands near zero at touch-down")
}

func TestTracker_EdgeDetection(t *testing.T) {
	c := New(Config{CycleDuration: 1, DutyFactor: 0.5, StrideLength: 1})
	tr := Tracker{Offset: 0}

	c.phase = 0.25 // stance
	assert.Equal(t, NoEvent, tr.Observe(c), "first observation only primes")

	c.phase = 0.75 // swing
	assert.Equal(t, SwingStarted, tr.Observe(c))
	assert.Equal(t, NoEvent, tr.Observe(c), "no repeat while phase holds")

	c.phase = 0.1 // wrapped back to stance
	assert.Equal(t, StanceStarted, tr.Observe(c))
}

func TestTracker_OffsetLimbsFireAtDifferentTimes(t *testing.T) {
	c := New(Config{CycleDuration: 1, DutyFactor: 0.5, StrideLength: 1})
	left := Tracker{Offset: 0}
	right := Tracker{Offset: 0.5}

	var leftEvents, rightEvents []float64
	for i := 0; i <= 200; i++ {
		c.phase = math.Mod(float64(i)*0.01, 1.0)
		if left.Observe(c) == SwingStarted {
			leftEvents = append(leftEvents, c.phase)
		}
		if right.Observe(c) == SwingStarted {
			rightEvents = append(rightEvents, c.phase)
		}
	}
	require.NotEmpty(t, leftEvents)
	require.NotEmpty(t, rightEvents)
	assert.NotEqual(t, leftEvents[0], rightEvents[0],
		"offset limbs must not lift off simultaneously")
}
