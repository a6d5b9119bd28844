package ik

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mottledev/marionette/internal/pose"
)

func twoBoneChain() ([]mgl64.Vec3, []float64) {
	positions := []mgl64.Vec3{
		{0, 0, 0},
		{0.4, 0, 0},
		{0.8, 0, 0},
	}
	lengths := []float64{0.4, 0.4}
	return positions, lengths
}

func TestSolve_ReachableTarget(t *testing.T) {
	positions, lengths := twoBoneChain()
	target := mgl64.Vec3{0.5, 0, 0}

	res, err := Solve(positions, lengths, target, Config{MaxIterations: 10, Tolerance: 1e-3})
	require.NoError(t, err)

	assert.True(t, res.Reached)
	assert.LessOrEqual(t, res.Iterations, 10)
	assert.Less(t, res.Positions[2].Sub(target).Len(), 1e-3, "tip should reach the target")

	// Segment lengths must be preserved exactly by the backward pass.
	assert.InDelta(t, 0.4, res.Positions[1].Sub(res.Positions[0]).Len(), 1e-4)
	assert.InDelta(t, 0.4, res.Positions[2].Sub(res.Positions[1]).Len(), 1e-4)
	// Root never moves.
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, res.Positions[0])
}

func TestSolve_UnreachableTargetExtendsStraight(t *testing.T) {
	positions, lengths := twoBoneChain()
	target := mgl64.Vec3{2, 0, 0}

	res, err := Solve(positions, lengths, target, Config{})
	require.NoError(t, err)

	assert.False(t, res.Reached)
	assert.Zero(t, res.Iterations, "unreachable targets must not iterate")

	// Fully extended along the target direction: tip at exactly 0.8 from root.
	tip := res.Positions[2]
	assert.InDelta(t, 0.8, tip.Sub(res.Positions[0]).Len(), 1e-12)
	dir := target.Normalize()
	assert.InDelta(t, 0.0, tip.Sub(dir.Mul(0.8)).Len(), 1e-12)
}

func TestSolve_TargetExactlyAtFullReach(t *testing.T) {
	positions, lengths := twoBoneChain()
	// Bend the chain first so the straight layout is not the input.
	positions[1] = mgl64.Vec3{0.2, 0.3, 0}
	positions[2] = mgl64.Vec3{0.5, 0.1, 0}
	target := mgl64.Vec3{0, 0.8, 0} // distance from root == 0.4 + 0.4

	res, err := Solve(positions, lengths, target, Config{})
	require.NoError(t, err)

	// The boundary is reachable: tip lands exactly on the target, and
	// Reached must agree with the zero error.
	assert.True(t, res.Reached)
	assert.InDelta(t, 0.0, res.Err, 1e-12)
	assert.InDelta(t, 0.0, res.Positions[2].Sub(target).Len(), 1e-12)
	assert.InDelta(t, 0.4, res.Positions[1].Sub(res.Positions[0]).Len(), 1e-12)
}

func TestSolve_InputValidation(t *testing.T) {
	_, err := Solve([]mgl64.Vec3{{0, 0, 0}}, nil, mgl64.Vec3{1, 0, 0}, Config{})
	assert.ErrorIs(t, err, ErrChainTooShort)

	_, err = Solve([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, []float64{1, 1}, mgl64.Vec3{}, Config{})
	assert.Error(t, err, "segment count must be joint count minus one")
}

func TestSolve_CollapsedChainProducesNoNaN(t *testing.T) {
	// All joints coincident with zero-length segments: the fallback
	// direction must keep every coordinate finite.
	positions := []mgl64.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}}
	lengths := []float64{0, 0}

	res, err := Solve(positions, lengths, mgl64.Vec3{2, 1, 1}, Config{})
	require.NoError(t, err)
	for _, p := range res.Positions {
		for i := 0; i < 3; i++ {
			require.False(t, math.IsNaN(p[i]), "solver leaked NaN")
		}
	}
}

func TestSolve_PoleBiasPicksBendSide(t *testing.T) {
	// Three-joint arm bent slightly +Y; the pole at -Y should flip the
	// elbow to the negative side while leaving the solve valid.
	positions := []mgl64.Vec3{
		{0, 0, 0},
		{0.35, 0.1, 0},
		{0.7, 0, 0},
	}
	lengths := []float64{
		positions[1].Sub(positions[0]).Len(),
		positions[2].Sub(positions[1]).Len(),
	}
	target := mgl64.Vec3{0.6, 0, 0}

	res, err := Solve(positions, lengths, target, Config{
		MaxIterations: 16,
		Tolerance:     1e-4,
		Pole:          mgl64.Vec3{0.35, -10, 0},
		HasPole:       true,
	})
	require.NoError(t, err)
	require.True(t, res.Reached)
	assert.Negative(t, res.Positions[1].Y(), "elbow should bend toward the pole")

	assert.InDelta(t, lengths[0], res.Positions[1].Sub(res.Positions[0]).Len(), 1e-6)
	assert.InDelta(t, lengths[1], res.Positions[2].Sub(res.Positions[1]).Len(), 1e-6)
}

func TestSolve_EarlyOutUsesFewerIterations(t *testing.T) {
	positions, lengths := twoBoneChain()
	// Target on the current tip: first iteration should already satisfy the
	// tolerance.
	res, err := Solve(positions, lengths, mgl64.Vec3{0.79, 0, 0}, Config{MaxIterations: 50, Tolerance: 0.05})
	require.NoError(t, err)
	assert.True(t, res.Reached)
	assert.Less(t, res.Iterations, 50)
}

func TestPositionsToRotations(t *testing.T) {
	positions := []mgl64.Vec3{
		{0, 0, 0},
		{0, 0, 1},
		{0, 0, 2},
	}
	out := make([]mgl64.Quat, 3)
	PositionsToRotations(positions, mgl64.Vec3{0, 1, 0}, nil, out)

	// Segments point along +Z, which is the look convention's forward: all
	// joints should be near identity.
	for i := 0; i < 2; i++ {
		assert.Less(t, pose.AngleBetween(out[i], mgl64.QuatIdent()), 1e-9)
	}
	// Tip inherits its predecessor.
	assert.Equal(t, out[1], out[2])
}

func TestPositionsToRotations_DegenerateSegmentHoldsPrevious(t *testing.T) {
	positions := []mgl64.Vec3{
		{0, 0, 0},
		{0, 0, 0}, // zero-length first segment
		{0, 0, 1},
	}
	prev := []mgl64.Quat{
		mgl64.QuatRotate(0.5, mgl64.Vec3{0, 1, 0}),
		mgl64.QuatIdent(),
		mgl64.QuatIdent(),
	}
	out := make([]mgl64.Quat, 3)
	PositionsToRotations(positions, mgl64.Vec3{0, 1, 0}, prev, out)

	assert.Less(t, pose.AngleBetween(out[0], prev[0]), 1e-9,
		"degenerate segment should reuse the previous frame's rotation")
}
