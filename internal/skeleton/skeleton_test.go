package skeleton

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	good := NewChain(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, []float64{0.3, 0.3}, TagLimb)
	require.NoError(t, good.Validate())

	short := &BoneChain{Bones: []Bone{{Handle: NewTransform(mgl64.Vec3{})}}}
	assert.Error(t, short.Validate())

	nilBone := NewChain(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, []float64{0.3}, TagLimb)
	nilBone.Bones[1].Handle = nil
	assert.ErrorIs(t, nilBone.Validate(), ErrNilBone)

	miscounted := NewChain(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, []float64{0.3, 0.3}, TagLimb)
	miscounted.Lengths = miscounted.Lengths[:1]
	assert.ErrorIs(t, miscounted.Validate(), ErrSegmentCount)

	negative := NewChain(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, []float64{0.3}, TagLimb)
	negative.Lengths[0] = -0.1
	assert.ErrorIs(t, negative.Validate(), ErrNegativeLength)
}

func TestNewChain_LaysOutStraightSegments(t *testing.T) {
	chain := NewChain(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, 2}, []float64{0.5, 0.25}, TagTail)
	require.NoError(t, chain.Validate())
	assert.InDelta(t, 0.75, chain.Reach(), 1e-12)

	want := []mgl64.Vec3{
		{1, 2, 3},
		{1, 2, 3.5},
		{1, 2, 3.75},
	}
	got := chain.Positions(nil)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("joint positions mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions_ReusesBuffer(t *testing.T) {
	chain := NewChain(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, []float64{1, 1, 1}, TagLimb)

	buf := make([]mgl64.Vec3, 0, 8)
	first := chain.Positions(buf)
	second := chain.Positions(first)
	assert.Equal(t, &first[0], &second[0], "a large enough buffer must be reused")
}

func TestWriteReadRoundTrip(t *testing.T) {
	chain := NewChain(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, []float64{0.4, 0.4}, TagLimb)

	moved := []mgl64.Vec3{{0, 0, 0}, {0.2, -0.3, 0}, {0.5, -0.5, 0.1}}
	chain.WritePositions(moved)

	if diff := cmp.Diff(moved, chain.Positions(nil)); diff != "" {
		t.Errorf("written positions did not survive the round trip (-want +got):\n%s", diff)
	}
}

func TestFlatGround(t *testing.T) {
	g := FlatGround{Height: 0.5}

	hit, ok := g.QueryGround(mgl64.Vec3{1, 2, 3}, 2)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 0.5, 3}, hit.Point)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, hit.Normal)
	assert.Zero(t, hit.Slope)

	_, ok = g.QueryGround(mgl64.Vec3{0, 10, 0}, 2)
	assert.False(t, ok, "origin too far above the plane")
}

func TestBody_StepIntegratesAndClearsCommands(t *testing.T) {
	b := NewBody()
	b.AddTorque(mgl64.Vec3{0, 10, 0})
	b.Step(0.1)

	assert.Positive(t, b.AngularVelocity().Y())
	spun := b.AngularVelocity()

	// Commands are one-shot: another step without AddTorque only damps.
	b.Step(0.1)
	assert.Less(t, b.AngularVelocity().Y(), spun.Y())
}
