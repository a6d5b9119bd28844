package pose

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaRotation_TakesFromOntoTo(t *testing.T) {
	from := mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0})
	to := mgl64.QuatRotate(1.1, mgl64.Vec3{0, 1, 0})

	delta := DeltaRotation(from, to)
	recovered := delta.Mul(from)
	assert.InDelta(t, 0, AngleBetween(recovered, to), 1e-9)
}

func TestDeltaRotation_PrefersShortestArc(t *testing.T) {
	from := mgl64.QuatIdent()
	// 350 degrees one way is 10 degrees the other.
	to := mgl64.QuatRotate(350*math.Pi/180, mgl64.Vec3{0, 0, 1})

	axis := ToScaledAxis(DeltaRotation(from, to))
	assert.InDelta(t, 10*math.Pi/180, axis.Len(), 1e-9)
}

func TestScaledAxisRoundTrip(t *testing.T) {
	for _, v := range []mgl64.Vec3{
		{0.5, 0, 0},
		{0, -1.2, 0.3},
		{2.1, 2.1, -0.7},
	} {
		q := FromScaledAxis(v)
		got := ToScaledAxis(q)
		assert.InDelta(t, v.X(), got.X(), 1e-9)
		assert.InDelta(t, v.Y(), got.Y(), 1e-9)
		assert.InDelta(t, v.Z(), got.Z(), 1e-9)
	}
}

func TestToScaledAxis_TinyAngleStaysFinite(t *testing.T) {
	q := mgl64.QuatRotate(1e-10, mgl64.Vec3{1, 0, 0})
	axis := ToScaledAxis(q)
	assert.False(t, math.IsNaN(axis.Len()))
	assert.InDelta(t, 1e-10, axis.Len(), 1e-12)
}

func TestLookRotation_PointsForwardAlongZ(t *testing.T) {
	q, ok := LookRotation(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	require.True(t, ok)

	fwd := q.Rotate(mgl64.Vec3{0, 0, 1})
	assert.InDelta(t, 1, fwd.X(), 1e-9)
	assert.InDelta(t, 0, fwd.Y(), 1e-9)
	assert.InDelta(t, 0, fwd.Z(), 1e-9)
}

func TestLookRotation_DegenerateInputs(t *testing.T) {
	_, ok := LookRotation(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0})
	assert.False(t, ok, "zero forward has no defined rotation")

	_, ok = LookRotation(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0})
	assert.False(t, ok, "forward parallel to up has no defined roll")
}

func TestSafeNormalize_FallsBack(t *testing.T) {
	fallback := mgl64.Vec3{0, 0, 1}
	got := SafeNormalize(mgl64.Vec3{}, fallback)
	assert.Equal(t, fallback, got)

	got = SafeNormalize(mgl64.Vec3{3, 0, 0}, fallback)
	assert.InDelta(t, 1, got.X(), 1e-12)
}

func TestClampLen(t *testing.T) {
	v := mgl64.Vec3{3, 4, 0}
	assert.Equal(t, v, ClampLen(v, 10), "under the cap passes through")
	assert.InDelta(t, 2, ClampLen(v, 2).Len(), 1e-12)
}

func TestPose_RotatedRenormalizes(t *testing.T) {
	p := Identity().Rotated(mgl64.Quat{W: 2, V: mgl64.Vec3{0, 0, 0}})
	assert.InDelta(t, 1, p.Rotation.Len(), 1e-12)
}

func TestPose_BasisVectors(t *testing.T) {
	p := At(mgl64.Vec3{}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}))

	fwd := p.Forward()
	assert.InDelta(t, 1, fwd.X(), 1e-9)
	assert.InDelta(t, 0, fwd.Z(), 1e-9)

	up := p.Up()
	assert.InDelta(t, 1, up.Y(), 1e-9)
}
