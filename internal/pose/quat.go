package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// epsilon below which a direction or rotation is treated as degenerate.
const epsilon = 1e-9

// ShortestArc returns q, negated if necessary so that it encodes the
// shortest rotational path. A unit quaternion and its negation describe the
// same orientation but opposite arcs; solvers always want the short one.
func ShortestArc(q mgl64.Quat) mgl64.Quat {
	if q.W < 0 {
		return mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}
	return q
}

// DeltaRotation returns the world-space rotation that takes from onto to,
// along the shortest arc.
func DeltaRotation(from, to mgl64.Quat) mgl64.Quat {
	return ShortestArc(to.Mul(from.Inverse())).Normalize()
}

// ToScaledAxis converts a rotation to its axis-angle vector (axis scaled by
// angle in radians), taking the shortest path. The zero rotation maps to
// the zero vector.
func ToScaledAxis(q mgl64.Quat) mgl64.Vec3 {
	q = ShortestArc(q.Normalize())
	w := q.W
	if w > 1 {
		w = 1
	}
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < epsilon {
		// Tiny rotation: sin(theta/2) ~ theta/2, so V already approximates
		// axis*angle/2.
		return q.V.Mul(2)
	}
	return q.V.Mul(angle / s)
}

// FromScaledAxis is the inverse of ToScaledAxis: it builds a rotation of
// |v| radians about the direction of v.
func FromScaledAxis(v mgl64.Vec3) mgl64.Quat {
	angle := v.Len()
	if angle < epsilon {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(angle, v.Mul(1/angle))
}

// LookRotation builds the rotation whose +Z axis points along forward with
// +Y as close to up as possible. A degenerate forward or a forward parallel
// to up returns ok=false and the identity; callers fall back to their
// previous valid rotation rather than propagating NaN.
func LookRotation(forward, up mgl64.Vec3) (mgl64.Quat, bool) {
	if forward.Len() < epsilon {
		return mgl64.QuatIdent(), false
	}
	f := forward.Normalize()
	right := up.Cross(f)
	if right.Len() < epsilon {
		return mgl64.QuatIdent(), false
	}
	right = right.Normalize()
	orthoUp := f.Cross(right)
	m := mgl64.Mat3FromCols(right, orthoUp, f)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize(), true
}

// AngleBetween returns the unsigned angle in radians separating two
// rotations, measured along the shortest arc.
func AngleBetween(a, b mgl64.Quat) float64 {
	return ToScaledAxis(DeltaRotation(a, b)).Len()
}

// SafeNormalize returns v scaled to unit length, or fallback when v is too
// short to carry a direction.
func SafeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if v.Len() < epsilon {
		return fallback
	}
	return v.Normalize()
}

// ClampLen limits v to at most max length, preserving direction.
func ClampLen(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if l > max && l > 0 {
		return v.Mul(max / l)
	}
	return v
}

// Lerp linearly interpolates between two vectors; t is clamped to [0, 1].
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(b.Sub(a).Mul(t))
}
