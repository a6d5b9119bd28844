// Package pose provides the value types shared by every solver in the
// motion core: a bone transform with its velocities, plus the quaternion
// helpers (shortest-path deltas, look rotations, axis-angle conversions)
// the solvers integrate on.
package pose

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Pose is the state of a single bone: where it is, how it is oriented,
// and how fast both are changing. It is a value type and is copied freely;
// the rotation is kept normalized by every mutating helper.
type Pose struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// Identity returns a pose at the origin with identity rotation and zero
// velocities.
func Identity() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// At returns a stationary pose at the given position and rotation.
func At(position mgl64.Vec3, rotation mgl64.Quat) Pose {
	return Pose{Position: position, Rotation: rotation.Normalize()}
}

// Normalized returns a copy of p with its rotation re-normalized. Solvers
// call this after any direct quaternion arithmetic so drift never
// accumulates across frames.
func (p Pose) Normalized() Pose {
	p.Rotation = p.Rotation.Normalize()
	return p
}

// Translated returns a copy of p moved by delta.
func (p Pose) Translated(delta mgl64.Vec3) Pose {
	p.Position = p.Position.Add(delta)
	return p
}

// Rotated returns a copy of p with delta applied on the left, i.e. the
// delta is expressed in world space.
func (p Pose) Rotated(delta mgl64.Quat) Pose {
	p.Rotation = delta.Mul(p.Rotation).Normalize()
	return p
}

// Forward returns the bone's local +Z axis in world space.
func (p Pose) Forward() mgl64.Vec3 {
	return p.Rotation.Rotate(mgl64.Vec3{0, 0, 1})
}

// Up returns the bone's local +Y axis in world space.
func (p Pose) Up() mgl64.Vec3 {
	return p.Rotation.Rotate(mgl64.Vec3{0, 1, 0})
}

// Right returns the bone's local +X axis in world space.
func (p Pose) Right() mgl64.Vec3 {
	return p.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
}
