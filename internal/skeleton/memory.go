package skeleton

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a plain in-memory TransformHandle, used by tests and by the
// headless demo where no engine-side scene graph exists.
type Transform struct {
	position mgl64.Vec3
	rotation mgl64.Quat
}

// NewTransform returns a transform at the given position with identity
// rotation.
func NewTransform(position mgl64.Vec3) *Transform {
	return &Transform{position: position, rotation: mgl64.QuatIdent()}
}

func (t *Transform) Position() mgl64.Vec3     { return t.position }
func (t *Transform) Rotation() mgl64.Quat     { return t.rotation }
func (t *Transform) SetPosition(p mgl64.Vec3) { t.position = p }
func (t *Transform) SetRotation(q mgl64.Quat) { t.rotation = q.Normalize() }

// NewChain builds a straight chain of in-memory transforms starting at
// origin, extending along dir with the given segment lengths. Convenience
// for tests and the demo walker.
func NewChain(origin, dir mgl64.Vec3, lengths []float64, tag BoneTag) *BoneChain {
	if dir.Len() < 1e-9 {
		dir = mgl64.Vec3{0, 0, 1}
	}
	dir = dir.Normalize()

	bones := make([]Bone, len(lengths)+1)
	at := origin
	bones[0] = Bone{Handle: NewTransform(at), Mass: 1, Tag: tag}
	for i, l := range lengths {
		at = at.Add(dir.Mul(l))
		bones[i+1] = Bone{Handle: NewTransform(at), Mass: 1, Tag: tag}
	}
	rest := make([]float64, len(lengths))
	copy(rest, lengths)
	return &BoneChain{Bones: bones, Lengths: rest}
}

// FlatGround is a GroundQuerier for an infinite horizontal plane, used by
// tests and the demo.
type FlatGround struct {
	Height float64
}

// QueryGround reports a hit whenever the plane is within maxDistance below
// (or above) the origin.
func (g FlatGround) QueryGround(origin mgl64.Vec3, maxDistance float64) (GroundHit, bool) {
	if math.Abs(origin.Y()-g.Height) > maxDistance {
		return GroundHit{}, false
	}
	return GroundHit{
		Point:  mgl64.Vec3{origin.X(), g.Height, origin.Z()},
		Normal: mgl64.Vec3{0, 1, 0},
		Slope:  0,
	}, true
}

// Body is a minimal in-memory Actuator with first-order integration,
// sufficient for exercising the ragdoll controller without a physics
// engine attached.
type Body struct {
	rotation        mgl64.Quat
	angularVelocity mgl64.Vec3
	velocity        mgl64.Vec3
	torque          mgl64.Vec3
	force           mgl64.Vec3

	// Inertia and Mass divide accumulated torque and force during Step.
	Inertia float64
	Mass    float64
	// Damping bleeds velocity each step, [0, 1).
	Damping float64
}

// NewBody returns a unit-mass body at identity rotation.
func NewBody() *Body {
	return &Body{rotation: mgl64.QuatIdent(), Inertia: 1, Mass: 1, Damping: 0.05}
}

func (b *Body) Rotation() mgl64.Quat        { return b.rotation }
func (b *Body) AngularVelocity() mgl64.Vec3 { return b.angularVelocity }
func (b *Body) Velocity() mgl64.Vec3        { return b.velocity }
func (b *Body) AddTorque(t mgl64.Vec3)      { b.torque = b.torque.Add(t) }
func (b *Body) AddForce(f mgl64.Vec3)       { b.force = b.force.Add(f) }

// SetRotation overrides the simulated orientation, for test setup.
func (b *Body) SetRotation(q mgl64.Quat) { b.rotation = q.Normalize() }

// Step integrates accumulated torque and force over dt and clears them.
func (b *Body) Step(dt float64) {
	if dt <= 0 {
		return
	}
	b.angularVelocity = b.angularVelocity.Add(b.torque.Mul(dt / b.Inertia)).Mul(1 - b.Damping)
	b.velocity = b.velocity.Add(b.force.Mul(dt / b.Mass)).Mul(1 - b.Damping)

	axis := b.angularVelocity.Mul(dt)
	if angle := axis.Len(); angle > 1e-12 {
		b.rotation = mgl64.QuatRotate(angle, axis.Mul(1/angle)).Mul(b.rotation).Normalize()
	}
	b.torque = mgl64.Vec3{}
	b.force = mgl64.Vec3{}
}
