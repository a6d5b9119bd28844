// Package inertial implements inertialization: pose transitions expressed
// as a decaying offset on top of the destination stream instead of a
// crossfade between two streams. At the instant of transition the offset
// reproduces the old pose exactly; it then decays exponentially toward
// zero, so the output converges continuously onto the unmodified new
// stream with no blend window.
package inertial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mottledev/marionette/internal/pose"
)

// negligible is the offset magnitude below which the blender deactivates
// and zeroes its state. Without the cutoff the exponential decay never
// quite reaches zero and keeps dirtying poses forever.
const negligible = 1e-5

// Blender carries one bone's transition offset. The zero value is an
// inactive blender with a default half-life; it applies as a no-op until
// the first Transition.
type Blender struct {
	halfLife float64

	positionOffset   mgl64.Vec3
	positionVelocity mgl64.Vec3
	rotationOffset   mgl64.Vec3 // axis-angle
	rotationVelocity mgl64.Vec3
	active           bool
}

// New returns a blender that decays its offset with the given half-life
// in seconds. Non-positive half-lives are floored so Update never divides
// by zero.
func New(halfLife float64) *Blender {
	b := &Blender{}
	b.SetHalfLife(halfLife)
	return b
}

// SetHalfLife changes the decay rate for subsequent updates.
func (b *Blender) SetHalfLife(halfLife float64) {
	if halfLife < 1e-4 {
		halfLife = 1e-4
	}
	b.halfLife = halfLife
}

// Active reports whether an offset is currently being applied.
func (b *Blender) Active() bool { return b.active }

// Transition captures the instantaneous difference between the pose the
// character was showing and the pose the new stream wants, and activates
// the blender. Offsets accumulate: transitioning again mid-decay folds the
// remaining offset into the new one, so rapid successive transitions stay
// continuous.
func (b *Blender) Transition(old, new pose.Pose) {
	b.positionOffset = b.positionOffset.Add(old.Position.Sub(new.Position))
	b.positionVelocity = b.positionVelocity.Add(old.LinearVelocity.Sub(new.LinearVelocity))
	b.rotationOffset = b.rotationOffset.Add(pose.ToScaledAxis(pose.DeltaRotation(new.Rotation, old.Rotation)))
	b.rotationVelocity = b.rotationVelocity.Add(old.AngularVelocity.Sub(new.AngularVelocity))
	b.active = true
}

// Update decays the offsets and their velocities by 0.5^(dt/halfLife).
// Once every component falls under the negligible threshold the state is
// forced to exactly zero and the blender deactivates.
func (b *Blender) Update(dt float64) {
	if !b.active || dt <= 0 {
		return
	}
	decay := math.Pow(0.5, dt/b.halfLife)
	b.positionOffset = b.positionOffset.Mul(decay)
	b.positionVelocity = b.positionVelocity.Mul(decay)
	b.rotationOffset = b.rotationOffset.Mul(decay)
	b.rotationVelocity = b.rotationVelocity.Mul(decay)

	if b.positionOffset.Len() < negligible &&
		b.positionVelocity.Len() < negligible &&
		b.rotationOffset.Len() < negligible &&
		b.rotationVelocity.Len() < negligible {
		b.deactivate()
	}
}

// Apply returns p with the current offset added. Inactive blenders return
// p unchanged.
func (b *Blender) Apply(p pose.Pose) pose.Pose {
	if !b.active {
		return p
	}
	p.Position = p.Position.Add(b.positionOffset)
	p.LinearVelocity = p.LinearVelocity.Add(b.positionVelocity)
	p.Rotation = pose.FromScaledAxis(b.rotationOffset).Mul(p.Rotation).Normalize()
	p.AngularVelocity = p.AngularVelocity.Add(b.rotationVelocity)
	return p
}

// OffsetMagnitude returns the current positional offset length, useful for
// telemetry and tests.
func (b *Blender) OffsetMagnitude() float64 {
	return b.positionOffset.Len()
}

func (b *Blender) deactivate() {
	b.positionOffset = mgl64.Vec3{}
	b.positionVelocity = mgl64.Vec3{}
	b.rotationOffset = mgl64.Vec3{}
	b.rotationVelocity = mgl64.Vec3{}
	b.active = false
}
