// Package skeleton defines the boundary between the motion core and its
// external collaborators: the topology analyzer that supplies bone chains,
// the physics world that answers ground queries and receives actuation
// commands, and the transform handles both sides share. The core only ever
// borrows these handles; it reads during Prepare and writes during Apply,
// never owning the underlying bones.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// TransformHandle is borrowed access to one bone's transform. The owning
// side (scene graph, physics body) keeps the storage; the motion core
// reads and writes through the handle at well-defined pipeline phases.
type TransformHandle interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	SetPosition(mgl64.Vec3)
	SetRotation(mgl64.Quat)
}

// BoneTag classifies a bone for solver assignment.
type BoneTag uint8

const (
	TagBody BoneTag = iota
	TagLimb
	TagFoot
	TagTail
	TagHead
)

// Bone couples a transform handle with the per-bone metadata the topology
// collaborator discovered.
type Bone struct {
	Handle TransformHandle
	Mass   float64
	Tag    BoneTag
}

// BoneChain is an ordered run of bones from root to tip with fixed rest
// lengths per segment. Optional effector and pole handles steer IK.
type BoneChain struct {
	Bones   []Bone
	Lengths []float64

	// Effector, when set, overrides procedural foot placement: the chain
	// tip tracks this handle's position instead of the gait cycle.
	Effector   TransformHandle
	PoleTarget TransformHandle // optional bend hint

	// PhaseOffset is this limb's offset into the shared gait cycle, [0, 1).
	PhaseOffset float64
}

// Validation failures. A malformed chain degrades that single limb to a
// no-op; it never aborts the frame for the others.
var (
	ErrNilBone        = errors.New("skeleton: chain contains a nil bone handle")
	ErrSegmentCount   = errors.New("skeleton: segment count must be bone count minus one")
	ErrNegativeLength = errors.New("skeleton: segment rest length is negative")
)

// Validate checks the chain invariants: at least two bones, no nil
// handles, exactly len(Bones)-1 segments, all lengths >= 0.
func (c *BoneChain) Validate() error {
	if len(c.Bones) < 2 {
		return fmt.Errorf("skeleton: chain has %d bones, need at least 2", len(c.Bones))
	}
	if len(c.Lengths) != len(c.Bones)-1 {
		return fmt.Errorf("%w: %d segments for %d bones", ErrSegmentCount, len(c.Lengths), len(c.Bones))
	}
	for i, b := range c.Bones {
		if b.Handle == nil {
			return fmt.Errorf("%w (index %d)", ErrNilBone, i)
		}
	}
	for i, l := range c.Lengths {
		if l < 0 {
			return fmt.Errorf("%w (segment %d: %v)", ErrNegativeLength, i, l)
		}
	}
	return nil
}

// Reach returns the sum of all segment lengths.
func (c *BoneChain) Reach() float64 {
	total := 0.0
	for _, l := range c.Lengths {
		total += l
	}
	return total
}

// Positions copies the chain's current joint positions into dst, growing
// it as needed, and returns the slice. Reading into a caller-owned buffer
// keeps per-frame allocation at zero after warm-up.
func (c *BoneChain) Positions(dst []mgl64.Vec3) []mgl64.Vec3 {
	if cap(dst) < len(c.Bones) {
		dst = make([]mgl64.Vec3, len(c.Bones))
	}
	dst = dst[:len(c.Bones)]
	for i, b := range c.Bones {
		dst[i] = b.Handle.Position()
	}
	return dst
}

// WritePositions writes solved joint positions back through the handles.
func (c *BoneChain) WritePositions(positions []mgl64.Vec3) {
	for i, b := range c.Bones {
		if i < len(positions) {
			b.Handle.SetPosition(positions[i])
		}
	}
}

// WriteRotations writes solved joint rotations back through the handles.
func (c *BoneChain) WriteRotations(rotations []mgl64.Quat) {
	for i, b := range c.Bones {
		if i < len(rotations) {
			b.Handle.SetRotation(rotations[i])
		}
	}
}

// GroundHit is the answer to a ground query.
type GroundHit struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
	// Slope is the surface angle from horizontal in radians.
	Slope float64
}

// GroundQuerier is the collision collaborator: cast down from origin up to
// maxDistance and report the surface, or ok=false for no hit.
type GroundQuerier interface {
	QueryGround(origin mgl64.Vec3, maxDistance float64) (GroundHit, bool)
}

// Actuator is the rigid-body collaborator for one physics joint. The
// ragdoll controller reads simulated state from it and sends torque or
// target-rotation commands, once per physics step.
type Actuator interface {
	Rotation() mgl64.Quat
	AngularVelocity() mgl64.Vec3
	Velocity() mgl64.Vec3
	// AddTorque applies a world-space torque for the current step.
	AddTorque(mgl64.Vec3)
	// AddForce applies a world-space force for the current step.
	AddForce(mgl64.Vec3)
}
