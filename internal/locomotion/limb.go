package locomotion

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/mottledev/marionette/internal/gait"
	"github.com/mottledev/marionette/internal/ik"
	"github.com/mottledev/marionette/internal/inertial"
	"github.com/mottledev/marionette/internal/pose"
	"github.com/mottledev/marionette/internal/skeleton"
	"github.com/mottledev/marionette/internal/spring"
)

// retargetHalfLife is the decay half-life, in seconds, for the blend that
// covers a stance retarget.
const retargetHalfLife = 0.08

// limb is the per-leg state: the borrowed bone chain, the gait edge
// tracker, the stepping targets and the solver buffers. All of it is owned
// by the locomotion controller for the character's lifetime; nothing here
// is allocated per frame.
type limb struct {
	chain   *skeleton.BoneChain
	tracker gait.Tracker

	// hipOffset is the chain root's offset from the body at build time,
	// in body-local space. Its lateral/longitudinal signs classify the limb
	// for the balancer's tilt computation.
	hipOffset mgl64.Vec3

	foot *spring.Vec3

	// blend hides the stance-retarget pop: at the instant of retarget its
	// offset reproduces the old planted target exactly, then decays.
	blend *inertial.Blender

	// Stepping state.
	stanceTarget mgl64.Vec3 // planted foot position while grounded
	swingStart   mgl64.Vec3 // foot position captured at lift-off
	landing      mgl64.Vec3 // predicted touch-down point
	grounded     bool

	// Per-frame capture (Prepare) and solve (Schedule) buffers.
	hipPos      mgl64.Vec3
	effectorPos mgl64.Vec3
	hasEffector bool
	positions   []mgl64.Vec3
	rotations   []mgl64.Quat
	prevRot     []mgl64.Quat
	footPos     mgl64.Vec3 // spring-smoothed foot target fed to IK
	poleHint    mgl64.Vec3
	hasPole     bool
	solved      bool

	// disabled limbs hold their last pose: set when the chain fails
	// validation, logged once at build time.
	disabled bool
}

func newLimb(chain *skeleton.BoneChain, hipOffset mgl64.Vec3, cfg Config, logger *zap.Logger) *limb {
	l := &limb{
		chain:     chain,
		tracker:   gait.Tracker{Offset: chain.PhaseOffset},
		hipOffset: hipOffset,
		foot:      spring.NewVec3(cfg.FootSpring.Frequency, cfg.FootSpring.Damping, cfg.FootSpring.Response),
		blend:     inertial.New(retargetHalfLife),
	}
	if err := chain.Validate(); err != nil {
		logger.Warn("malformed limb chain, degrading to hold-last-pose",
			zap.Error(err),
			zap.Float64("phase_offset", chain.PhaseOffset),
		)
		l.disabled = true
		return l
	}
	n := len(chain.Bones)
	l.positions = make([]mgl64.Vec3, n)
	l.rotations = make([]mgl64.Quat, n)
	l.prevRot = make([]mgl64.Quat, n)
	for i := range l.prevRot {
		l.prevRot[i] = mgl64.QuatIdent()
	}
	tip := chain.Bones[n-1].Handle.Position()
	l.stanceTarget = tip
	l.swingStart = tip
	l.landing = tip
	l.grounded = true
	return l
}

// capture reads the chain's external state into plain buffers and pins
// the root to the body-relative hip position, so the chain rides with the
// torso even when the handles carry no parenting of their own. Runs on the
// frame goroutine during Prepare.
func (l *limb) capture(body pose.Pose) {
	if l.disabled {
		return
	}
	l.positions = l.chain.Positions(l.positions)
	l.hipPos = body.Position.Add(body.Rotation.Rotate(l.hipOffset))
	l.positions[0] = l.hipPos
	if l.chain.PoleTarget != nil {
		l.poleHint = l.chain.PoleTarget.Position()
		l.hasPole = true
	}
	if l.chain.Effector != nil {
		l.effectorPos = l.chain.Effector.Position()
		l.hasEffector = true
	} else {
		l.hasEffector = false
	}
}

// updateStep advances the stepping state machine for this frame. speed and
// velocity describe the body; ground answers landing-height queries.
// Returns the foot target before spring smoothing, for telemetry.
func (l *limb) updateStep(c *gait.Cycle, cfg Config, velocity mgl64.Vec3, ground skeleton.GroundQuerier, dt float64) mgl64.Vec3 {
	if l.disabled {
		return l.footPos
	}

	// An effector overrides gait stepping wholesale: the limb tracks the
	// external target, never swings, and counts as unplanted support.
	if l.hasEffector {
		l.grounded = false
		l.footPos = l.foot.Update(l.effectorPos, velocity, dt)
		return l.effectorPos
	}

	switch l.tracker.Observe(c) {
	case gait.SwingStarted:
		l.grounded = false
		l.swingStart = l.foot.Position()
		l.landing = l.predictLanding(cfg, velocity, ground)
	case gait.StanceStarted:
		l.grounded = true
		l.stanceTarget = l.landing
	case gait.NoEvent:
	}

	var target mgl64.Vec3
	if l.grounded {
		// Re-derive the planted target only when the hip has drifted past
		// the threshold; otherwise the foot stays exactly put.
		if horizontalDist(l.hipPos, l.stanceTarget) > cfg.RetargetThreshold {
			old := l.stanceTarget
			l.stanceTarget = l.groundUnderHip(cfg, ground)
			l.blend.Transition(
				pose.Pose{Position: old, Rotation: mgl64.QuatIdent()},
				pose.Pose{Position: l.stanceTarget, Rotation: mgl64.QuatIdent()},
			)
		}
		target = l.stanceTarget
	} else {
		// Refresh the landing prediction while airborne so direction
		// changes mid-swing still land sensibly.
		l.landing = l.predictLanding(cfg, velocity, ground)
		t := c.SwingProgress(l.tracker.Offset)
		target = pose.Lerp(l.swingStart, l.landing, t)
		target[1] += c.FootHeight(l.tracker.Offset)
	}

	l.blend.Update(dt)
	target = l.blend.Apply(pose.Pose{Position: target, Rotation: mgl64.QuatIdent()}).Position

	l.footPos = l.foot.Update(target, velocity, dt)
	return target
}

// predictLanding projects the hip forward by velocity over the prediction
// window and drops it to the ground. With no ground hit the prediction
// keeps the hip's height minus the chain reach, a conservative fallback.
func (l *limb) predictLanding(cfg Config, velocity mgl64.Vec3, ground skeleton.GroundQuerier) mgl64.Vec3 {
	probe := l.hipPos.Add(velocity.Mul(cfg.PredictionTime))
	if hit, ok := ground.QueryGround(probe, cfg.GroundRay); ok {
		return hit.Point
	}
	return mgl64.Vec3{probe.X(), l.hipPos.Y() - l.chain.Reach()*0.9, probe.Z()}
}

func (l *limb) groundUnderHip(cfg Config, ground skeleton.GroundQuerier) mgl64.Vec3 {
	if hit, ok := ground.QueryGround(l.hipPos, cfg.GroundRay); ok {
		return hit.Point
	}
	return mgl64.Vec3{l.hipPos.X(), l.hipPos.Y() - l.chain.Reach()*0.9, l.hipPos.Z()}
}

// solve runs FABRIK toward the smoothed foot target and derives rotations.
// Safe to run in parallel with other limbs: it touches only this limb's
// buffers.
func (l *limb) solve(up mgl64.Vec3) {
	if l.disabled {
		return
	}
	l.solved = false
	// An unreached target is fine here: the leg simply extends fully.
	if _, err := ik.Solve(l.positions, l.chain.Lengths, l.footPos, ik.Config{
		Pole:    l.poleHint,
		HasPole: l.hasPole,
	}); err != nil {
		return // hold last pose this frame
	}
	ik.PositionsToRotations(l.positions, up, l.prevRot, l.rotations)
	l.solved = true
}

// writeBack pushes solved positions and rotations through the bone
// handles. Runs on the frame goroutine during Apply.
func (l *limb) writeBack() {
	if l.disabled || !l.solved {
		return
	}
	l.chain.WritePositions(l.positions)
	l.chain.WriteRotations(l.rotations)
	copy(l.prevRot, l.rotations)
}

// footHeight returns the current smoothed foot height, used by the
// balancer's tilt term.
func (l *limb) footHeight() float64 { return l.footPos.Y() }

func horizontalDist(a, b mgl64.Vec3) float64 {
	dx := a.X() - b.X()
	dz := a.Z() - b.Z()
	return math.Hypot(dx, dz)
}
