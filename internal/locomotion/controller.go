// Package locomotion turns a movement intent into per-frame foot placement
// and body balance for a legged character: a shared gait cycle sequences
// the limbs, each limb steps between planted and predicted positions, and
// the torso follows the feet through spring-smoothed position and
// orientation targets.
package locomotion

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/mottledev/marionette/internal/gait"
	"github.com/mottledev/marionette/internal/pose"
	"github.com/mottledev/marionette/internal/skeleton"
	"github.com/mottledev/marionette/internal/spring"
)

// Controller owns the locomotion state for one character: the gait clock,
// the limb set, and the body springs. It exposes three pipeline units
// (gait/feet, IK, balance) that share this state under the pipeline's
// ordering guarantees.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	cycle *gait.Cycle
	limbs []*limb

	body       skeleton.TransformHandle
	ground     skeleton.GroundQuerier
	bodyPos    *spring.Vec3
	bodyRot    *spring.Quat
	moveInput  mgl64.Vec3 // desired ground velocity, set by the caller
	velocity   mgl64.Vec3 // smoothed actual velocity estimate
	lastBodyXZ mgl64.Vec3

	// Frame capture.
	dt           float64
	bodyPose     pose.Pose
	bodyGroundY  float64
	bodyOnGround bool
	targetPos    mgl64.Vec3
	targetRot    mgl64.Quat
	hasTarget    bool
}

// NewController builds a controller over the given body handle and limb
// chains. Chains that fail validation degrade to hold-last-pose limbs with
// a warning; the constructor only errors on unusable top-level inputs.
func NewController(
	cfg Config,
	body skeleton.TransformHandle,
	chains []*skeleton.BoneChain,
	ground skeleton.GroundQuerier,
	logger *zap.Logger,
) (*Controller, error) {
	if body == nil {
		return nil, errors.New("locomotion: body handle cannot be nil")
	}
	if ground == nil {
		return nil, errors.New("locomotion: ground querier cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("locomotion: logger cannot be nil")
	}
	if len(chains) == 0 {
		return nil, errors.New("locomotion: need at least one limb chain")
	}

	c := &Controller{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "locomotion")),
		cycle:  gait.New(cfg.Gait),
		body:   body,
		ground: ground,
		bodyPos: spring.NewVec3(
			cfg.BodySpring.Frequency, cfg.BodySpring.Damping, cfg.BodySpring.Response),
		bodyRot: spring.NewQuat(
			cfg.BodyRotationSpring.Frequency, cfg.BodyRotationSpring.Damping, cfg.BodyRotationSpring.Response),
	}

	bodyPos := body.Position()
	bodyRotInv := body.Rotation().Inverse()
	for _, chain := range chains {
		var hipOffset mgl64.Vec3
		if len(chain.Bones) > 0 && chain.Bones[0].Handle != nil {
			hipOffset = bodyRotInv.Rotate(chain.Bones[0].Handle.Position().Sub(bodyPos))
		}
		c.limbs = append(c.limbs, newLimb(chain, hipOffset, cfg, c.logger))
	}
	c.lastBodyXZ = bodyPos
	return c, nil
}

// SetMoveInput sets the desired ground velocity for subsequent frames.
// Call between frames, not mid-step.
func (c *Controller) SetMoveInput(velocity mgl64.Vec3) {
	c.moveInput = velocity
}

// Cycle exposes the gait clock read-only, for telemetry.
func (c *Controller) Cycle() *gait.Cycle { return c.cycle }

// GroundedLimbs returns how many limbs are currently planted.
func (c *Controller) GroundedLimbs() int {
	n := 0
	for _, l := range c.limbs {
		if !l.disabled && l.grounded {
			n++
		}
	}
	return n
}

// FootPosition returns limb i's smoothed foot position, for telemetry and
// tests.
func (c *Controller) FootPosition(i int) mgl64.Vec3 {
	if i < 0 || i >= len(c.limbs) {
		return mgl64.Vec3{}
	}
	return c.limbs[i].footPos
}

// prepare captures body pose and per-limb chain state, advances the gait
// clock and steps every limb's placement state machine. Runs on the frame
// goroutine.
func (c *Controller) prepare(dt float64) {
	c.dt = dt
	c.bodyPose = pose.Pose{
		Position: c.body.Position(),
		Rotation: c.body.Rotation(),
	}

	// Velocity estimate: blend of commanded input and observed body delta.
	if dt > 0 {
		observed := c.bodyPose.Position.Sub(c.lastBodyXZ).Mul(1 / dt)
		c.velocity = pose.Lerp(observed, c.moveInput, 0.5)
	}
	c.lastBodyXZ = c.bodyPose.Position

	speed := math.Hypot(c.velocity.X(), c.velocity.Z())
	c.cycle.Advance(dt, speed)

	// The ground querier is a collaborator, so it is only touched here on
	// the frame goroutine; the balance job reads the buffered answer.
	c.bodyOnGround = false
	if hit, ok := c.ground.QueryGround(c.bodyPose.Position, c.cfg.GroundRay); ok {
		c.bodyGroundY = hit.Point.Y()
		c.bodyOnGround = true
	}

	for _, l := range c.limbs {
		l.capture(c.bodyPose)
		l.updateStep(c.cycle, c.cfg, c.velocity, c.ground, dt)
	}
}

// solveLimbs runs FABRIK for the index range [start, end). Limbs own
// disjoint buffers, so ranges are safe to run in parallel.
func (c *Controller) solveLimbs(start, end int) {
	up := c.bodyPose.Up()
	for i := start; i < end; i++ {
		c.limbs[i].solve(up)
	}
}

// balance derives the body's position and orientation targets from the
// solved feet and advances the body springs. Runs inside the balance
// unit's scheduled job, after IK, and touches only state buffered during
// Prepare.
func (c *Controller) balance() {
	centroid, _ := c.feetCentroid()

	// Height: ground under the body plus stand height plus gait bobbing.
	groundY := centroid.Y()
	if c.bodyOnGround {
		groundY = c.bodyGroundY
	}
	c.targetPos = mgl64.Vec3{
		centroid.X(),
		groundY + c.cfg.StandHeight + c.cycle.Bob()*c.cfg.BobAmplitude,
		centroid.Z(),
	}

	// Orientation: face the velocity, tilt into foot-height asymmetry,
	// lean into the movement.
	forward := mgl64.Vec3{c.velocity.X(), 0, c.velocity.Z()}
	speed := forward.Len()
	if speed < 1e-3 {
		forward = c.bodyPose.Forward()
		forward[1] = 0
	}
	facing, ok := pose.LookRotation(forward, mgl64.Vec3{0, 1, 0})
	if !ok {
		facing = c.bodyPose.Rotation
	}

	roll, pitch := c.tiltFromFeet()
	lean := clamp(speed*c.cfg.LeanPerSpeed, -c.cfg.MaxTilt, c.cfg.MaxTilt)
	tilt := mgl64.QuatRotate(roll, mgl64.Vec3{0, 0, 1}).
		Mul(mgl64.QuatRotate(pitch+lean, mgl64.Vec3{1, 0, 0}))
	c.targetRot = facing.Mul(tilt).Normalize()

	c.bodyPos.Update(c.targetPos, c.velocity, c.dt)
	c.bodyRot.Update(c.targetRot, mgl64.Vec3{}, c.dt)
	c.hasTarget = true
}

// feetCentroid returns the centroid of grounded feet, falling back to all
// feet when airborne, and whether any limb was grounded.
func (c *Controller) feetCentroid() (mgl64.Vec3, bool) {
	var sum mgl64.Vec3
	count := 0
	for _, l := range c.limbs {
		if l.disabled || !l.grounded {
			continue
		}
		sum = sum.Add(l.footPos)
		count++
	}
	if count > 0 {
		return sum.Mul(1 / float64(count)), true
	}
	for _, l := range c.limbs {
		if l.disabled {
			continue
		}
		sum = sum.Add(l.footPos)
		count++
	}
	if count == 0 {
		return c.bodyPose.Position, false
	}
	return sum.Mul(1 / float64(count)), false
}

// tiltFromFeet derives roll from left/right foot-height asymmetry and
// pitch from front/back asymmetry, both clamped to MaxTilt. Limb side and
// end come from the hip offset signs captured at build time.
func (c *Controller) tiltFromFeet() (roll, pitch float64) {
	var left, right, front, back float64
	var nl, nr, nf, nb int
	for _, l := range c.limbs {
		if l.disabled {
			continue
		}
		h := l.footHeight()
		if l.hipOffset.X() < 0 {
			left += h
			nl++
		} else {
			right += h
			nr++
		}
		if l.hipOffset.Z() > 0 {
			front += h
			nf++
		} else {
			back += h
			nb++
		}
	}
	if nl > 0 && nr > 0 {
		roll = clamp((right/float64(nr)-left/float64(nl))*2, -c.cfg.MaxTilt, c.cfg.MaxTilt)
	}
	if nf > 0 && nb > 0 {
		pitch = clamp((back/float64(nb)-front/float64(nf))*2, -c.cfg.MaxTilt, c.cfg.MaxTilt)
	}
	return roll, pitch
}

// applyLimbs writes limb solves back through the bone handles.
func (c *Controller) applyLimbs() {
	for _, l := range c.limbs {
		l.writeBack()
	}
}

// applyBody writes the spring-smoothed body pose back.
func (c *Controller) applyBody() {
	if !c.hasTarget {
		return
	}
	c.body.SetPosition(c.bodyPos.Position())
	c.body.SetRotation(c.bodyRot.Rotation())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
