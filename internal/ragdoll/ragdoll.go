// Package ragdoll keeps simulated bodies tracking an animated pose
// through PD muscles. Each muscle compares its joint's simulated
// orientation against the latest animated snapshot and answers with a
// clamped torque; a shared strength scale blends the whole set between
// full actuation and fully limp without creating or destroying anything.
package ragdoll

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/mottledev/marionette/internal/pose"
	"github.com/mottledev/marionette/internal/skeleton"
)

// Config are the PD gains shared by every muscle of one ragdoll.
type Config struct {
	// AngularSpring scales torque per radian of orientation error.
	AngularSpring float64 `mapstructure:"angular_spring" yaml:"angular_spring"`
	// AngularDamper scales counter-torque per unit angular velocity.
	AngularDamper float64 `mapstructure:"angular_damper" yaml:"angular_damper"`
	// MaxTorque clamps the magnitude of each muscle's output torque.
	MaxTorque float64 `mapstructure:"max_torque" yaml:"max_torque"`

	// LinearSpring scales force per unit of velocity tracking error.
	LinearSpring float64 `mapstructure:"linear_spring" yaml:"linear_spring"`
	// LinearDamper scales counter-force per unit of simulated velocity.
	LinearDamper float64 `mapstructure:"linear_damper" yaml:"linear_damper"`
	// MaxForce clamps the magnitude of each muscle's output force.
	MaxForce float64 `mapstructure:"max_force" yaml:"max_force"`

	Strength StrengthConfig `mapstructure:"strength" yaml:"strength"`
}

// DefaultConfig returns gains for a medium-mass character.
func DefaultConfig() Config {
	return Config{
		AngularSpring: 60,
		AngularDamper: 6,
		MaxTorque:     200,
		LinearSpring:  40,
		LinearDamper:  4,
		MaxForce:      400,
		Strength:      DefaultStrengthConfig(),
	}
}

// Muscle drives one physics joint toward one animated bone. All fields
// besides the two handles are frame-local buffers owned by the controller.
type Muscle struct {
	actuator skeleton.Actuator
	animated skeleton.TransformHandle

	// Captured during Prepare.
	targetRot   mgl64.Quat
	simRot      mgl64.Quat
	angVel      mgl64.Vec3
	vel         mgl64.Vec3
	animatedVel mgl64.Vec3
	lastAnimPos mgl64.Vec3
	primed      bool

	// Computed during the scheduled job, applied during Apply.
	torque mgl64.Vec3
	force  mgl64.Vec3
}

// capture snapshots both sides of the joint. Runs on the frame goroutine.
func (m *Muscle) capture(dt float64) {
	m.targetRot = m.animated.Rotation()
	m.simRot = m.actuator.Rotation()
	m.angVel = m.actuator.AngularVelocity()
	m.vel = m.actuator.Velocity()

	// The animated bone carries no explicit velocity; derive one from its
	// position delta so the linear muscle can track moving targets.
	animPos := m.animated.Position()
	if m.primed && dt > 0 {
		m.animatedVel = animPos.Sub(m.lastAnimPos).Mul(1 / dt)
	} else {
		m.animatedVel = mgl64.Vec3{}
	}
	m.lastAnimPos = animPos
	m.primed = true
}

// compute turns the captured deviation into clamped torque and force
// commands. Pure over the muscle's own buffers, safe to run in parallel.
func (m *Muscle) compute(cfg Config, strength float64) {
	errAxis := pose.ToScaledAxis(pose.DeltaRotation(m.simRot, m.targetRot))
	torque := errAxis.Mul(cfg.AngularSpring * strength).
		Sub(m.angVel.Mul(cfg.AngularDamper * strength))
	m.torque = pose.ClampLen(torque, cfg.MaxTorque)

	force := m.animatedVel.Sub(m.vel).Mul(cfg.LinearSpring * strength).
		Sub(m.vel.Mul(cfg.LinearDamper * strength))
	m.force = pose.ClampLen(force, cfg.MaxForce)
}

// apply sends the commands to the physics collaborator. Runs on the frame
// goroutine, once per step.
func (m *Muscle) apply() {
	m.actuator.AddTorque(m.torque)
	m.actuator.AddForce(m.force)
}

// Controller owns a ragdoll's muscles and their shared strength.
type Controller struct {
	cfg      Config
	logger   *zap.Logger
	muscles  []*Muscle
	strength *Strength
	dt       float64
}

// NewController builds an empty ragdoll; add joints with AddMuscle.
func NewController(cfg Config, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		return nil, errors.New("ragdoll: logger cannot be nil")
	}
	return &Controller{
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "ragdoll")),
		strength: NewStrength(cfg.Strength),
	}, nil
}

// AddMuscle pairs a physics joint with its animated counterpart. Muscles
// live until the controller does.
func (c *Controller) AddMuscle(actuator skeleton.Actuator, animated skeleton.TransformHandle) error {
	if actuator == nil {
		return errors.New("ragdoll: actuator cannot be nil")
	}
	if animated == nil {
		return errors.New("ragdoll: animated handle cannot be nil")
	}
	c.muscles = append(c.muscles, &Muscle{actuator: actuator, animated: animated})
	return nil
}

// Impact weakens the whole ragdoll by severity and arms auto-recovery.
func (c *Controller) Impact(severity float64) {
	c.strength.Impact(severity)
	c.logger.Debug("ragdoll impact",
		zap.Float64("severity", severity),
		zap.String("state", c.strength.State().String()),
	)
}

// Strength returns the current smoothed strength scale.
func (c *Controller) Strength() float64 { return c.strength.Value() }

// StrengthState returns the recovery machine's state, for telemetry.
func (c *Controller) StrengthState() StrengthState { return c.strength.State() }

// MuscleCount reports how many joints this ragdoll drives.
func (c *Controller) MuscleCount() int { return len(c.muscles) }

func (c *Controller) prepare(dt float64) {
	c.dt = dt
	c.strength.Update(dt)
	for _, m := range c.muscles {
		m.capture(dt)
	}
}

// computeRange runs the PD step for muscles [start, end). Each muscle
// touches only its own buffers.
func (c *Controller) computeRange(start, end int) {
	strength := c.strength.Value()
	for i := start; i < end; i++ {
		c.muscles[i].compute(c.cfg, strength)
	}
}

func (c *Controller) applyCommands() {
	for _, m := range c.muscles {
		m.apply()
	}
}
