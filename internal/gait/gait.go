// Package gait implements the phase-based step cycle that sequences limb
// stance and swing. One Cycle carries a single global phase; each limb
// reads it through its own fixed phase offset, so limbs with staggered
// offsets walk out of step with each other while sharing one clock.
package gait

import (
	"math"
)

// Phase identifies where in the cycle a limb currently is. It is a closed
// set: a limb is always in exactly one of the two phases.
type Phase uint8

const (
	// Stance is the ground-contact portion of the cycle.
	Stance Phase = iota
	// Swing is the airborne portion.
	Swing
)

// String implements fmt.Stringer for telemetry.
func (p Phase) String() string {
	if p == Stance {
		return "stance"
	}
	return "swing"
}

// Config are the tunables for one gait cycle.
type Config struct {
	// CycleDuration is the seconds one full cycle takes at reference speed.
	CycleDuration float64 `mapstructure:"cycle_duration" yaml:"cycle_duration"`
	// DutyFactor is the stance fraction of the cycle. Clamped to [0.3, 0.8].
	DutyFactor float64 `mapstructure:"duty_factor" yaml:"duty_factor"`
	// StrideLength scales the speed-driven phase advance: the cycle runs
	// faster the quicker the character moves, so stride frequency scales
	// naturally instead of looping on wall-clock time when nearly still.
	StrideLength float64 `mapstructure:"stride_length" yaml:"stride_length"`
	// StepHeight is the apex of the swing arc in world units.
	StepHeight float64 `mapstructure:"step_height" yaml:"step_height"`
}

// DefaultConfig returns a cycle tuned for a medium walk.
func DefaultConfig() Config {
	return Config{
		CycleDuration: 0.8,
		DutyFactor:    0.6,
		StrideLength:  0.5,
		StepHeight:    0.15,
	}
}

func (c Config) normalized() Config {
	if c.CycleDuration <= 0 {
		c.CycleDuration = 0.8
	}
	if c.DutyFactor < 0.3 {
		c.DutyFactor = 0.3
	} else if c.DutyFactor > 0.8 {
		c.DutyFactor = 0.8
	}
	if c.StrideLength <= 0 {
		c.StrideLength = 0.5
	}
	return c
}

// Cycle is the shared gait clock. It is advanced once per frame by the
// owning locomotion unit and read by every limb.
type Cycle struct {
	cfg   Config
	phase float64 // global phase in [0, 1)
}

// New returns a cycle at phase zero with a validated config.
func New(cfg Config) *Cycle {
	return &Cycle{cfg: cfg.normalized()}
}

// Config returns the validated configuration in effect.
func (c *Cycle) Config() Config { return c.cfg }

// Phase returns the current global phase in [0, 1).
func (c *Cycle) Phase() float64 { return c.phase }

// Advance moves the global phase forward. speed is the character's current
// ground speed; the advance rate is speed/strideLength normalized by the
// cycle duration, so a stationary character stops cycling instead of
// marching in place. dt must already be clamped by the caller's frame
// logic; negative values are ignored.
func (c *Cycle) Advance(dt, speed float64) {
	if dt <= 0 {
		return
	}
	rate := speed / c.cfg.StrideLength
	c.phase = wrap01(c.phase + rate*dt/c.cfg.CycleDuration)
}

// PhaseFor returns the limb-local phase for a limb with the given offset.
func (c *Cycle) PhaseFor(offset float64) float64 {
	return wrap01(c.phase + offset)
}

// PhaseKind returns which phase the limb with the given offset is in.
// The cycle starts in stance: local phase [0, duty) is stance and
// [duty, 1) is swing, which partitions the cycle with no gap or overlap.
func (c *Cycle) PhaseKind(offset float64) Phase {
	if c.PhaseFor(offset) < c.cfg.DutyFactor {
		return Stance
	}
	return Swing
}

// IsInStance reports whether the limb with the given offset is grounded.
func (c *Cycle) IsInStance(offset float64) bool {
	return c.PhaseKind(offset) == Stance
}

// IsInSwing reports whether the limb with the given offset is airborne.
func (c *Cycle) IsInSwing(offset float64) bool {
	return c.PhaseKind(offset) == Swing
}

// SwingProgress maps the limb's position within the swing window to [0, 1].
// It is 0 at lift-off and 1 at touch-down; during stance it reports 0.
func (c *Cycle) SwingProgress(offset float64) float64 {
	local := c.PhaseFor(offset)
	if local < c.cfg.DutyFactor {
		return 0
	}
	return (local - c.cfg.DutyFactor) / (1 - c.cfg.DutyFactor)
}

// FootHeight returns the vertical offset of the step arc at the limb's
// current swing progress: a half-sine that peaks mid-swing and lands at
// zero. Stance always reports 0.
func (c *Cycle) FootHeight(offset float64) float64 {
	t := c.SwingProgress(offset)
	if t <= 0 {
		return 0
	}
	return math.Sin(t*math.Pi) * c.cfg.StepHeight
}

// Bob returns a small normalized vertical bobbing term in [-1, 1] derived
// from the global phase, used by body balancing. Two bounces per cycle,
// matching the two-beat footfall of a diagonal gait.
func (c *Cycle) Bob() float64 {
	return math.Sin(c.phase * 4 * math.Pi)
}

// Tracker detects phase-edge events for one limb by comparing this frame's
// phase kind against last frame's.
type Tracker struct {
	Offset float64
	last   Phase
	primed bool
}

// Event is a phase transition observed by a Tracker.
type Event uint8

const (
	// NoEvent means the limb stayed in its phase this frame.
	NoEvent Event = iota
	// SwingStarted fires on the stance-to-swing edge; the caller captures
	// the current foot position as the swing-arc start.
	SwingStarted
	// StanceStarted fires on the swing-to-stance edge; the caller captures
	// the landing position as the next stance target.
	StanceStarted
)

// Observe updates the tracker against the cycle and returns the event for
// this frame. The first observation primes the tracker and never fires.
func (t *Tracker) Observe(c *Cycle) Event {
	kind := c.PhaseKind(t.Offset)
	if !t.primed {
		t.primed = true
		t.last = kind
		return NoEvent
	}
	if kind == t.last {
		return NoEvent
	}
	t.last = kind
	switch kind {
	case Swing:
		return SwingStarted
	case Stance:
		return StanceStarted
	}
	return NoEvent
}

func wrap01(v float64) float64 {
	v -= math.Floor(v)
	// math.Floor on exact integers leaves 1.0 unreachable, but guard the
	// negative-zero edge anyway.
	if v >= 1 || v < 0 {
		return 0
	}
	return v
}
