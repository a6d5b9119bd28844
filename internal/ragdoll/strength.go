package ragdoll

import "math"

// strength below this distance from its target snaps exactly, mirroring
// the inertialization deactivation threshold.
const negligibleStrength = 1e-4

// StrengthState names where the strength machine currently is. Impact
// response and recovery each own exactly one state, so there is a single
// writer for the target at any time.
type StrengthState uint8

const (
	// StrengthIdle holds the resting value.
	StrengthIdle StrengthState = iota
	// StrengthImpacted counts down the post-impact delay.
	StrengthImpacted
	// StrengthRecovering ramps the target back toward resting.
	StrengthRecovering
)

func (s StrengthState) String() string {
	switch s {
	case StrengthIdle:
		return "idle"
	case StrengthImpacted:
		return "impacted"
	case StrengthRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// StrengthConfig are the tunables of the global muscle-strength blend.
type StrengthConfig struct {
	// Resting is the nominal strength scale, usually 1.
	Resting float64
	// HalfLife is how quickly the applied value chases the target, seconds.
	HalfLife float64
	// RecoverDelay is the pause after an impact before recovery starts.
	RecoverDelay float64
	// RecoverRate is the target ramp speed during recovery, per second.
	RecoverRate float64
}

// DefaultStrengthConfig returns tunables that go limp quickly and
// recover over about a second.
func DefaultStrengthConfig() StrengthConfig {
	return StrengthConfig{
		Resting:      1.0,
		HalfLife:     0.08,
		RecoverDelay: 0.4,
		RecoverRate:  1.5,
	}
}

// Strength scales every muscle's gains simultaneously. The applied value
// chases a target through exponential half-life decay, so going limp and
// coming back are continuous blends, never snaps. Impacts drop the target
// and arm a delayed ramp back to resting.
type Strength struct {
	cfg    StrengthConfig
	state  StrengthState
	value  float64
	target float64
	delay  float64
}

// NewStrength returns a strength at rest.
func NewStrength(cfg StrengthConfig) *Strength {
	if cfg.Resting <= 0 {
		cfg.Resting = 1
	}
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = 0.08
	}
	if cfg.RecoverRate <= 0 {
		cfg.RecoverRate = 1.5
	}
	return &Strength{
		cfg:    cfg,
		state:  StrengthIdle,
		value:  cfg.Resting,
		target: cfg.Resting,
	}
}

// Impact drops the target strength by severity (clamped to [0, resting])
// and restarts the recovery delay. Repeated impacts stack until fully
// limp.
func (s *Strength) Impact(severity float64) {
	if severity <= 0 {
		return
	}
	s.target -= severity
	if s.target < 0 {
		s.target = 0
	}
	s.state = StrengthImpacted
	s.delay = s.cfg.RecoverDelay
}

// Update advances the state machine and the smoothed value by dt.
func (s *Strength) Update(dt float64) {
	if dt <= 0 {
		return
	}
	switch s.state {
	case StrengthImpacted:
		s.delay -= dt
		if s.delay <= 0 {
			s.state = StrengthRecovering
		}
	case StrengthRecovering:
		s.target += s.cfg.RecoverRate * dt
		if s.target >= s.cfg.Resting {
			s.target = s.cfg.Resting
			s.state = StrengthIdle
		}
	case StrengthIdle:
	}

	offset := s.value - s.target
	if math.Abs(offset) < negligibleStrength {
		s.value = s.target
		return
	}
	s.value = s.target + offset*math.Pow(0.5, dt/s.cfg.HalfLife)
}

// Value returns the smoothed strength scale, [0, resting].
func (s *Strength) Value() float64 { return s.value }

// State returns the machine's current state, for telemetry.
func (s *Strength) State() StrengthState { return s.state }
