package locomotion

import (
	"github.com/mottledev/marionette/internal/gait"
)

// SpringConfig names the feel of one spring-smoothed quantity.
type SpringConfig struct {
	Frequency float64 `mapstructure:"frequency" yaml:"frequency"`
	Damping   float64 `mapstructure:"damping" yaml:"damping"`
	Response  float64 `mapstructure:"response" yaml:"response"`
}

// Config are the locomotion tunables for one character.
type Config struct {
	// Gait is the shared step-cycle configuration.
	Gait gait.Config `mapstructure:"gait" yaml:"gait"`

	// StandHeight is the body's resting height above the ground.
	StandHeight float64 `mapstructure:"stand_height" yaml:"stand_height"`
	// BobAmplitude scales the gait-phase vertical bobbing of the body.
	BobAmplitude float64 `mapstructure:"bob_amplitude" yaml:"bob_amplitude"`
	// MaxTilt clamps body roll/pitch from foot-height asymmetry, radians.
	MaxTilt float64 `mapstructure:"max_tilt" yaml:"max_tilt"`
	// LeanPerSpeed is the forward lean added per unit of ground speed,
	// radians.
	LeanPerSpeed float64 `mapstructure:"lean_per_speed" yaml:"lean_per_speed"`

	// RetargetThreshold is how far the hip may drift from a planted foot
	// before the stance target is re-derived. Prevents micro-sliding.
	RetargetThreshold float64 `mapstructure:"retarget_threshold" yaml:"retarget_threshold"`
	// PredictionTime projects the hip by velocity to predict the swing
	// landing point, seconds.
	PredictionTime float64 `mapstructure:"prediction_time" yaml:"prediction_time"`
	// GroundRay is the max distance for ground queries below a probe point.
	GroundRay float64 `mapstructure:"ground_ray" yaml:"ground_ray"`

	// FootSpring smooths each foot's visual trajectory.
	FootSpring SpringConfig `mapstructure:"foot_spring" yaml:"foot_spring"`
	// BodySpring smooths the body position.
	BodySpring SpringConfig `mapstructure:"body_spring" yaml:"body_spring"`
	// BodyRotationSpring smooths the body orientation.
	BodyRotationSpring SpringConfig `mapstructure:"body_rotation_spring" yaml:"body_rotation_spring"`
}

// DefaultConfig returns tunables for a medium-sized quadruped walker.
func DefaultConfig() Config {
	return Config{
		Gait:              gait.DefaultConfig(),
		StandHeight:       0.5,
		BobAmplitude:      0.02,
		MaxTilt:           0.35,
		LeanPerSpeed:      0.06,
		RetargetThreshold: 0.25,
		PredictionTime:    0.25,
		GroundRay:         2.0,
		FootSpring:        SpringConfig{Frequency: 6, Damping: 1, Response: 0},
		BodySpring:        SpringConfig{Frequency: 3, Damping: 1, Response: 0},
		BodyRotationSpring: SpringConfig{
			Frequency: 2.5, Damping: 1, Response: 0,
		},
	}
}
