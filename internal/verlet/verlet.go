// Package verlet implements position-based chain dynamics for flexible
// appendages like tails, spines and antennae. Particles carry current and
// previous positions; velocity is implicit in their difference, which makes
// the integration unconditionally stable and impulses trivial to inject.
package verlet

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mottledev/marionette/internal/noise"
)

// Particle is one point mass in the chain.
type Particle struct {
	Position mgl64.Vec3
	Previous mgl64.Vec3
}

// Velocity returns the implicit per-step velocity (position delta).
func (p Particle) Velocity() mgl64.Vec3 {
	return p.Position.Sub(p.Previous)
}

// Config are the solver tunables for one chain.
type Config struct {
	// Damping bleeds implicit velocity per step, [0, 1). 0 preserves all
	// momentum, 1 freezes the chain.
	Damping float64 `mapstructure:"damping" yaml:"damping"`
	// Gravity is the constant acceleration applied to free particles.
	Gravity mgl64.Vec3 `mapstructure:"gravity" yaml:"gravity"`
	// Stiffness scales the constraint correction, (0, 1]. Values above 1
	// are clamped; they would make the relaxation diverge.
	Stiffness float64 `mapstructure:"stiffness" yaml:"stiffness"`
	// Iterations is the constraint relaxation count per step.
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
	// NoiseAmplitude scales the per-particle rest perturbation sampled from
	// the noise field. Zero disables secondary motion.
	NoiseAmplitude float64 `mapstructure:"noise_amplitude" yaml:"noise_amplitude"`
	// NoiseFrequency is passed through to the field's time axis.
	NoiseFrequency float64 `mapstructure:"noise_frequency" yaml:"noise_frequency"`
}

// DefaultConfig returns a softly damped chain under light gravity.
func DefaultConfig() Config {
	return Config{
		Damping:        0.08,
		Gravity:        mgl64.Vec3{0, -9.81, 0},
		Stiffness:      1.0,
		Iterations:     3,
		NoiseFrequency: 1.0,
	}
}

func (c Config) normalized() Config {
	if c.Damping < 0 {
		c.Damping = 0
	} else if c.Damping > 1 {
		c.Damping = 1
	}
	if c.Stiffness <= 0 || c.Stiffness > 1 {
		c.Stiffness = 1
	}
	if c.Iterations < 1 {
		c.Iterations = 1
	}
	if c.NoiseFrequency <= 0 {
		c.NoiseFrequency = 1
	}
	return c
}

// Chain is a run of particles connected by fixed-length constraints. The
// root particle (index 0) is not simulated; it is driven directly to an
// external anchor each step.
type Chain struct {
	cfg       Config
	particles []Particle
	lengths   []float64
	field     noise.Field
	time      float64
}

// NewChain builds a chain from initial particle positions and per-segment
// rest lengths (len(lengths) == len(positions)-1). field supplies the
// optional rest perturbation; pass noise.Zero{} to disable.
func NewChain(positions []mgl64.Vec3, lengths []float64, cfg Config, field noise.Field) (*Chain, error) {
	if len(positions) < 2 {
		return nil, fmt.Errorf("verlet: chain needs at least 2 particles, got %d", len(positions))
	}
	if len(lengths) != len(positions)-1 {
		return nil, fmt.Errorf("verlet: %d segments for %d particles", len(lengths), len(positions))
	}
	for i, l := range lengths {
		if l < 0 {
			return nil, fmt.Errorf("verlet: segment %d has negative rest length %v", i, l)
		}
	}
	if field == nil {
		field = noise.Zero{}
	}

	particles := make([]Particle, len(positions))
	for i, p := range positions {
		particles[i] = Particle{Position: p, Previous: p}
	}
	rest := make([]float64, len(lengths))
	copy(rest, lengths)

	return &Chain{
		cfg:       cfg.normalized(),
		particles: particles,
		lengths:   rest,
		field:     field,
	}, nil
}

// Particles exposes the simulated particles read-only for write-back and
// inspection. Callers must not mutate through it mid-step.
func (c *Chain) Particles() []Particle { return c.particles }

// Len returns the particle count.
func (c *Chain) Len() int { return len(c.particles) }

// Step advances the simulation: the root is pinned to anchor, free
// particles take a Verlet update, then the length constraints relax for
// the configured iteration count. dt at or below zero is a no-op.
func (c *Chain) Step(anchor mgl64.Vec3, dt float64) {
	if dt <= 0 {
		return
	}
	c.time += dt

	// Root follows the anchor directly; its previous position still tracks
	// so the next segment sees the anchor's velocity.
	root := &c.particles[0]
	root.Previous = root.Position
	root.Position = anchor

	gdt2 := c.cfg.Gravity.Mul(dt * dt)
	keep := 1 - c.cfg.Damping
	for i := 1; i < len(c.particles); i++ {
		p := &c.particles[i]
		next := p.Position.
			Add(p.Position.Sub(p.Previous).Mul(keep)).
			Add(gdt2)
		if c.cfg.NoiseAmplitude > 0 {
			drift := c.field.SampleVec3(p.Position, c.time*c.cfg.NoiseFrequency)
			next = next.Add(drift.Mul(c.cfg.NoiseAmplitude * dt))
		}
		p.Previous = p.Position
		p.Position = next
	}

	for iter := 0; iter < c.cfg.Iterations; iter++ {
		c.relaxConstraints()
	}
}

// relaxConstraints runs one pass of length corrections root to tip. The
// particle adjacent to the root absorbs the full correction (the root is
// pinned); further down, parent and child split it evenly. Corrections are
// scaled by stiffness, so error shrinks monotonically with iterations for
// stiffness <= 1.
func (c *Chain) relaxConstraints() {
	for i := 1; i < len(c.particles); i++ {
		parent := &c.particles[i-1]
		child := &c.particles[i]

		delta := child.Position.Sub(parent.Position)
		dist := delta.Len()
		if dist < 1e-12 {
			// Coincident particles carry no direction; push the child out
			// along the previous segment or a fixed axis.
			delta = fallbackAxis(c.particles, i)
			dist = 1
		}
		diff := (dist - c.lengths[i-1]) / dist
		correction := delta.Mul(0.5 * c.cfg.Stiffness * diff)

		if i == 1 {
			// Root is pinned: child takes the whole correction.
			child.Position = child.Position.Sub(correction.Mul(2))
			continue
		}
		parent.Position = parent.Position.Add(correction)
		child.Position = child.Position.Sub(correction)
	}
}

// ApplyImpulse displaces particle i's previous position by -impulse, which
// injects velocity consistent with the implicit-velocity model: the next
// step sees an enlarged position delta and carries it forward.
func (c *Chain) ApplyImpulse(i int, impulse mgl64.Vec3) {
	if i <= 0 || i >= len(c.particles) {
		return // the root is externally driven, impulses on it are meaningless
	}
	c.particles[i].Previous = c.particles[i].Previous.Sub(impulse)
}

// MaxLengthError returns the largest absolute per-segment length error,
// for telemetry and convergence tests.
func (c *Chain) MaxLengthError() float64 {
	worst := 0.0
	for i := 1; i < len(c.particles); i++ {
		d := c.particles[i].Position.Sub(c.particles[i-1].Position).Len()
		err := d - c.lengths[i-1]
		if err < 0 {
			err = -err
		}
		if err > worst {
			worst = err
		}
	}
	return worst
}

// MeanLengthError returns the average absolute per-segment length error.
func (c *Chain) MeanLengthError() float64 {
	if len(c.lengths) == 0 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(c.particles); i++ {
		d := c.particles[i].Position.Sub(c.particles[i-1].Position).Len()
		err := d - c.lengths[i-1]
		if err < 0 {
			err = -err
		}
		total += err
	}
	return total / float64(len(c.lengths))
}

func fallbackAxis(particles []Particle, i int) mgl64.Vec3 {
	if i >= 2 {
		prev := particles[i-1].Position.Sub(particles[i-2].Position)
		if prev.Len() > 1e-12 {
			return prev.Normalize()
		}
	}
	return mgl64.Vec3{0, -1, 0}
}
