// Package spring implements second-order spring-damper solvers used to
// smooth every continuously-varying quantity in the motion core: scalar
// parameters, bone positions, and bone rotations.
//
// The solver is parameterized the way an animator thinks about it rather
// than in raw stiffness/damping coefficients:
//
//   - frequency: how fast the state chases its target, in Hz.
//   - damping:   <1 oscillates, 1 settles critically, >1 is sluggish.
//   - response:  0 eases in, 1 reacts immediately, >1 overshoots, and
//     negative values wind up in the opposite direction before moving.
//
// Internally these map onto the (k1, k2, k3) coefficients of the standard
// second-order system y + k1*y' + k2*y'' = x + k3*x'.
package spring

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mottledev/marionette/internal/pose"
)

// MaxDeltaTime is the upper clamp applied to every integration step. A
// stalled or paused frame otherwise feeds a huge dt into the integrator and
// launches the state across the world.
const MaxDeltaTime = 0.1

// Params holds the derived integration coefficients for one spring
// configuration. A single Params value is shared by any number of solver
// states driven with the same feel.
type Params struct {
	k1, k2, k3 float64
}

// Configure derives (k1, k2, k3) from the animator-facing parameters.
// Frequency must be positive; it is floored to a small value so a zeroed
// config degrades to a very slow spring instead of dividing by zero.
func Configure(frequency, damping, response float64) Params {
	if frequency < 1e-4 {
		frequency = 1e-4
	}
	tau := 2 * math.Pi * frequency
	return Params{
		k1: damping / (math.Pi * frequency),
		k2: 1 / (tau * tau),
		k3: response * damping / tau,
	}
}

// stableK2 replaces k2 with a dt-dependent lower bound. When the timestep
// is large relative to the spring frequency the raw k2 makes the velocity
// update explosive; the bound keeps the discrete system inside its
// stability region at the cost of slight extra damping on bad frames.
func (p Params) stableK2(dt float64) float64 {
	k2 := p.k2
	if b := dt*dt/2 + dt*p.k1/2; b > k2 {
		k2 = b
	}
	if b := dt * p.k1; b > k2 {
		k2 = b
	}
	return k2
}

// clampDt bounds dt to (0, MaxDeltaTime].
func clampDt(dt float64) float64 {
	if dt > MaxDeltaTime {
		return MaxDeltaTime
	}
	if dt < 0 {
		return 0
	}
	return dt
}

// Scalar is a spring-driven float64. The zero value is usable: the first
// Update snaps the state onto the target with zero velocity so there is no
// initial lurch.
type Scalar struct {
	params      Params
	position    float64
	velocity    float64
	initialized bool
}

// NewScalar returns a scalar solver with the given feel.
func NewScalar(frequency, damping, response float64) *Scalar {
	return &Scalar{params: Configure(frequency, damping, response)}
}

// Reconfigure swaps the spring feel in place, keeping position and
// velocity continuous.
func (s *Scalar) Reconfigure(frequency, damping, response float64) {
	s.params = Configure(frequency, damping, response)
}

// Reset forces the state to position with zero velocity.
func (s *Scalar) Reset(position float64) {
	s.position = position
	s.velocity = 0
	s.initialized = true
}

// Position returns the current spring position without advancing it.
func (s *Scalar) Position() float64 { return s.position }

// Velocity returns the current spring velocity.
func (s *Scalar) Velocity() float64 { return s.velocity }

// Update advances the spring toward target over dt and returns the new
// position. targetVelocity feeds the anticipation term; pass 0 when the
// target's rate of change is unknown.
func (s *Scalar) Update(target, targetVelocity, dt float64) float64 {
	if !s.initialized {
		s.Reset(target)
		return s.position
	}
	dt = clampDt(dt)
	if dt == 0 {
		return s.position
	}
	k2 := s.params.stableK2(dt)
	// Semi-implicit Euler: position first, then velocity from the spring
	// force at the new position.
	s.position += s.velocity * dt
	s.velocity += dt * (target + s.params.k3*targetVelocity - s.position - s.params.k1*s.velocity) / k2
	return s.position
}

// Vec3 is a spring-driven 3-vector, integrated per component with shared
// coefficients.
type Vec3 struct {
	params      Params
	position    mgl64.Vec3
	velocity    mgl64.Vec3
	initialized bool
}

// NewVec3 returns a vector solver with the given feel.
func NewVec3(frequency, damping, response float64) *Vec3 {
	return &Vec3{params: Configure(frequency, damping, response)}
}

// Reconfigure swaps the spring feel in place.
func (s *Vec3) Reconfigure(frequency, damping, response float64) {
	s.params = Configure(frequency, damping, response)
}

// Reset forces the state to position with zero velocity.
func (s *Vec3) Reset(position mgl64.Vec3) {
	s.position = position
	s.velocity = mgl64.Vec3{}
	s.initialized = true
}

// Position returns the current spring position without advancing it.
func (s *Vec3) Position() mgl64.Vec3 { return s.position }

// Velocity returns the current spring velocity.
func (s *Vec3) Velocity() mgl64.Vec3 { return s.velocity }

// Update advances the spring toward target over dt and returns the new
// position.
func (s *Vec3) Update(target, targetVelocity mgl64.Vec3, dt float64) mgl64.Vec3 {
	if !s.initialized {
		s.Reset(target)
		return s.position
	}
	dt = clampDt(dt)
	if dt == 0 {
		return s.position
	}
	k2 := s.params.stableK2(dt)
	s.position = s.position.Add(s.velocity.Mul(dt))
	accel := target.
		Add(targetVelocity.Mul(s.params.k3)).
		Sub(s.position).
		Sub(s.velocity.Mul(s.params.k1)).
		Mul(dt / k2)
	s.velocity = s.velocity.Add(accel)
	return s.position
}

// Quat is a spring-driven rotation. Integration happens on the axis-angle
// error between the current rotation and the target, so the state always
// travels the shortest arc, with an explicit angular velocity vector.
type Quat struct {
	params      Params
	rotation    mgl64.Quat
	velocity    mgl64.Vec3 // angular velocity, radians/s, world space
	initialized bool
}

// NewQuat returns a rotation solver with the given feel.
func NewQuat(frequency, damping, response float64) *Quat {
	return &Quat{params: Configure(frequency, damping, response)}
}

// Reconfigure swaps the spring feel in place.
func (s *Quat) Reconfigure(frequency, damping, response float64) {
	s.params = Configure(frequency, damping, response)
}

// Reset forces the state to rotation with zero angular velocity.
func (s *Quat) Reset(rotation mgl64.Quat) {
	s.rotation = rotation.Normalize()
	s.velocity = mgl64.Vec3{}
	s.initialized = true
}

// Rotation returns the current spring rotation without advancing it.
func (s *Quat) Rotation() mgl64.Quat { return s.rotation }

// AngularVelocity returns the current angular velocity vector.
func (s *Quat) AngularVelocity() mgl64.Vec3 { return s.velocity }

// Update advances the spring toward target over dt and returns the new
// rotation. The integration mirrors the vector solver exactly, applied to
// the shortest-path axis-angle error.
func (s *Quat) Update(target mgl64.Quat, targetVelocity mgl64.Vec3, dt float64) mgl64.Quat {
	if !s.initialized {
		s.Reset(target)
		return s.rotation
	}
	dt = clampDt(dt)
	if dt == 0 {
		return s.rotation
	}
	k2 := s.params.stableK2(dt)

	s.rotation = pose.FromScaledAxis(s.velocity.Mul(dt)).Mul(s.rotation).Normalize()
	err := pose.ToScaledAxis(pose.DeltaRotation(s.rotation, target))
	accel := err.
		Add(targetVelocity.Mul(s.params.k3)).
		Sub(s.velocity.Mul(s.params.k1)).
		Mul(dt / k2)
	s.velocity = s.velocity.Add(accel)
	return s.rotation
}
