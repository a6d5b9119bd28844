// Package noise wraps the external noise collaborator behind a small pure
// sampling interface. Samplers map (coordinate, time) to bounded values and
// mutate no state, so they are safe to call from parallel jobs.
package noise

import (
	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"
)

// Field is the sampling contract the solvers consume.
type Field interface {
	// Sample returns a scalar in roughly [-1, 1] for a coordinate at time t.
	Sample(coord mgl64.Vec3, t float64) float64
	// SampleVec3 returns an uncorrelated-per-axis vector with components in
	// roughly [-1, 1].
	SampleVec3(coord mgl64.Vec3, t float64) mgl64.Vec3
}

// Perlin is a Field backed by three independently seeded Perlin generators,
// one per output axis.
type Perlin struct {
	x, y, z *perlin.Perlin
	// Frequency scales the input coordinate and time before sampling.
	Frequency float64
}

// Standard Perlin smoothing parameters.
const (
	alpha      = 2.0
	beta       = 2.0
	iterations = 3
)

// NewPerlin returns a deterministic noise field for the given seed.
func NewPerlin(seed int64, frequency float64) *Perlin {
	if frequency <= 0 {
		frequency = 1
	}
	return &Perlin{
		x:         perlin.NewPerlin(alpha, beta, iterations, seed),
		y:         perlin.NewPerlin(alpha, beta, iterations, seed+1),
		z:         perlin.NewPerlin(alpha, beta, iterations, seed+2),
		Frequency: frequency,
	}
}

// Sample implements Field using the x-axis generator.
func (p *Perlin) Sample(coord mgl64.Vec3, t float64) float64 {
	f := p.Frequency
	return p.x.Noise3D(coord.X()*f, coord.Y()*f, coord.Z()*f+t*f)
}

// SampleVec3 implements Field with one generator per axis.
func (p *Perlin) SampleVec3(coord mgl64.Vec3, t float64) mgl64.Vec3 {
	f := p.Frequency
	cx, cy, cz := coord.X()*f, coord.Y()*f, coord.Z()*f
	return mgl64.Vec3{
		p.x.Noise3D(cx, cy, cz+t*f),
		p.y.Noise3D(cx, cy, cz+t*f),
		p.z.Noise3D(cx, cy, cz+t*f),
	}
}

// Zero is a Field that always samples zero, for disabling secondary motion
// without branching at call sites.
type Zero struct{}

func (Zero) Sample(mgl64.Vec3, float64) float64        { return 0 }
func (Zero) SampleVec3(mgl64.Vec3, float64) mgl64.Vec3 { return mgl64.Vec3{} }
