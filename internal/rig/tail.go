package rig

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mottledev/marionette/internal/noise"
	"github.com/mottledev/marionette/internal/pipeline"
	"github.com/mottledev/marionette/internal/skeleton"
	"github.com/mottledev/marionette/internal/verlet"
)

// tailUnit runs the secondary-motion chain: the root particle rides the
// body at a fixed offset, the rest trails behind under the Verlet solver.
// Positions write back through the tail bone handles during Apply.
type tailUnit struct {
	bones  *skeleton.BoneChain
	chain  *verlet.Chain
	body   skeleton.TransformHandle
	offset mgl64.Vec3
	exec   *pipeline.Executor

	// Frame capture.
	anchor mgl64.Vec3
	dt     float64
}

func newTailUnit(
	bones *skeleton.BoneChain,
	cfg verlet.Config,
	body skeleton.TransformHandle,
	offset mgl64.Vec3,
	field noise.Field,
) (*tailUnit, error) {
	if err := bones.Validate(); err != nil {
		return nil, err
	}
	positions := bones.Positions(nil)
	chain, err := verlet.NewChain(positions, bones.Lengths, cfg, field)
	if err != nil {
		return nil, fmt.Errorf("building tail chain: %w", err)
	}
	return &tailUnit{
		bones:  bones,
		chain:  chain,
		body:   body,
		offset: offset,
	}, nil
}

func (u *tailUnit) Name() string      { return "rig.tail" }
func (u *tailUnit) NeedsUpdate() bool { return u.chain.Len() > 0 }

// Prepare reads the body handle; the anchor therefore trails the balanced
// body pose by one frame, which the spring smoothing makes invisible.
func (u *tailUnit) Prepare(dt float64) {
	u.dt = dt
	u.anchor = u.body.Position().Add(u.body.Rotation().Rotate(u.offset))
}

func (u *tailUnit) Schedule(dep pipeline.Handle) pipeline.Handle {
	return u.exec.Go(u.Name(), dep, func() {
		u.chain.Step(u.anchor, u.dt)
	})
}

// Apply writes the settled particle positions back through the handles.
func (u *tailUnit) Apply() {
	particles := u.chain.Particles()
	for i, b := range u.bones.Bones {
		if i < len(particles) {
			b.Handle.SetPosition(particles[i].Position)
		}
	}
}

func (u *tailUnit) Buffers() pipeline.BufferAccess {
	return pipeline.BufferAccess{
		Reads:  []string{"body-pose"},
		Writes: []string{"tail-pose"},
	}
}
