package ragdoll

import (
	"github.com/mottledev/marionette/internal/pipeline"
)

// Unit schedules the ragdoll's PD step on the pipeline: capture in
// Prepare, parallel muscle computation in Schedule, actuation commands in
// Apply. A ragdoll with no muscles opts out of the frame entirely.
type Unit struct {
	c    *Controller
	exec *pipeline.Executor
}

// Unit returns the controller's pipeline unit.
func (c *Controller) Unit(exec *pipeline.Executor) *Unit {
	return &Unit{c: c, exec: exec}
}

func (u *Unit) Name() string      { return "ragdoll.muscles" }
func (u *Unit) NeedsUpdate() bool { return len(u.c.muscles) > 0 }

func (u *Unit) Prepare(dt float64) { u.c.prepare(dt) }

func (u *Unit) Schedule(dep pipeline.Handle) pipeline.Handle {
	return u.exec.Go(u.Name(), dep, func() {
		u.exec.ParallelFor(len(u.c.muscles), 4, u.c.computeRange)
	})
}

func (u *Unit) Apply() { u.c.applyCommands() }

func (u *Unit) Buffers() pipeline.BufferAccess {
	return pipeline.BufferAccess{Writes: []string{"muscle-commands"}}
}
