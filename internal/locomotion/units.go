package locomotion

import (
	"github.com/mottledev/marionette/internal/pipeline"
)

// The controller splits its frame across three pipeline units so the
// dependency chain is explicit: stride (gait + foot targets) feeds IK,
// which feeds balance. Limbs are index-partitioned for the parallel IK
// solve; stride and balance are cheap and run as single jobs.

// StrideUnit advances the gait clock and the per-limb stepping state.
type StrideUnit struct {
	c    *Controller
	exec *pipeline.Executor
}

// IKUnit solves FABRIK for every limb in parallel.
type IKUnit struct {
	c    *Controller
	exec *pipeline.Executor
}

// BalanceUnit derives and smooths the body pose from the solved feet.
type BalanceUnit struct {
	c    *Controller
	exec *pipeline.Executor
}

// Units returns the controller's pipeline units in dependency order.
// Attach them in this order and declare stride → ik → balance with
// Pipeline.DependOn.
func (c *Controller) Units(exec *pipeline.Executor) (*StrideUnit, *IKUnit, *BalanceUnit) {
	return &StrideUnit{c: c, exec: exec},
		&IKUnit{c: c, exec: exec},
		&BalanceUnit{c: c, exec: exec}
}

// Register attaches the three units to the pipeline and wires their
// dependencies, returning them for detachment on teardown.
func (c *Controller) Register(p *pipeline.Pipeline) (*StrideUnit, *IKUnit, *BalanceUnit, error) {
	stride, ikU, balance := c.Units(p.Executor())
	for _, u := range []pipeline.Unit{stride, ikU, balance} {
		if err := p.Attach(u); err != nil {
			return nil, nil, nil, err
		}
	}
	if err := p.DependOn(ikU, stride); err != nil {
		return nil, nil, nil, err
	}
	if err := p.DependOn(balance, ikU); err != nil {
		return nil, nil, nil, err
	}
	return stride, ikU, balance, nil
}

func (u *StrideUnit) Name() string      { return "locomotion.stride" }
func (u *StrideUnit) NeedsUpdate() bool { return len(u.c.limbs) > 0 }

// Prepare does the whole stride update: it reads external handles (body,
// chains, ground), which is only legal in the single-threaded phase.
func (u *StrideUnit) Prepare(dt float64) { u.c.prepare(dt) }

// Schedule has no parallel work; stride state was finished in Prepare.
func (u *StrideUnit) Schedule(dep pipeline.Handle) pipeline.Handle { return dep }

func (u *StrideUnit) Apply() {}

func (u *StrideUnit) Buffers() pipeline.BufferAccess {
	return pipeline.BufferAccess{Writes: []string{"foot-targets"}}
}

func (u *IKUnit) Name() string      { return "locomotion.ik" }
func (u *IKUnit) NeedsUpdate() bool { return len(u.c.limbs) > 0 }
func (u *IKUnit) Prepare(float64)   {}

// Schedule fans the limb solves out one range per limb.
func (u *IKUnit) Schedule(dep pipeline.Handle) pipeline.Handle {
	return u.exec.Go(u.Name(), dep, func() {
		u.exec.ParallelFor(len(u.c.limbs), 1, u.c.solveLimbs)
	})
}

// Apply writes the solved limb poses back through the bone handles.
func (u *IKUnit) Apply() { u.c.applyLimbs() }

func (u *IKUnit) Buffers() pipeline.BufferAccess {
	return pipeline.BufferAccess{
		Reads:  []string{"foot-targets"},
		Writes: []string{"limb-poses"},
	}
}

func (u *BalanceUnit) Name() string      { return "locomotion.balance" }
func (u *BalanceUnit) NeedsUpdate() bool { return len(u.c.limbs) > 0 }
func (u *BalanceUnit) Prepare(float64)   {}

func (u *BalanceUnit) Schedule(dep pipeline.Handle) pipeline.Handle {
	return u.exec.Go(u.Name(), dep, u.c.balance)
}

// Apply writes the smoothed body pose back.
func (u *BalanceUnit) Apply() { u.c.applyBody() }

func (u *BalanceUnit) Buffers() pipeline.BufferAccess {
	return pipeline.BufferAccess{
		Reads:  []string{"limb-poses"},
		Writes: []string{"body-pose"},
	}
}
