// Package pipeline implements the per-frame job orchestration protocol the
// simulation units compose under: every frame each attached unit is asked
// to Prepare (capture external state into plain buffers, main goroutine),
// then Schedule (enqueue parallel work, chained by dependency handles),
// and, after the frame barrier, Apply (write results back through bone
// handles, main goroutine again). The pipeline owns no unit state, only the
// registration list and the dependency graph.
package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Unit is any simulation component driven by the pipeline. Prepare and
// Apply always run on the frame goroutine; only the work enqueued inside
// Schedule runs in parallel. A unit whose NeedsUpdate returns false is
// skipped for the entire frame, so it can never produce stale writes.
type Unit interface {
	// Name identifies the unit in logs and dependency declarations.
	Name() string
	// NeedsUpdate guards the whole frame for this unit.
	NeedsUpdate() bool
	// Prepare captures external state before any parallel work starts.
	Prepare(dt float64)
	// Schedule enqueues this frame's parallel work. dep completes when
	// every declared producer of this unit has finished; the returned
	// handle must complete when this unit's own work has.
	Schedule(dep Handle) Handle
	// Apply writes results back to shared handles after the barrier.
	Apply()
}

// BufferAccess declares which named buffers a unit reads and writes during
// its scheduled work. Buffers are identified by string tags; ownership is
// persistent (allocated once per character), so the tag set is stable
// frame to frame.
type BufferAccess struct {
	Reads  []string
	Writes []string
}

// BufferDeclarer is implemented by units that declare buffer access. The
// pipeline uses the declarations to detect aliased write buffers between
// units that are not ordered by a dependency, and serializes them instead
// of letting them race.
type BufferDeclarer interface {
	Buffers() BufferAccess
}

// Registration errors.
var (
	ErrAlreadyAttached = errors.New("pipeline: unit already attached")
	ErrNotAttached     = errors.New("pipeline: unit not attached")
)

// Pipeline drives attached units through the prepare/schedule/apply frame
// protocol. It is not safe for concurrent use; exactly one goroutine steps
// a pipeline, matching the engine's main-thread model.
type Pipeline struct {
	logger *zap.Logger
	exec   *Executor

	units []Unit
	// producers[consumer] lists the units whose output the consumer reads.
	producers map[Unit][]Unit

	frame uint64
}

// New returns an empty pipeline scheduling onto exec.
func New(logger *zap.Logger, exec *Executor) (*Pipeline, error) {
	if logger == nil {
		return nil, errors.New("pipeline: logger cannot be nil")
	}
	if exec == nil {
		return nil, errors.New("pipeline: executor cannot be nil")
	}
	return &Pipeline{
		logger:    logger.With(zap.String("component", "pipeline")),
		exec:      exec,
		producers: make(map[Unit][]Unit),
	}, nil
}

// Executor exposes the executor so unit Schedule bodies can enqueue work
// and fan out with ParallelFor.
func (p *Pipeline) Executor() *Executor { return p.exec }

// Attach registers a unit. Frame order follows attachment order for
// Prepare and Apply; Schedule order additionally respects declared
// dependencies.
func (p *Pipeline) Attach(u Unit) error {
	if u == nil {
		return errors.New("pipeline: cannot attach nil unit")
	}
	for _, existing := range p.units {
		if existing == u {
			return fmt.Errorf("%w: %s", ErrAlreadyAttached, u.Name())
		}
	}
	p.units = append(p.units, u)
	p.logger.Debug("unit attached", zap.String("unit", u.Name()))
	return nil
}

// Detach removes a unit and any dependency edges touching it.
func (p *Pipeline) Detach(u Unit) error {
	idx := -1
	for i, existing := range p.units {
		if existing == u {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotAttached, u.Name())
	}
	p.units = append(p.units[:idx], p.units[idx+1:]...)
	delete(p.producers, u)
	for consumer, prods := range p.producers {
		kept := prods[:0]
		for _, prod := range prods {
			if prod != u {
				kept = append(kept, prod)
			}
		}
		p.producers[consumer] = kept
	}
	p.logger.Debug("unit detached", zap.String("unit", u.Name()))
	return nil
}

// DependOn declares that consumer reads producer's output: consumer's
// scheduled work will not start until producer's has completed. Both units
// must already be attached.
func (p *Pipeline) DependOn(consumer, producer Unit) error {
	if !p.attached(consumer) {
		return fmt.Errorf("%w: consumer %s", ErrNotAttached, consumer.Name())
	}
	if !p.attached(producer) {
		return fmt.Errorf("%w: producer %s", ErrNotAttached, producer.Name())
	}
	p.producers[consumer] = append(p.producers[consumer], producer)
	return nil
}

// Step runs one frame. It blocks until all scheduled work has completed
// before running the apply phase, so Apply bodies always observe fully
// written buffers.
func (p *Pipeline) Step(dt float64) {
	p.frame++

	active := make([]Unit, 0, len(p.units))
	for _, u := range p.units {
		if u.NeedsUpdate() {
			active = append(active, u)
		} else {
			p.logger.Debug("unit skipped", zap.String("unit", u.Name()), zap.Uint64("frame", p.frame))
		}
	}
	if len(active) == 0 {
		return
	}

	// Phase 1: single-threaded state capture.
	for _, u := range active {
		u.Prepare(dt)
	}

	// Phase 2: schedule with dependency chaining. serialAfter carries the
	// extra ordering injected for units whose write buffers would otherwise
	// alias a concurrent unit's buffers.
	handles := make(map[Unit]Handle, len(active))
	var all []Handle
	var prevWriters map[string]bufferWriter
	for _, u := range active {
		dep := p.dependencyHandle(u, handles)
		if h, conflict := p.aliasGuard(u, prevWriters); conflict {
			dep = After(dep, h)
		}
		h := u.Schedule(dep)
		handles[u] = h
		all = append(all, h)
		prevWriters = recordWrites(u, h, prevWriters)
	}

	// Frame barrier: the main goroutine suspends here and nowhere else.
	After(all...).Wait()

	// Phase 3: single-threaded write-back, registration order.
	for _, u := range active {
		u.Apply()
	}
}

// dependencyHandle combines the handles of u's declared producers that are
// active this frame. Producers skipped by NeedsUpdate contribute nothing;
// their last output is stable by the exclusive-ownership rule.
func (p *Pipeline) dependencyHandle(u Unit, handles map[Unit]Handle) Handle {
	prods := p.producers[u]
	if len(prods) == 0 {
		return Completed()
	}
	var deps []Handle
	for _, prod := range prods {
		if h, ok := handles[prod]; ok {
			deps = append(deps, h)
		}
	}
	return After(deps...)
}

// bufferWriter remembers which unit last claimed a write buffer this
// frame and the handle covering that work.
type bufferWriter struct {
	unit   Unit
	handle Handle
}

// aliasGuard checks u's declared buffers against the writes of units
// already scheduled this frame. Two units sharing a write buffer, or one
// reading another's write buffer, without an ordering edge is a
// declaration bug; the pipeline logs it and serializes them rather than
// letting the jobs race. Writers u already depends on, directly or
// transitively, are ordered and never flagged.
func (p *Pipeline) aliasGuard(u Unit, prevWriters map[string]bufferWriter) (Handle, bool) {
	decl, ok := u.(BufferDeclarer)
	if !ok || len(prevWriters) == 0 {
		return Handle{}, false
	}
	access := decl.Buffers()
	var guards []Handle
	for _, tag := range append(access.Writes, access.Reads...) {
		w, clash := prevWriters[tag]
		if !clash || w.handle.Done() || p.orderedAfter(u, w.unit) {
			continue
		}
		p.logger.Warn("aliased buffer between concurrent units, serializing",
			zap.String("unit", u.Name()),
			zap.String("buffer", tag),
		)
		guards = append(guards, w.handle)
	}
	if len(guards) == 0 {
		return Handle{}, false
	}
	return After(guards...), true
}

// orderedAfter reports whether producer is reachable from consumer through
// declared dependency edges, meaning consumer's work already waits on it.
func (p *Pipeline) orderedAfter(consumer, producer Unit) bool {
	seen := make(map[Unit]bool)
	var walk func(Unit) bool
	walk = func(u Unit) bool {
		for _, prod := range p.producers[u] {
			if prod == producer {
				return true
			}
			if !seen[prod] {
				seen[prod] = true
				if walk(prod) {
					return true
				}
			}
		}
		return false
	}
	return walk(consumer)
}

func recordWrites(u Unit, h Handle, writers map[string]bufferWriter) map[string]bufferWriter {
	decl, ok := u.(BufferDeclarer)
	if !ok {
		return writers
	}
	if writers == nil {
		writers = make(map[string]bufferWriter)
	}
	for _, tag := range decl.Buffers().Writes {
		writers[tag] = bufferWriter{unit: u, handle: h}
	}
	return writers
}

func (p *Pipeline) attached(u Unit) bool {
	for _, existing := range p.units {
		if existing == u {
			return true
		}
	}
	return false
}
