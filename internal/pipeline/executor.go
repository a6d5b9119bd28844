package pipeline

import (
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor runs scheduled jobs on a bounded set of goroutines. It never
// lets a panic escape a job: a panicking job is logged and treated as
// complete, so one bad element cannot take the frame down.
type Executor struct {
	logger  *zap.Logger
	workers int

	inflight sync.WaitGroup
}

// NewExecutor returns an executor using at most workers goroutines for
// parallel-for fan-out. Non-positive workers defaults to GOMAXPROCS.
func NewExecutor(logger *zap.Logger, workers int) *Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Executor{
		logger:  logger.With(zap.String("component", "executor")),
		workers: workers,
	}
}

// Workers returns the configured fan-out bound.
func (e *Executor) Workers() int { return e.workers }

// Go schedules fn to run after dep completes and returns a handle for its
// completion. name identifies the job in logs.
func (e *Executor) Go(name string, dep Handle, fn func()) Handle {
	done := make(chan struct{})
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer close(done)
		dep.Wait()
		e.run(name, fn)
	}()
	return Handle{done: done}
}

// ParallelFor splits [0, n) into ranges of at most grain elements and runs
// fn over them on up to Workers goroutines, blocking until all ranges
// finish. It is intended to be called from inside a scheduled job body,
// one range per limb, bone or particle.
func (e *Executor) ParallelFor(n, grain int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if grain < 1 {
		grain = 1
	}
	if n <= grain || e.workers == 1 {
		e.run("parallel-for", func() { fn(0, n) })
		return
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for start := 0; start < n; start += grain {
		end := start + grain
		if end > n {
			end = n
		}
		start, end := start, end
		g.Go(func() error {
			e.run("parallel-for", func() { fn(start, end) })
			return nil
		})
	}
	// Range jobs recover their own panics and report no errors.
	_ = g.Wait()
}

// Drain blocks until every scheduled job has completed. The pipeline calls
// it at the frame barrier and on shutdown; tests use it with goleak.
func (e *Executor) Drain() {
	e.inflight.Wait()
}

// run executes fn, converting a panic into a logged skip.
func (e *Executor) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("job panicked, element skipped",
				zap.String("job", name),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
