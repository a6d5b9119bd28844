package pipeline

// Handle represents the completion of scheduled work. The zero Handle is
// already complete; waiting on it returns immediately. Handles are the only
// ordering primitive units see: a job given a dependency handle is
// guaranteed to observe the fully-written output of that dependency.
type Handle struct {
	done <-chan struct{}
}

// Completed returns an already-finished handle, used as the root of each
// frame's dependency chain.
func Completed() Handle { return Handle{} }

// Wait blocks until the underlying work has finished.
func (h Handle) Wait() {
	if h.done != nil {
		<-h.done
	}
}

// Done reports whether the work has finished without blocking.
func (h Handle) Done() bool {
	if h.done == nil {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// After combines handles: the result completes once every input has. Used
// by units that consume the output of several producers.
func After(handles ...Handle) Handle {
	live := make([]Handle, 0, len(handles))
	for _, h := range handles {
		if h.done != nil {
			live = append(live, h)
		}
	}
	if len(live) == 0 {
		return Handle{}
	}
	if len(live) == 1 {
		return live[0]
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, h := range live {
			h.Wait()
		}
	}()
	return Handle{done: done}
}
