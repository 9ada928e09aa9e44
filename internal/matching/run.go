package matching

import "context"

// Run is a matching run in progress.
type Run struct {
	done chan struct{}
	out  *Output
	err  error
}

// Start runs matching in the background so the caller is never blocked on the similarity provider.
func (e *Engine) Start(ctx context.Context, mode Mode, in Input) *Run {
	r := &Run{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.out, r.err = e.Run(ctx, mode, in)
	}()
	return r
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes.
func (r *Run) Wait() (*Output, error) {
	<-r.done
	return r.out, r.err
}
