package explain

import (
	"context"
	"sync/atomic"
)

// Job is a bulk generation running in the background.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	completed atomic.Int64
	total     atomic.Int64

	results map[Key]string
	err     error
}

// Start runs GenerateAll in the background and returns immediately.
func (o *Orchestrator) Start(ctx context.Context, cohortID string, reqs []Request, cb Callbacks) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{cancel: cancel, done: make(chan struct{})}

	progress := cb.OnProgress
	cb.OnProgress = func(completed, total int) {
		job.completed.Store(int64(completed))
		job.total.Store(int64(total))
		if progress != nil {
			progress(completed, total)
		}
	}

	go func() {
		defer close(job.done)
		defer cancel()
		job.results, job.err = o.GenerateAll(ctx, cohortID, reqs, cb)
	}()

	return job
}

// Cancel stops issuing new provider calls. Calls already in flight still complete.
func (j *Job) Cancel() { j.cancel() }

func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns its results.
func (j *Job) Wait() (map[Key]string, error) {
	<-j.done
	return j.results, j.err
}

// Progress reports the number of finished pairs and the total known so far.
func (j *Job) Progress() (completed, total int) {
	return int(j.completed.Load()), int(j.total.Load())
}
