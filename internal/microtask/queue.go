// Package microtask implements the FIFO job queue spec §4.4/§5 describes:
// Promise resolution and `await` resumption both schedule a Job here
// rather than running inline, and ExecuteMicrotasks drains them in strict
// insertion order, including jobs a running job enqueues itself.
package microtask

import "jsvm/internal/value"

// Job is one deferred unit of work: a generator/async frame resumption, a
// Promise reaction callback, or a host-scheduled continuation. Run reports
// an error only for a job whose body raised past its own boundary (spec
// §7, "errors inside a microtask that escape user code propagate as an
// exception-flagged Value") — ordinary resolve/reject handling happens
// inside Run itself.
type Job struct {
	Name string
	Run  func() error

	// Roots are the Values this job's closure holds live references to
	// (an awaitee, a resolved/rejected argument, the suspended frame's
	// snapshot) — Run itself is an opaque closure the GC can't see into,
	// so the scheduler asks the caller to name what needs pinning.
	Roots []value.Value
}

// Queue is a single execution context's microtask queue (spec §3.0: "an
// execution context owns ... a microtask queue"). It is not safe for
// concurrent use from multiple goroutines — a context is single-threaded,
// same as the VM it drains for.
type Queue struct {
	jobs []Job
}

// New builds an empty queue.
func New() *Queue { return &Queue{} }

// Enqueue appends a job to the tail of the FIFO (spec §5 "microtasks run
// in FIFO insertion order").
func (q *Queue) Enqueue(job Job) {
	q.jobs = append(q.jobs, job)
}

// Len reports how many jobs are currently queued.
func (q *Queue) Len() int { return len(q.jobs) }

// Drain runs every queued job to completion, including any job a running
// job enqueues during its own Run (spec §5: "microtasks enqueued during a
// drain run in the same drain turn after already-queued jobs" — a job
// enqueued by job i always runs after job i+1..n that were already queued
// before the drain started, preserving strict FIFO order across the whole
// turn). The first job error observed is returned once the queue is fully
// drained; draining does not stop early so remaining tasks still run (spec
// §7: "the drain continues with remaining tasks after reporting").
func (q *Queue) Drain() error {
	var firstErr error
	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		if err := job.Run(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DrainBatch runs at most max queued jobs (0 or negative means
// unbounded, same as Drain), leaving anything past the cap queued for a
// later call. A job a running job enqueues mid-batch counts against the
// same cap, so a script that keeps re-enqueuing work can't make one
// DrainBatch call run forever; the embedder calls it again on its own
// schedule to make progress on what's left (internal/config's
// Microtask.BatchSize is this knob's source). Reports how many jobs ran
// and the first error observed, same propagation rule as Drain.
func (q *Queue) DrainBatch(max int) (ran int, err error) {
	if max <= 0 {
		max = len(q.jobs)
		if max == 0 {
			return 0, nil
		}
		for len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			if e := job.Run(); e != nil && err == nil {
				err = e
			}
			ran++
		}
		return ran, err
	}
	for ran < max && len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		if e := job.Run(); e != nil && err == nil {
			err = e
		}
		ran++
	}
	return ran, err
}

// EnumerateRoots implements gc.RootProvider: a pending job may close over
// Values (an awaitee, a resolved/rejected argument) that must survive a
// GC cycle between enqueue and drain.
func (q *Queue) EnumerateRoots(visit func(*value.Value)) {
	for i := range q.jobs {
		for j := range q.jobs[i].Roots {
			visit(&q.jobs[i].Roots[j])
		}
	}
}
