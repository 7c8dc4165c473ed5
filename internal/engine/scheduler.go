package engine

import "time"

// restartScheduler tracks the debounced restart deadline. Repeated requests
// coalesce into a single firing: each request can only push the deadline
// later, never earlier, so bursts of rebuild notifications never trigger an
// earlier-than-intended restart.
type restartScheduler struct {
	deadline time.Time
	pending  bool
}

// schedule records a restart request for now+delay and returns how long the
// caller should wait before firing. If a later deadline is already pending it
// wins and the returned wait reflects it.
func (r *restartScheduler) schedule(now time.Time, delay time.Duration) time.Duration {
	candidate := now.Add(delay)
	if !r.pending || candidate.After(r.deadline) {
		r.deadline = candidate
		r.pending = true
	}
	remaining := r.deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// consume clears the pending deadline. Called when the restart fires or when
// the scheduler is reset.
func (r *restartScheduler) consume() {
	r.pending = false
	r.deadline = time.Time{}
}

func (r *restartScheduler) isPending() bool {
	return r.pending
}
