package jobs

import "time"

// RetryPolicy bounds how often a job runs and how long it waits between runs.
// Backoff[n-1] is the wait after the n-th failed attempt; it is a literal schedule.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultRetryPolicy is used for report analysis.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Backoff:     []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
}

// NextDelay returns the wait before the attempt after `attempt`, or false if the job has
// used all its attempts. Attempts past the end of Backoff reuse the last entry.
func (p RetryPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	if len(p.Backoff) == 0 || attempt < 1 {
		return 0, true
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1], true
	}
	return p.Backoff[attempt-1], true
}
