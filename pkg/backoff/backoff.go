// Package backoff provides bounded exponential backoff policies for
// retrying external calls and polling loops.
package backoff

import "time"

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Default is the schedule used for collaborator retries: 500ms, 1s, 2s... capped at 8s.
var Default = Policy{
	Base:        500 * time.Millisecond,
	Max:         8 * time.Second,
	MaxAttempts: 4,
}

// Delay returns the wait before the given attempt (0-based).
// Attempt 0 waits Base, each subsequent attempt doubles, capped at Max.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Exhausted reports whether the given attempt count has used up the policy.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
