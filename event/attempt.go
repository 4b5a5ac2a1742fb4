// Package event defines the notifications published while retrying an operation.
package event

import "time"

// Outcome classifies an Attempt.
type Outcome int

const (
	// Retrying means the attempt failed and another one is scheduled after Delay.
	Retrying Outcome = iota
	// Succeeded means the attempt returned no error.
	Succeeded
	// Failed means the attempt failed and no retries remain.
	Failed
	// Rejected means the circuit breaker refused the attempt.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Retrying:
		return "retrying"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Attempt describes one call of a retried operation.
type Attempt struct {
	// Policy is the name of the policy driving the retries.
	Policy string

	// Attempt is the 1-based call number.
	Attempt int

	// Delay is the wait before the next call. Zero unless Outcome is Retrying.
	Delay time.Duration

	// Err is the error returned by the call, if any.
	Err error

	Outcome Outcome

	// Time is when the attempt finished.
	Time time.Time
}

// Final reports whether no further attempt follows this one.
func (a Attempt) Final() bool {
	return a.Outcome != Retrying
}
