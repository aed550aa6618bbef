// Package core defines the fundamental interfaces and types for burstfire.
package core

import (
	"context"
	"time"
)

// TargetSlot identifies one desired booking time (e.g. "7:33"). The value
// is opaque to the scheduling engine; only the request executor interprets it.
type TargetSlot string

// Outcome classifies the result of a booking request or attempt slot.
type Outcome int

const (
	// OutcomeSuccess means the booking was accepted.
	OutcomeSuccess Outcome = iota
	// OutcomeNotYetOpen is the tee sheet's distinguished pre-window
	// rejection. Retried until cutoff or the attempt budget runs out.
	OutcomeNotYetOpen
	// OutcomeTransient covers network errors and retriable server errors.
	OutcomeTransient
	// OutcomeTimedOut means the request exceeded the client timeout.
	// Retried under the same policy as OutcomeTransient.
	OutcomeTimedOut
	// OutcomeFatal means the session was rejected. Aborts the whole run.
	OutcomeFatal
	// OutcomeExpired is terminal only: the retry budget or cutoff was
	// exhausted while the window was still reported closed.
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeNotYetOpen:
		return "NotYetOpen"
	case OutcomeTransient:
		return "TransientError"
	case OutcomeTimedOut:
		return "TimedOut"
	case OutcomeFatal:
		return "FatalError"
	case OutcomeExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Result is the outcome of one physical request issued by a RequestExecutor.
type Result struct {
	Outcome Outcome
	Latency time.Duration
	// SentAt is when the request physically went out. Executors that
	// queue behind a rate limiter stamp it after the wait, so throttling
	// shows up as scheduling error. Zero when the request never reached
	// the wire.
	SentAt time.Time
	Err    error
}

// AttemptRecord is the terminal result of one (offset, target) attempt
// slot. Exactly one record is emitted per slot.
type AttemptRecord struct {
	Offset      time.Duration
	Slot        TargetSlot
	ScheduledAt time.Time     // intended fire instant of the slot's offset group
	SentAt      time.Time     // actual send instant of the first request
	ReceivedAt  time.Time     // receive instant of the final request
	Latency     time.Duration // round trip of the final request
	Retries     int
	Outcome     Outcome
	Error       string
}

// SchedulingError is how late the first request went out relative to its
// intended fire instant.
func (r AttemptRecord) SchedulingError() time.Duration {
	return r.SentAt.Sub(r.ScheduledAt)
}

// SessionContext carries the authenticated session shared by every
// concurrent attempt in a run. It is a read-only value; nothing mutates
// it after acquisition.
type SessionContext struct {
	Cookies    map[string]string
	BookingURL string
}

// SessionProvider acquires an authenticated session before a run starts.
// An acquisition error is fatal; the run never begins.
type SessionProvider interface {
	Acquire(ctx context.Context) (SessionContext, error)
}

// RequestExecutor issues one physical booking request. Implementations
// must be safe for concurrent use by multiple goroutines.
type RequestExecutor interface {
	Attempt(ctx context.Context, sess SessionContext, slot TargetSlot) Result
}

// Reporter is the interface retry controllers use to send terminal
// records to the collector.
type Reporter interface {
	Report(AttemptRecord)
}
