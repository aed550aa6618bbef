package retry

import (
	"context"
	"time"

	"burstfire/internal/core"
)

// State identifies a phase in an attempt slot's lifecycle.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateRetrying
	StateSucceeded
	StateFailed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInFlight:
		return "InFlight"
	case StateRetrying:
		return "Retrying"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	case StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition can occur from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateExpired
}

// Controller drives one attempt slot from Pending to a terminal state
// and emits exactly one AttemptRecord for it.
//
// A Controller is NOT safe for concurrent use; every attempt slot must
// have its own instance.
type Controller struct {
	Clock      core.Clock
	Executor   core.RequestExecutor
	Waiter     Waiter
	MaxRetries int
	// Deadline is window open plus the cutoff duration. No retry is
	// issued at or past it, regardless of the remaining attempt budget.
	Deadline time.Time
	Reporter core.Reporter
	// OnFatal, if set, is called when a request reports a fatal outcome,
	// before the terminal record is emitted.
	OnFatal func(error)

	state   State
	retries int
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Run executes the slot until terminal and returns its record. ctx covers
// the physical requests; gate is cancelled when the run aborts and stops
// new retries without interrupting a request already in flight.
// scheduledAt is the intended fire instant of the slot's offset group.
func (c *Controller) Run(ctx, gate context.Context, sess core.SessionContext, slot core.TargetSlot, offset time.Duration, scheduledAt time.Time) core.AttemptRecord {
	var firstSent time.Time
	for {
		c.state = StateInFlight
		dispatched := c.Clock.Now()

		res := c.Executor.Attempt(ctx, sess, slot)
		received := c.Clock.Now()
		if firstSent.IsZero() {
			// Prefer the executor's physical send instant over the
			// dispatch instant: time spent queued behind a rate limiter
			// is scheduling error and must show in the record.
			firstSent = dispatched
			if !res.SentAt.IsZero() {
				firstSent = res.SentAt
			}
		}

		switch res.Outcome {
		case core.OutcomeSuccess:
			c.state = StateSucceeded
			return c.finish(slot, offset, scheduledAt, firstSent, received, res, core.OutcomeSuccess)

		case core.OutcomeFatal:
			c.state = StateFailed
			if c.OnFatal != nil {
				c.OnFatal(res.Err)
			}
			return c.finish(slot, offset, scheduledAt, firstSent, received, res, core.OutcomeFatal)

		default:
			// NotYetOpen, TransientError and TimedOut share one retry
			// policy; they differ only in the terminal record.
			if c.retries >= c.MaxRetries || !received.Before(c.Deadline) || gate.Err() != nil {
				return c.expire(slot, offset, scheduledAt, firstSent, received, res)
			}

			c.state = StateRetrying
			c.retries++
			wake := received.Add(c.Waiter.Wait(c.retries))
			c.Clock.SleepUntil(gate, wake)

			// Re-check after the delay: the cutoff may have passed or the
			// run may have aborted while we slept.
			now := c.Clock.Now()
			if !now.Before(c.Deadline) || gate.Err() != nil {
				return c.expire(slot, offset, scheduledAt, firstSent, now, res)
			}
		}
	}
}

// expire resolves a retriable outcome whose budget, cutoff or run was
// exhausted. A pre-window rejection terminates as Expired; transient
// kinds keep their own outcome so analytics can tell them apart.
func (c *Controller) expire(slot core.TargetSlot, offset time.Duration, scheduledAt, firstSent, received time.Time, res core.Result) core.AttemptRecord {
	terminal := res.Outcome
	if res.Outcome == core.OutcomeNotYetOpen {
		c.state = StateExpired
		terminal = core.OutcomeExpired
	} else {
		c.state = StateFailed
	}
	return c.finish(slot, offset, scheduledAt, firstSent, received, res, terminal)
}

func (c *Controller) finish(slot core.TargetSlot, offset time.Duration, scheduledAt, firstSent, received time.Time, res core.Result, outcome core.Outcome) core.AttemptRecord {
	rec := core.AttemptRecord{
		Offset:      offset,
		Slot:        slot,
		ScheduledAt: scheduledAt,
		SentAt:      firstSent,
		ReceivedAt:  received,
		Latency:     res.Latency,
		Retries:     c.retries,
		Outcome:     outcome,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if c.Reporter != nil {
		c.Reporter.Report(rec)
	}
	return rec
}
