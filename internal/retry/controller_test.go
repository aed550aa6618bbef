package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burstfire/internal/core"
)

type executorFunc func(ctx context.Context, sess core.SessionContext, slot core.TargetSlot) core.Result

func (f executorFunc) Attempt(ctx context.Context, sess core.SessionContext, slot core.TargetSlot) core.Result {
	return f(ctx, sess, slot)
}

type recordingReporter struct {
	mu   sync.Mutex
	recs []core.AttemptRecord
}

func (r *recordingReporter) Report(rec core.AttemptRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func (r *recordingReporter) records() []core.AttemptRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.AttemptRecord, len(r.recs))
	copy(out, r.recs)
	return out
}

var windowOpen = time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC)

// sheetExecutor mimics a tee sheet: NotYetOpen before the open instant,
// Success at or after it. Each request costs latency on the fake clock.
func sheetExecutor(clock *core.FakeClock, open time.Time, latency time.Duration) executorFunc {
	return func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		clock.Advance(latency)
		if clock.Now().Before(open) {
			return core.Result{Outcome: core.OutcomeNotYetOpen, Latency: latency}
		}
		return core.Result{Outcome: core.OutcomeSuccess, Latency: latency}
	}
}

func newController(clock core.Clock, exec core.RequestExecutor, rep core.Reporter, maxRetries int, deadline time.Time) *Controller {
	return &Controller{
		Clock:      clock,
		Executor:   exec,
		Waiter:     NewFixedWaiter(40 * time.Millisecond),
		MaxRetries: maxRetries,
		Deadline:   deadline,
		Reporter:   rep,
	}
}

func TestController_SuccessFirstAttempt_NoRetries(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	exec := sheetExecutor(clock, windowOpen, 10*time.Millisecond)

	c := newController(clock, exec, rep, 50, windowOpen.Add(5*time.Second))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 10*time.Millisecond, windowOpen.Add(10*time.Millisecond))

	assert.Equal(t, core.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, 0, rec.Retries)
	assert.Equal(t, StateSucceeded, c.State())
	assert.True(t, c.State().Terminal())
	require.Len(t, rep.records(), 1)
}

func TestController_RetriesUntilOpen(t *testing.T) {
	// Start 200ms before the window; the executor keeps answering
	// NotYetOpen until the clock crosses the open instant.
	clock := core.NewFakeClock(windowOpen.Add(-200 * time.Millisecond))
	rep := &recordingReporter{}
	exec := sheetExecutor(clock, windowOpen, 10*time.Millisecond)

	c := newController(clock, exec, rep, 50, windowOpen.Add(5*time.Second))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", -200*time.Millisecond, clock.Now())

	assert.Equal(t, core.OutcomeSuccess, rec.Outcome)
	assert.Greater(t, rec.Retries, 0)
	// 200ms gap, ~50ms per cycle (10ms latency + 40ms delay).
	assert.LessOrEqual(t, rec.Retries, 5)
	require.Len(t, rep.records(), 1)
}

func TestController_ExpiresAtCutoff(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}

	var sentTimes []time.Time
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		sentTimes = append(sentTimes, clock.Now())
		clock.Advance(10 * time.Millisecond)
		return core.Result{Outcome: core.OutcomeNotYetOpen, Latency: 10 * time.Millisecond}
	})

	deadline := windowOpen.Add(5 * time.Second)
	c := newController(clock, exec, rep, 1000, deadline)
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:42", 0, windowOpen)

	assert.Equal(t, core.OutcomeExpired, rec.Outcome)
	assert.Equal(t, StateExpired, c.State())

	// Never a request at or past the cutoff.
	for _, sent := range sentTimes {
		assert.True(t, sent.Before(deadline), "request sent at %v, at or past cutoff %v", sent, deadline)
	}
	// ~100 cycles of 50ms fill the 5s budget.
	assert.InDelta(t, 100, rec.Retries, 5)
	require.Len(t, rep.records(), 1)
}

func TestController_ExpiresWhenBudgetExhausted(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	exec := sheetExecutor(clock, windowOpen.Add(time.Hour), 10*time.Millisecond)

	c := newController(clock, exec, rep, 3, windowOpen.Add(time.Hour))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:42", 0, windowOpen)

	assert.Equal(t, core.OutcomeExpired, rec.Outcome)
	assert.Equal(t, 3, rec.Retries)
}

func TestController_ZeroBudget_ImmediateExpiry(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	calls := 0
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		calls++
		return core.Result{Outcome: core.OutcomeNotYetOpen}
	})

	c := newController(clock, exec, rep, 0, windowOpen.Add(5*time.Second))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, core.OutcomeExpired, rec.Outcome)
	assert.Equal(t, 0, rec.Retries)
	assert.Equal(t, 1, calls)
}

func TestController_TransientKeepsItsOutcomeKind(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		clock.Advance(5 * time.Millisecond)
		return core.Result{Outcome: core.OutcomeTransient, Err: errors.New("connection reset")}
	})

	c := newController(clock, exec, rep, 2, windowOpen.Add(time.Minute))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, core.OutcomeTransient, rec.Outcome)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, 2, rec.Retries)
	assert.Equal(t, "connection reset", rec.Error)
}

func TestController_TimedOutKeepsItsOutcomeKind(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		clock.Advance(5 * time.Second)
		return core.Result{Outcome: core.OutcomeTimedOut, Err: errors.New("client timeout")}
	})

	c := newController(clock, exec, rep, 1, windowOpen.Add(time.Hour))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, core.OutcomeTimedOut, rec.Outcome)
	assert.Equal(t, StateFailed, c.State())
}

func TestController_FatalShortCircuits(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	authErr := errors.New("authentication rejected")
	calls := 0
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		calls++
		return core.Result{Outcome: core.OutcomeFatal, Err: authErr}
	})

	var gotFatal error
	c := newController(clock, exec, rep, 50, windowOpen.Add(time.Minute))
	c.OnFatal = func(err error) { gotFatal = err }

	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, core.OutcomeFatal, rec.Outcome)
	assert.Equal(t, 1, calls, "fatal outcome must not be retried")
	assert.Equal(t, 0, rec.Retries)
	assert.Same(t, authErr, gotFatal)
	require.Len(t, rep.records(), 1)
}

func TestController_CancelledGateStopsRetries(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	gate, abort := context.WithCancel(context.Background())

	calls := 0
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		calls++
		abort() // simulates a fatal error landing in another slot
		return core.Result{Outcome: core.OutcomeNotYetOpen}
	})

	c := newController(clock, exec, rep, 50, windowOpen.Add(time.Minute))
	rec := c.Run(context.Background(), gate, core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, core.OutcomeExpired, rec.Outcome)
	assert.Equal(t, 1, calls, "no retry may start once the gate is cancelled")
}

func TestController_SchedulingErrorFromFirstSend(t *testing.T) {
	clock := core.NewFakeClock(windowOpen.Add(3 * time.Millisecond))
	rep := &recordingReporter{}
	exec := sheetExecutor(clock, windowOpen, 10*time.Millisecond)

	c := newController(clock, exec, rep, 0, windowOpen.Add(time.Minute))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, 3*time.Millisecond, rec.SchedulingError())
}

func TestController_SchedulingErrorIncludesThrottleDelay(t *testing.T) {
	clock := core.NewFakeClock(windowOpen)
	rep := &recordingReporter{}
	exec := executorFunc(func(context.Context, core.SessionContext, core.TargetSlot) core.Result {
		// Queued behind a rate limiter for 25ms before the send goes out.
		clock.Advance(25 * time.Millisecond)
		sent := clock.Now()
		clock.Advance(10 * time.Millisecond)
		return core.Result{Outcome: core.OutcomeSuccess, Latency: 10 * time.Millisecond, SentAt: sent}
	})

	c := newController(clock, exec, rep, 0, windowOpen.Add(time.Minute))
	rec := c.Run(context.Background(), context.Background(), core.SessionContext{}, "7:33", 0, windowOpen)

	assert.Equal(t, 25*time.Millisecond, rec.SchedulingError(),
		"time spent throttled must count as scheduling error")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Pending", StatePending.String())
	assert.Equal(t, "InFlight", StateInFlight.String())
	assert.Equal(t, "Retrying", StateRetrying.String())
	assert.Equal(t, "Succeeded", StateSucceeded.String())
	assert.Equal(t, "Failed", StateFailed.String())
	assert.Equal(t, "Expired", StateExpired.String())
}
