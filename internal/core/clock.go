package core

import (
	"context"
	"sync"
	"time"
)

const (
	// coarseSleepMargin is how far short of the target the coarse sleep
	// stops before the fine correction loop takes over.
	coarseSleepMargin = 2 * time.Millisecond
	// finePollInterval is the poll period of the fine correction loop.
	finePollInterval = 50 * time.Microsecond
)

// Clock provides time operations that can be mocked for testing.
//
// Latencies and elapsed intervals must always be measured with Since,
// which uses the monotonic reading carried by time.Now. Absolute wake
// instants are wall-clock values built from a date and a time-of-day;
// they carry no monotonic reading, so a wall-clock step mid-run moves
// the schedule but never corrupts latency numbers.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// SleepUntil suspends the caller until at least target and returns
	// the actual wake instant so callers can record scheduling error.
	// A target already in the past returns immediately. Cancelling ctx
	// wakes the sleeper early.
	SleepUntil(ctx context.Context, target time.Time) time.Time
}

// RealClock uses the standard time package. SleepUntil sleeps coarsely
// to just short of the target, then polls until the target is reached,
// which lands within a few hundred microseconds on an idle host.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (RealClock) SleepUntil(ctx context.Context, target time.Time) time.Time {
	if remaining := time.Until(target); remaining > coarseSleepMargin {
		timer := time.NewTimer(remaining - coarseSleepMargin)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return time.Now()
		}
	}
	for time.Now().Before(target) {
		if ctx.Err() != nil {
			break
		}
		time.Sleep(finePollInterval)
	}
	return time.Now()
}

// FakeClock is a test clock that can be manually advanced. SleepUntil
// jumps the clock forward to the target instead of blocking, so timed
// logic runs deterministically under test. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	sleeps  []time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Sub(t)
}

func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

func (f *FakeClock) SleepUntil(ctx context.Context, target time.Time) time.Time {
	if ctx.Err() != nil {
		return f.Now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, target)
	if target.After(f.current) {
		f.current = target
	}
	return f.current
}

// Sleeps returns every SleepUntil target seen so far, in call order.
func (f *FakeClock) Sleeps() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
