// Package retry implements the per-attempt-slot retry state machine and
// its wait policy.
package retry

import (
	"math/rand"
	"sync"
	"time"
)

// A Waiter decides how long to wait before the next retry of an attempt
// slot. The attempt argument is the 1-based retry number.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(attempt int) time.Duration
}

// NewFixedWaiter constructs a Waiter that always returns the given
// duration.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ int) time.Duration {
	return time.Duration(w)
}

// NewUniformWaiter constructs a Waiter drawing each delay uniformly from
// [min, max]. Jittering the interval desynchronizes the retry storms of
// slots that received the same "not yet open" response together.
//
// Min must be positive and max must be at least min.
func NewUniformWaiter(min, max time.Duration, seed int64) Waiter {
	if min < 1 {
		panic("retry: min must be positive")
	}
	if max < min {
		panic("retry: max must be at least min")
	}
	return &uniformWaiter{
		min:  min,
		max:  max,
		rand: rand.New(rand.NewSource(seed)),
	}
}

type uniformWaiter struct {
	min  time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *uniformWaiter) Wait(_ int) time.Duration {
	span := int64(w.max - w.min)
	if span == 0 {
		return w.min
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.min + time.Duration(w.rand.Int63n(span+1))
}
