// Package burst implements the offset-group dispatcher and the run
// orchestrator.
package burst

import (
	"context"
	"sort"
	"sync"
	"time"

	"burstfire/internal/core"
	"burstfire/internal/retry"
)

// Group is one offset's worth of attempts: every target slot fired at
// window open plus Offset.
type Group struct {
	Offset time.Duration
	FireAt time.Time
}

// BuildSchedule expands the configured offsets into fire-ordered groups.
// Duplicate offsets remain independent groups, keeping declared order.
func BuildSchedule(windowOpen time.Time, offsetsMS []int) []Group {
	groups := make([]Group, len(offsetsMS))
	for i, ms := range offsetsMS {
		offset := time.Duration(ms) * time.Millisecond
		groups[i] = Group{Offset: offset, FireAt: windowOpen.Add(offset)}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].FireAt.Before(groups[j].FireAt)
	})
	return groups
}

// Dispatcher fires offset groups in time order and fans each group out
// into one retry controller per target slot.
type Dispatcher struct {
	Clock      core.Clock
	Executor   core.RequestExecutor
	Reporter   core.Reporter
	Waiter     retry.Waiter
	MaxRetries int
	// Deadline is window open plus cutoff, shared by every controller.
	Deadline time.Time
}

// Run blocks until every group has been dispatched and every spawned
// attempt slot is terminal. Groups fire strictly sequentially: a group
// whose instant already passed while a previous group was being
// dispatched fires immediately without waiting. Retries belonging to an
// earlier group keep running concurrently with later groups.
//
// Returns the fatal error that aborted the run, if any. On a fatal
// outcome in any slot, groups not yet fired are skipped and other
// controllers finish their in-flight request without further retries.
func (d *Dispatcher) Run(ctx context.Context, groups []Group, sess core.SessionContext, targets []core.TargetSlot) error {
	gate, abort := context.WithCancel(ctx)
	defer abort()

	var fatalOnce sync.Once
	var fatalErr error
	onFatal := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			abort()
		})
	}

	var wg sync.WaitGroup
	for _, g := range groups {
		d.Clock.SleepUntil(gate, g.FireAt)
		if gate.Err() != nil {
			break
		}
		for _, slot := range targets {
			wg.Add(1)
			go func(g Group, slot core.TargetSlot) {
				defer wg.Done()
				ctrl := &retry.Controller{
					Clock:      d.Clock,
					Executor:   d.Executor,
					Waiter:     d.Waiter,
					MaxRetries: d.MaxRetries,
					Deadline:   d.Deadline,
					Reporter:   d.Reporter,
					OnFatal:    onFatal,
				}
				ctrl.Run(ctx, gate, sess, slot, g.Offset, g.FireAt)
			}(g, slot)
		}
	}
	wg.Wait()

	return fatalErr
}
