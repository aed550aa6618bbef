package burst

import (
	"context"
	"fmt"
	"time"

	"burstfire/internal/collector"
	"burstfire/internal/config"
	"burstfire/internal/core"
	"burstfire/internal/retry"
)

// RunOutcome classifies a completed burst run.
type RunOutcome int

const (
	// RunSucceeded means at least one attempt slot booked its target.
	RunSucceeded RunOutcome = iota
	// RunExhausted means every slot terminated without a success.
	RunExhausted
	// RunAborted means a fatal error short-circuited execution.
	RunAborted
)

func (o RunOutcome) String() string {
	switch o {
	case RunSucceeded:
		return "Succeeded"
	case RunExhausted:
		return "Exhausted"
	case RunAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// BurstResult aggregates every attempt record for one run. Read-only
// once the run completes.
type BurstResult struct {
	Outcome    RunOutcome
	WindowOpen time.Time
	Started    time.Time
	Finished   time.Time
	Records    []core.AttemptRecord
}

// Summary computes the per-offset and per-target statistics table.
func (r *BurstResult) Summary() *collector.Summary {
	return collector.ComputeSummary(r.Records, r.Finished.Sub(r.Started))
}

// Orchestrator composes the dispatcher and the collector into the
// top-level "execute burst strategy" operation.
type Orchestrator struct {
	Clock    core.Clock
	Sessions core.SessionProvider
	Executor core.RequestExecutor
	// Collector optionally receives attempt records as they land, so a
	// live progress display can read counts mid-run. Run creates its own
	// when nil, and closes whichever it used before returning.
	Collector *collector.Collector
}

// Run fires the burst strategy around windowOpen and returns once every
// spawned attempt slot is terminal or a fatal error aborted the run.
//
// Configuration problems and session acquisition failures are returned
// before any scheduling starts, with a nil result. A fatal error during
// the run returns the error together with the partial result; every
// already-dispatched slot still has its record.
func (o *Orchestrator) Run(ctx context.Context, windowOpen time.Time, cfg *config.Config, targets []core.TargetSlot) (*BurstResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no target slots", config.ErrInvalid)
	}

	sess, err := o.Sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring session: %w", err)
	}

	coll := o.Collector
	if coll == nil {
		coll = collector.NewCollector(o.Clock)
	}
	dispatcher := &Dispatcher{
		Clock:      o.Clock,
		Executor:   o.Executor,
		Reporter:   coll,
		Waiter:     retry.NewUniformWaiter(cfg.RetryMin(), cfg.RetryMax(), o.Clock.Now().UnixNano()),
		MaxRetries: cfg.MaxRetryAttempts,
		Deadline:   windowOpen.Add(cfg.Cutoff()),
	}

	started := o.Clock.Now()
	fatal := dispatcher.Run(ctx, BuildSchedule(windowOpen, cfg.BurstOffsetsMS), sess, targets)
	coll.Close()

	result := &BurstResult{
		WindowOpen: windowOpen,
		Started:    started,
		Finished:   o.Clock.Now(),
		Records:    coll.Records(),
	}

	switch {
	case fatal != nil:
		result.Outcome = RunAborted
	case anySuccess(result.Records):
		result.Outcome = RunSucceeded
	default:
		result.Outcome = RunExhausted
	}

	if fatal != nil {
		return result, fmt.Errorf("run aborted: %w", fatal)
	}
	return result, nil
}

func anySuccess(records []core.AttemptRecord) bool {
	for _, r := range records {
		if r.Outcome == core.OutcomeSuccess {
			return true
		}
	}
	return false
}
