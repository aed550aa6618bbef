// Package schedule runs the burst strategy on a recurring timer, firing
// shortly before the booking window opens each day.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/sirupsen/logrus"

	"burstfire/internal/core"
)

// Runner invokes a job daily at a configured time of day, or on a cron
// expression when one is given.
type Runner struct {
	Clock core.Clock
	Log   *logrus.Logger
	// RunTime is the daily fire time, HH:MM:SS local.
	RunTime string
	// Cron optionally overrides RunTime with a 5-field cron expression.
	Cron string
	// Job executes one burst run; the argument is the fire instant.
	Job func(ctx context.Context, firedAt time.Time) error
}

// Validate checks the timer configuration without starting it.
func (r *Runner) Validate() error {
	if r.Cron != "" {
		if !gronx.IsValid(r.Cron) {
			return fmt.Errorf("invalid cron expression %q", r.Cron)
		}
		return nil
	}
	if _, err := time.Parse("15:04:05", r.RunTime); err != nil {
		return fmt.Errorf("invalid run_time %q: want HH:MM:SS", r.RunTime)
	}
	return nil
}

// Start loops until ctx is cancelled, sleeping to each fire instant and
// invoking Job. A failing job is logged and the loop continues; the
// scheduler must survive a bad night.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.Validate(); err != nil {
		return err
	}

	for {
		next, err := r.Next(r.Clock.Now())
		if err != nil {
			return err
		}
		r.Log.WithField("next", next.Format(time.RFC3339)).Info("scheduler waiting")

		r.Clock.SleepUntil(ctx, next)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := r.Job(ctx, next); err != nil {
			r.Log.WithError(err).Error("scheduled run failed")
		}
	}
}

// Next computes the first fire instant strictly after from.
func (r *Runner) Next(from time.Time) (time.Time, error) {
	if r.Cron != "" {
		next, err := gronx.NextTickAfter(r.Cron, from, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("computing next cron tick: %w", err)
		}
		return next, nil
	}

	tod, err := time.Parse("15:04:05", r.RunTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run_time %q: want HH:MM:SS", r.RunTime)
	}

	y, m, d := from.Date()
	next := time.Date(y, m, d, tod.Hour(), tod.Minute(), tod.Second(), 0, from.Location())
	if !next.After(from) {
		next = next.Add(24 * time.Hour)
	}
	return next, nil
}
