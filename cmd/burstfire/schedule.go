package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"burstfire/internal/config"
	"burstfire/internal/core"
	"burstfire/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Stay resident and fire a burst run every day at the configured time",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFlags(); err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		clock := core.RealClock{}
		ctx, cancel := signalContext()
		defer cancel()

		runner := &schedule.Runner{
			Clock:   clock,
			Log:     log,
			RunTime: cfg.Schedule.RunTime,
			Cron:    cfg.Schedule.Cron,
			Job: func(ctx context.Context, firedAt time.Time) error {
				windowOpen, err := cfg.WindowOpen(firedAt)
				if err != nil {
					return err
				}
				// A fire time after the window time means tonight's run
				// targets tomorrow's window.
				if !windowOpen.After(firedAt) {
					windowOpen = windowOpen.Add(24 * time.Hour)
				}

				result, err := runOnce(ctx, log, clock, cfg, windowOpen)
				if result != nil {
					printSummary(result)
				}
				return err
			},
		}

		err = runner.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
