package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"burstfire/internal/burst"
	"burstfire/internal/collector"
	"burstfire/internal/config"
	"burstfire/internal/core"
	"burstfire/internal/httpexec"
	"burstfire/internal/progress"
	"burstfire/internal/ratelimit"
)

// dateFormat is the tee sheet's date format, MM-DD-YYYY.
const dateFormat = "01-02-2006"

// nowLead is how far ahead the synthetic window is placed under --now,
// leaving room for the negative offsets to fire before it.
const nowLead = 2 * time.Second

var (
	dateOverride string
	fireNow      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one burst run against today's booking window",
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

		clock := core.RealClock{}
		windowOpen, err := resolveWindow(clock, cfg)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		result, err := runOnce(ctx, log, clock, cfg, windowOpen)
		if err != nil {
			if result == nil {
				return err
			}
			log.WithError(err).Error("run aborted")
		}

		printSummary(result)
		exitStatus = exitCode(result)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&dateOverride, "date", "", "booking date, MM-DD-YYYY (default: today + booking.days_in_advance)")
	runCmd.Flags().BoolVar(&fireNow, "now", false, "fire immediately instead of waiting for the configured window")
}

// runOnce wires up a session, executor and orchestrator and executes a
// single burst around windowOpen. The returned result is non-nil
// whenever any attempt slot was dispatched, even on a fatal abort.
func runOnce(ctx context.Context, log *logrus.Logger, clock core.Clock, cfg *config.Config, windowOpen time.Time) (*burst.BurstResult, error) {
	date, err := bookingDate(clock, cfg)
	if err != nil {
		return nil, err
	}

	var debug *httpexec.DebugLogger
	if verbose {
		debug = httpexec.NewDebugLogger(log)
	}

	coll := collector.NewCollector(clock)
	orch := &burst.Orchestrator{
		Clock:     clock,
		Sessions:  httpexec.NewProvider(cfg.Session, cfg.Booking.URL),
		Executor:  httpexec.NewExecutor(cfg.Booking, date, clock, ratelimit.NewLimiter(cfg.MaxRequestsPerSec), debug),
		Collector: coll,
	}

	log.WithFields(logrus.Fields{
		"window_open": windowOpen.Format("15:04:05.000"),
		"date":        date,
		"targets":     cfg.TargetSlots,
		"offsets_ms":  cfg.BurstOffsetsMS,
	}).Info("burst run starting")

	prog := progress.NewProgress(coll, windowOpen, quiet)
	prog.Start()
	result, err := orch.Run(ctx, windowOpen, cfg, cfg.Targets())
	prog.Stop()

	return result, err
}

// resolveWindow computes the window-open instant for this run. The
// configured time of day is resolved against today, rolling to
// tomorrow when it has already passed.
func resolveWindow(clock core.Clock, cfg *config.Config) (time.Time, error) {
	now := clock.Now()
	if fireNow {
		return now.Add(nowLead), nil
	}
	windowOpen, err := cfg.WindowOpen(now)
	if err != nil {
		return time.Time{}, err
	}
	if !windowOpen.After(now) {
		windowOpen = windowOpen.Add(24 * time.Hour)
	}
	return windowOpen, nil
}

// bookingDate resolves the date sent with every booking request.
func bookingDate(clock core.Clock, cfg *config.Config) (string, error) {
	if dateOverride != "" {
		if _, err := time.Parse(dateFormat, dateOverride); err != nil {
			return "", fmt.Errorf("invalid --date %q: want MM-DD-YYYY", dateOverride)
		}
		return dateOverride, nil
	}
	return clock.Now().AddDate(0, 0, cfg.Booking.DaysInAdvance).Format(dateFormat), nil
}

func printSummary(result *burst.BurstResult) {
	if result == nil {
		return
	}
	summary := result.Summary()
	if output == "json" {
		collector.FormatJSON(os.Stdout, summary)
		return
	}
	collector.FormatText(os.Stdout, summary)
	fmt.Printf("\nOutcome: %s\n", result.Outcome)
}

func exitCode(result *burst.BurstResult) int {
	if result == nil {
		return ExitError
	}
	switch result.Outcome {
	case burst.RunSucceeded:
		return ExitSuccess
	case burst.RunExhausted:
		return ExitExhausted
	default:
		return ExitError
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()
	return ctx, cancel
}
