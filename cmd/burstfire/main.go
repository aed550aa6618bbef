// Command burstfire fires a burst of booking requests around the
// instant a reservation window opens.
//
// Usage:
//
//	burstfire run --config config.yaml
//	burstfire schedule --config config.yaml
//
// The run command executes one burst against today's window. The
// schedule command stays resident and fires a run every day at the
// configured time.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess   = 0
	ExitExhausted = 1
	ExitError     = 2
)

var (
	configPath string
	output     string
	logLevel   string
	quiet      bool
	verbose    bool

	// exitStatus is set by the run command and consumed by main, so
	// deferred cleanup inside RunE still executes before the process
	// exits.
	exitStatus = ExitSuccess
)

var rootCmd = &cobra.Command{
	Use:           "burstfire",
	Short:         "Burst-fire scheduler for reservation window sniping",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (required)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "output format: text, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log verbosity: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log every request and response")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
}

// newLogger builds the process logger. Millisecond timestamps matter
// here; the interesting events are tens of milliseconds apart.
func newLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	log := logrus.New()
	log.SetLevel(level)
	if verbose && level > logrus.DebugLevel {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return log, nil
}

func validateFlags() error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	if output != "text" && output != "json" {
		return fmt.Errorf("--output must be 'text' or 'json', got %q", output)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(exitStatus)
}
