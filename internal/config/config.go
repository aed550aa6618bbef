// Package config handles burst configuration parsing and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"burstfire/internal/core"
)

// ErrInvalid marks a configuration that cannot produce a valid run.
// Surfaced before any scheduling begins; the run never starts.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration structure.
type Config struct {
	// Signed millisecond offsets around the window-open instant, one
	// burst group per entry. Need not be sorted; duplicates allowed.
	BurstOffsetsMS      []int    `yaml:"burst_offsets_ms"`
	RetryIntervalMSMin  int      `yaml:"retry_interval_ms_min"`
	RetryIntervalMSMax  int      `yaml:"retry_interval_ms_max"`
	MaxRetryAttempts    int      `yaml:"max_retry_attempts"`
	WindowOpenTimeOfDay string   `yaml:"window_open_time_of_day"`
	CutoffSeconds       int      `yaml:"cutoff_seconds"`
	TargetSlots         []string `yaml:"target_slots"`
	MaxRequestsPerSec   int      `yaml:"max_requests_per_sec"`

	Booking  BookingConfig  `yaml:"booking"`
	Session  SessionConfig  `yaml:"session"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// BookingConfig describes the tee sheet's booking endpoint.
type BookingConfig struct {
	URL           string `yaml:"url"`
	Course        string `yaml:"course"`
	Players       int    `yaml:"players"`
	DaysInAdvance int    `yaml:"days_in_advance"`
	TimeoutMS     int    `yaml:"timeout_ms"`
}

// SessionConfig holds the login credentials.
type SessionConfig struct {
	LoginURL string `yaml:"login_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ScheduleConfig controls the daily scheduler.
type ScheduleConfig struct {
	RunTime string `yaml:"run_time"` // HH:MM:SS local time
	Cron    string `yaml:"cron"`     // optional, takes precedence over run_time
}

// Load reads and parses a configuration file. YAML is a superset of
// JSON, so both .yaml files and the original config.json shape load
// through the same parser. Missing fields fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with the stock burst strategy:
// six offsets straddling the open instant, 30-50ms retry jitter and a
// 30 second cutoff.
func Default() *Config {
	return &Config{
		BurstOffsetsMS:      []int{-70, -40, -10, 10, 40, 70},
		RetryIntervalMSMin:  30,
		RetryIntervalMSMax:  50,
		MaxRetryAttempts:    50,
		WindowOpenTimeOfDay: "23:00:00",
		CutoffSeconds:       30,
		MaxRequestsPerSec:   10,
		Booking: BookingConfig{
			Course:        "default",
			Players:       1,
			DaysInAdvance: 2,
			TimeoutMS:     5000,
		},
		Schedule: ScheduleConfig{
			RunTime: "22:59:55",
		},
	}
}

// Validate checks configuration consistency. All violations are reported
// together, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var problems []string

	if len(c.BurstOffsetsMS) == 0 {
		problems = append(problems, "burst_offsets_ms must not be empty")
	}
	if c.RetryIntervalMSMin < 1 {
		problems = append(problems, "retry_interval_ms_min must be >= 1")
	}
	if c.RetryIntervalMSMax < c.RetryIntervalMSMin {
		problems = append(problems, "retry_interval_ms_max must be >= retry_interval_ms_min")
	}
	if c.MaxRetryAttempts < 0 {
		problems = append(problems, "max_retry_attempts must be >= 0")
	}
	if c.CutoffSeconds < 1 {
		problems = append(problems, "cutoff_seconds must be >= 1")
	}
	if _, err := parseTimeOfDay(c.WindowOpenTimeOfDay); err != nil {
		problems = append(problems, fmt.Sprintf("window_open_time_of_day: %v", err))
	}

	// Attempts scheduled after the cutoff can never start; a cutoff that
	// does not clear the latest offset would silently disable groups.
	maxOffset := 0
	for _, ms := range c.BurstOffsetsMS {
		if ms > maxOffset {
			maxOffset = ms
		}
	}
	if c.CutoffSeconds*1000 <= maxOffset {
		problems = append(problems,
			fmt.Sprintf("cutoff_seconds (%ds) must exceed the largest positive offset (%dms)",
				c.CutoffSeconds, maxOffset))
	}

	if len(problems) == 0 {
		return nil
	}
	err := fmt.Errorf("%w: %s", ErrInvalid, problems[0])
	for _, p := range problems[1:] {
		err = fmt.Errorf("%w; %s", err, p)
	}
	return err
}

// RetryMin returns the lower bound of the retry jitter range.
func (c *Config) RetryMin() time.Duration {
	return time.Duration(c.RetryIntervalMSMin) * time.Millisecond
}

// RetryMax returns the upper bound of the retry jitter range.
func (c *Config) RetryMax() time.Duration {
	return time.Duration(c.RetryIntervalMSMax) * time.Millisecond
}

// Cutoff returns the duration after window open past which no retry may
// start.
func (c *Config) Cutoff() time.Duration {
	return time.Duration(c.CutoffSeconds) * time.Second
}

// Timeout returns the per-request client timeout.
func (c *BookingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// WindowOpen resolves window_open_time_of_day against a calendar day in
// that day's location.
func (c *Config) WindowOpen(day time.Time) (time.Time, error) {
	tod, err := parseTimeOfDay(c.WindowOpenTimeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: window_open_time_of_day: %v", ErrInvalid, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(tod), nil
}

// Targets converts the configured slot strings to TargetSlots.
func (c *Config) Targets() []core.TargetSlot {
	targets := make([]core.TargetSlot, len(c.TargetSlots))
	for i, s := range c.TargetSlots {
		targets[i] = core.TargetSlot(s)
	}
	return targets
}

func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("want HH:MM:SS, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}
