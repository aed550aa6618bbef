// Package httpexec implements the HTTP session provider and request
// executor against a tee sheet booking API.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"burstfire/internal/config"
	"burstfire/internal/core"
	"burstfire/internal/ratelimit"
)

// ErrAuth marks an authentication or session rejection. Fatal: the run
// is aborted, no retry.
var ErrAuth = errors.New("authentication rejected")

const maxResponseBody = 64 * 1024

// Executor issues booking requests against a tee sheet API. Safe for
// concurrent use; the underlying http.Client multiplexes connections.
type Executor struct {
	client  *http.Client
	clock   core.Clock
	limiter *ratelimit.Limiter
	booking config.BookingConfig
	date    string
	debug   *DebugLogger
}

// NewExecutor creates an Executor booking slots on the given date
// (MM-DD-YYYY, the tee sheet's format).
func NewExecutor(booking config.BookingConfig, date string, clock core.Clock, limiter *ratelimit.Limiter, debug *DebugLogger) *Executor {
	return &Executor{
		client: &http.Client{
			Timeout: booking.Timeout(),
		},
		clock:   clock,
		limiter: limiter,
		booking: booking,
		date:    date,
		debug:   debug,
	}
}

type bookingRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Players int    `json:"players"`
	Course  string `json:"course"`
}

// Attempt issues one booking request for slot and classifies the
// response into an outcome kind.
func (e *Executor) Attempt(ctx context.Context, sess core.SessionContext, slot core.TargetSlot) core.Result {
	if err := e.limiter.Wait(ctx); err != nil {
		return core.Result{Outcome: core.OutcomeTransient, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	payload, err := json.Marshal(bookingRequest{
		Date:    e.date,
		Time:    string(slot),
		Players: e.booking.Players,
		Course:  e.booking.Course,
	})
	if err != nil {
		return core.Result{Outcome: core.OutcomeTransient, Err: err}
	}

	url := sess.BookingURL
	if url == "" {
		url = e.booking.URL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return core.Result{Outcome: core.OutcomeTransient, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range sess.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	e.debug.LogRequest(slot, req.Method, url, payload)

	start := e.clock.Now()
	resp, err := e.client.Do(req)
	latency := e.clock.Since(start)

	if err != nil {
		outcome := core.OutcomeTransient
		if isTimeout(err) {
			outcome = core.OutcomeTimedOut
		}
		e.debug.LogError(slot, err, latency)
		return core.Result{Outcome: outcome, Latency: latency, SentAt: start, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	e.debug.LogResponse(slot, resp.StatusCode, body, latency)

	res := classify(resp.StatusCode, body, latency)
	res.SentAt = start
	return res
}

func classify(status int, body []byte, latency time.Duration) core.Result {
	switch {
	case status >= 200 && status < 300:
		return core.Result{Outcome: core.OutcomeSuccess, Latency: latency}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.Result{
			Outcome: core.OutcomeFatal,
			Latency: latency,
			Err:     fmt.Errorf("%w: status %d: %s", ErrAuth, status, errorMessage(body)),
		}
	case status == http.StatusBadRequest && notYetOpen(body):
		return core.Result{Outcome: core.OutcomeNotYetOpen, Latency: latency}
	default:
		return core.Result{
			Outcome: core.OutcomeTransient,
			Latency: latency,
			Err:     fmt.Errorf("status %d: %s", status, errorMessage(body)),
		}
	}
}

// notYetOpen reports whether a 400 response is the tee sheet's
// "booking not open" signal rather than a malformed request.
func notYetOpen(body []byte) bool {
	return strings.Contains(strings.ToLower(errorMessage(body)), "not open")
}

// errorMessage pulls the human-readable message out of a JSON error
// body, falling back to the raw body for plain-text responses.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error", "message", "detail"} {
			if v := gjson.GetBytes(body, path); v.Exists() {
				return v.String()
			}
		}
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
