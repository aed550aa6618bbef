package httpexec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"burstfire/internal/config"
	"burstfire/internal/core"
)

// Provider logs in to the tee sheet with a credential form POST and
// captures the session cookies into an immutable SessionContext.
type Provider struct {
	cfg        config.SessionConfig
	bookingURL string
	timeout    time.Duration
}

// NewProvider creates a session provider for the given credentials.
// bookingURL is handed to the executor through the SessionContext.
func NewProvider(cfg config.SessionConfig, bookingURL string) *Provider {
	return &Provider{
		cfg:        cfg,
		bookingURL: bookingURL,
		timeout:    10 * time.Second,
	}
}

// Acquire performs the login and returns the session. Any failure here
// is fatal; the burst run never starts without a session.
func (p *Provider) Acquire(ctx context.Context) (core.SessionContext, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return core.SessionContext{}, err
	}
	client := &http.Client{
		Jar:     jar,
		Timeout: p.timeout,
	}

	form := url.Values{
		"username": {p.cfg.Username},
		"password": {p.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return core.SessionContext{}, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return core.SessionContext{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode >= 400 {
		return core.SessionContext{}, fmt.Errorf("%w: login returned status %d", ErrAuth, resp.StatusCode)
	}

	loginURL, err := url.Parse(p.cfg.LoginURL)
	if err != nil {
		return core.SessionContext{}, fmt.Errorf("parsing login url: %w", err)
	}

	cookies := make(map[string]string)
	for _, c := range jar.Cookies(loginURL) {
		cookies[c.Name] = c.Value
	}
	if len(cookies) == 0 {
		return core.SessionContext{}, fmt.Errorf("%w: login set no session cookies", ErrAuth)
	}

	return core.SessionContext{
		Cookies:    cookies,
		BookingURL: p.bookingURL,
	}, nil
}
