// Package testserver provides a mock tee sheet for exercising the burst
// engine end to end: it rejects bookings before a configured open
// instant, books slots with limited capacity afterwards, and can be told
// to reject a session outright.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the mock tee sheet.
type Options struct {
	// OpensAt is the instant the booking window opens.
	OpensAt time.Time
	// Capacity is how many bookings each slot accepts. 0 means one.
	Capacity int
	// SessionCookie is the cookie name/value pair required on booking
	// requests. Empty disables the session check.
	SessionCookie string
	// RejectAuth makes every login and booking fail with 401.
	RejectAuth bool
	// Latency is added to every booking response.
	Latency time.Duration
}

// Server is a mock tee sheet booking server.
type Server struct {
	mux       *http.ServeMux
	opts      Options
	requestID atomic.Int64

	mu       sync.Mutex
	bookings map[string]int
}

// NewServer creates a mock tee sheet with all endpoints configured.
func NewServer(opts Options) *Server {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	s := &Server{
		mux:      http.NewServeMux(),
		opts:     opts,
		bookings: make(map[string]int),
	}
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/api/booking/book", s.handleBook)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Bookings returns how many times each slot was booked.
func (s *Server) Bookings() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.bookings))
	for k, v := range s.bookings {
		out[k] = v
	}
	return out
}

// Requests returns the number of booking requests seen so far.
func (s *Server) Requests() int64 {
	return s.requestID.Load()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.RejectAuth {
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}
	if err := r.ParseForm(); err != nil || r.FormValue("username") == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}
	name, value := s.sessionCookie()
	http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/"})
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	s.requestID.Add(1)

	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}
	if s.opts.RejectAuth {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	if s.opts.SessionCookie != "" {
		name, value := s.sessionCookie()
		c, err := r.Cookie(name)
		if err != nil || c.Value != value {
			writeError(w, http.StatusForbidden, "missing session")
			return
		}
	}

	var req struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Time == "" {
		writeError(w, http.StatusBadRequest, "malformed booking request")
		return
	}

	if time.Now().Before(s.opts.OpensAt) {
		writeError(w, http.StatusBadRequest, "booking not open yet")
		return
	}

	key := req.Date + " " + req.Time
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bookings[key] >= s.opts.Capacity {
		writeError(w, http.StatusConflict, "no availability")
		return
	}
	s.bookings[key]++

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"booked","date":%q,"time":%q}`, req.Date, req.Time)
}

func (s *Server) sessionCookie() (name, value string) {
	if s.opts.SessionCookie == "" {
		return "session_id", "mock-session"
	}
	return "session_id", s.opts.SessionCookie
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
