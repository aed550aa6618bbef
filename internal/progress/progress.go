// Package progress prints live status while a run waits for the booking
// window and while attempts are in flight.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"burstfire/internal/collector"
)

type Progress struct {
	collector  *collector.Collector
	windowOpen time.Time
	ticker     *time.Ticker
	stopCh     chan struct{}
	stopped    atomic.Bool
	quiet      bool
	output     io.Writer
	mu         sync.Mutex
}

func NewProgress(c *collector.Collector, windowOpen time.Time, quiet bool) *Progress {
	return &Progress{
		collector:  c,
		windowOpen: windowOpen,
		quiet:      quiet,
		output:     os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

func (p *Progress) Start() {
	if p.quiet {
		return
	}
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(1 * time.Second)
	go p.run()
}

func (p *Progress) run() {
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.printStatus()
		}
	}
}

func (p *Progress) printStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if remaining := time.Until(p.windowOpen); remaining > 0 {
		fmt.Fprintf(p.output, "\033[Kwindow opens in %v", remaining.Round(time.Second))
		return
	}

	s := p.collector.Compute()
	fmt.Fprintf(p.output, "\033[KSlots: %d | Requests: %d | Success: %d | Expired: %d",
		s.TotalSlots, s.TotalRequests, s.SuccessCount, s.ExpiredCount)
}

func (p *Progress) Stop() {
	if p.quiet || p.stopped.Swap(true) {
		return
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K")
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K"+format+"\n", args...)
	p.mu.Unlock()
}
