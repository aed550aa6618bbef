// Package collector aggregates attempt records and computes summary statistics.
package collector

import (
	"sync"
	"time"

	"burstfire/internal/core"
)

// Collector accumulates terminal attempt records from retry controllers.
// Accumulation is append-only through a single channel consumer, so
// records arriving in any order from any number of goroutines are never
// lost or corrupted.
type Collector struct {
	records   []core.AttemptRecord
	ch        chan core.AttemptRecord
	done      chan struct{}
	mu        sync.Mutex
	clock     core.Clock
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its collection goroutine.
func NewCollector(clock core.Clock) *Collector {
	c := &Collector{
		records:   make([]core.AttemptRecord, 0),
		ch:        make(chan core.AttemptRecord, 256),
		done:      make(chan struct{}),
		clock:     clock,
		startTime: clock.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for rec := range c.ch {
		c.mu.Lock()
		c.records = append(c.records, rec)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report sends a record to the collector. Thread-safe. The send blocks
// when the buffer is full rather than dropping: every attempt slot that
// reaches a terminal state must contribute exactly one record.
func (c *Collector) Report(rec core.AttemptRecord) {
	c.ch <- rec
}

// Close stops accepting records and waits until every buffered record
// has been accumulated.
func (c *Collector) Close() {
	c.mu.Lock()
	c.endTime = c.clock.Now()
	c.mu.Unlock()
	close(c.ch)
	<-c.done
}

// Records returns a copy of collected records.
func (c *Collector) Records() []core.AttemptRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.AttemptRecord, len(c.records))
	copy(result, c.records)
	return result
}

// Duration returns the elapsed run time: start to Close if closed,
// start to now otherwise. Safe to call while another goroutine closes
// the collector; the progress ticker reads it mid-run.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return c.clock.Since(c.startTime)
}

// Compute produces summary statistics for everything collected so far.
func (c *Collector) Compute() *Summary {
	return ComputeSummary(c.Records(), c.Duration())
}
