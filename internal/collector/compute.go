package collector

import (
	"sort"
	"time"

	"burstfire/internal/core"
)

// Summary contains aggregated results for one burst run.
type Summary struct {
	TotalSlots    int           `json:"totalSlots"`
	TotalRequests int           `json:"totalRequests"`
	SuccessCount  int           `json:"successCount"`
	ExpiredCount  int           `json:"expiredCount"`
	FailedCount   int           `json:"failedCount"`
	SuccessRate   float64       `json:"successRate"`
	RunDuration   time.Duration `json:"runDuration"`

	Latency    DurationMetrics `json:"latency"`
	SchedError DurationMetrics `json:"schedulingError"`

	ByOffset map[time.Duration]*GroupMetrics `json:"-"`
	ByTarget map[core.TargetSlot]*GroupMetrics `json:"-"`
}

// GroupMetrics contains per-offset or per-target statistics.
type GroupMetrics struct {
	Slots       int             `json:"slots"`
	Requests    int             `json:"requests"`
	Success     int             `json:"success"`
	SuccessRate float64         `json:"successRate"`
	Latency     DurationMetrics `json:"latency"`
	SchedError  DurationMetrics `json:"schedulingError"`
}

// DurationMetrics contains latency statistics.
type DurationMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// ComputeSummary computes summary statistics from records. Pure function,
// no side effects; the result is identical for any permutation of records.
func ComputeSummary(records []core.AttemptRecord, runDuration time.Duration) *Summary {
	s := &Summary{
		ByOffset:    make(map[time.Duration]*GroupMetrics),
		ByTarget:    make(map[core.TargetSlot]*GroupMetrics),
		RunDuration: runDuration,
	}
	if len(records) == 0 {
		return s
	}

	latencies := make([]time.Duration, 0, len(records))
	schedErrors := make([]time.Duration, 0, len(records))
	offsetLat := make(map[time.Duration][]time.Duration)
	offsetSched := make(map[time.Duration][]time.Duration)
	targetLat := make(map[core.TargetSlot][]time.Duration)
	targetSched := make(map[core.TargetSlot][]time.Duration)

	for _, r := range records {
		s.TotalSlots++
		s.TotalRequests += 1 + r.Retries
		switch r.Outcome {
		case core.OutcomeSuccess:
			s.SuccessCount++
		case core.OutcomeExpired:
			s.ExpiredCount++
		default:
			s.FailedCount++
		}

		latencies = append(latencies, r.Latency)
		schedErrors = append(schedErrors, r.SchedulingError())

		og, ok := s.ByOffset[r.Offset]
		if !ok {
			og = &GroupMetrics{}
			s.ByOffset[r.Offset] = og
		}
		accumulate(og, r)
		offsetLat[r.Offset] = append(offsetLat[r.Offset], r.Latency)
		offsetSched[r.Offset] = append(offsetSched[r.Offset], r.SchedulingError())

		tg, ok := s.ByTarget[r.Slot]
		if !ok {
			tg = &GroupMetrics{}
			s.ByTarget[r.Slot] = tg
		}
		accumulate(tg, r)
		targetLat[r.Slot] = append(targetLat[r.Slot], r.Latency)
		targetSched[r.Slot] = append(targetSched[r.Slot], r.SchedulingError())
	}

	s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalSlots) * 100
	s.Latency = ComputeDurationMetrics(latencies)
	s.SchedError = ComputeDurationMetrics(schedErrors)

	for offset, g := range s.ByOffset {
		g.SuccessRate = float64(g.Success) / float64(g.Slots) * 100
		g.Latency = ComputeDurationMetrics(offsetLat[offset])
		g.SchedError = ComputeDurationMetrics(offsetSched[offset])
	}
	for slot, g := range s.ByTarget {
		g.SuccessRate = float64(g.Success) / float64(g.Slots) * 100
		g.Latency = ComputeDurationMetrics(targetLat[slot])
		g.SchedError = ComputeDurationMetrics(targetSched[slot])
	}

	return s
}

func accumulate(g *GroupMetrics, r core.AttemptRecord) {
	g.Slots++
	g.Requests += 1 + r.Retries
	if r.Outcome == core.OutcomeSuccess {
		g.Success++
	}
}

// ComputePercentile calculates the percentile value from a sorted slice
// of durations using the nearest-rank method. The percentile p should be
// between 0 and 1 (e.g., 0.95 for p95).
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// ComputeDurationMetrics calculates all duration statistics from a slice
// of durations.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
