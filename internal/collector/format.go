package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"burstfire/internal/core"
)

// FormatText writes the summary in human-readable form.
func FormatText(w io.Writer, s *Summary) {
	if s.TotalSlots == 0 {
		fmt.Fprintln(w, "No attempts recorded")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Burstfire - Run Results")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", s.RunDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Attempt Slots:  %d\n", s.TotalSlots)
	fmt.Fprintf(w, "Total Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Success Rate:   %.1f%% (%d / %d slots)\n",
		s.SuccessRate, s.SuccessCount, s.TotalSlots)
	fmt.Fprintf(w, "Expired:        %d\n", s.ExpiredCount)
	fmt.Fprintf(w, "Failed:         %d\n", s.FailedCount)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Latency:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(s.Latency.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(s.Latency.Avg))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(s.Latency.P95))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(s.Latency.Max))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Scheduling Error:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(s.SchedError.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(s.SchedError.Avg))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(s.SchedError.Max))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "By Offset:")
	for _, offset := range sortedOffsets(s.ByOffset) {
		g := s.ByOffset[offset]
		fmt.Fprintf(w, "  %+5dms  %d slots  %d reqs  success=%.0f%%  avg=%s  sched=%s\n",
			offset.Milliseconds(), g.Slots, g.Requests, g.SuccessRate,
			FormatDuration(g.Latency.Avg), FormatDuration(g.SchedError.Avg))
	}
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "By Target:")
	for _, slot := range sortedTargets(s.ByTarget) {
		g := s.ByTarget[slot]
		fmt.Fprintf(w, "  %-10s %d slots  %d reqs  success=%.0f%%  avg=%s\n",
			slot, g.Slots, g.Requests, g.SuccessRate, FormatDuration(g.Latency.Avg))
	}
}

// FormatJSON writes the summary in JSON form.
func FormatJSON(w io.Writer, s *Summary) error {
	output := struct {
		*Summary
		RunDuration string                    `json:"runDuration"`
		ByOffset    map[string]*GroupMetrics  `json:"byOffset"`
		ByTarget    map[string]*GroupMetrics  `json:"byTarget"`
	}{
		Summary:     s,
		RunDuration: s.RunDuration.Round(time.Millisecond).String(),
		ByOffset:    make(map[string]*GroupMetrics, len(s.ByOffset)),
		ByTarget:    make(map[string]*GroupMetrics, len(s.ByTarget)),
	}
	for offset, g := range s.ByOffset {
		output.ByOffset[fmt.Sprintf("%+dms", offset.Milliseconds())] = g
	}
	for slot, g := range s.ByTarget {
		output.ByTarget[string(slot)] = g
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	var out string
	switch {
	case d < time.Millisecond:
		out = fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		out = fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		out = fmt.Sprintf("%.1fs", d.Seconds())
	default:
		out = d.Round(time.Second).String()
	}
	if neg {
		out = "-" + out
	}
	return out
}

func sortedOffsets(m map[time.Duration]*GroupMetrics) []time.Duration {
	offsets := make([]time.Duration, 0, len(m))
	for offset := range m {
		offsets = append(offsets, offset)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

func sortedTargets(m map[core.TargetSlot]*GroupMetrics) []core.TargetSlot {
	slots := make([]core.TargetSlot, 0, len(m))
	for slot := range m {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}
