package router

import (
	"sync"
	"time"
)

// DefaultLatencyWindow is how far back handling latency is averaged.
const DefaultLatencyWindow = 10 * time.Second

// latencyWindow tracks per-message handling time over a sliding window.
type latencyWindow struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries []latencySample
}

type latencySample struct {
	at time.Time
	d  time.Duration
}

// Latency summarizes handling time over the window.
type Latency struct {
	Count int64 `json:"count"`
	AvgUs int64 `json:"avgUs"`
	MaxUs int64 `json:"maxUs"`
}

func newLatencyWindow(window time.Duration, now func() time.Time) *latencyWindow {
	return &latencyWindow{
		window:  window,
		now:     now,
		entries: make([]latencySample, 0, 128),
	}
}

func (w *latencyWindow) record(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, latencySample{at: w.now(), d: d})
}

func (w *latencyWindow) summary() Latency {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.window)
	start := 0
	for start < len(w.entries) && w.entries[start].at.Before(cutoff) {
		start++
	}
	if start > 0 {
		w.entries = append(w.entries[:0], w.entries[start:]...)
	}
	if len(w.entries) == 0 {
		return Latency{}
	}

	var total, peak time.Duration
	for _, e := range w.entries {
		total += e.d
		peak = max(peak, e.d)
	}
	n := int64(len(w.entries))
	return Latency{Count: n, AvgUs: total.Microseconds() / n, MaxUs: peak.Microseconds()}
}
