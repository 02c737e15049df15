package traffic

import (
	"sync"
	"time"
)

// DefaultWindow is how far back Summary looks when reporting recent fetch outcomes.
const DefaultWindow = 5 * time.Minute

var defaultTracker Tracker

// RecordFetchSucceeded records a fetch that rendered weather.
func RecordFetchSucceeded() {
	defaultTracker.RecordFetchSucceeded()
}

// RecordFetchFailed records a fetch that ended in an error alert.
func RecordFetchFailed() {
	defaultTracker.RecordFetchFailed()
}

// RecordRefreshDenied records a refresh gesture that was rejected before fetching.
func RecordRefreshDenied() {
	defaultTracker.RecordRefreshDenied()
}

// Recent returns outcome counts within the window from the default tracker.
func Recent(window time.Duration) Summary {
	return defaultTracker.Recent(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Summary holds outcome counts for a window.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Denied    int `json:"denied"`
}

// Total returns succeeded + failed. Denied gestures never reached the fetch path.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed
}

// Tracker maintains sliding windows of fetch outcome timestamps.
type Tracker struct {
	mu        sync.Mutex
	succeeded []time.Time
	failed    []time.Time
	denied    []time.Time
}

func (t *Tracker) RecordFetchSucceeded() {
	t.record(&t.succeeded)
}

func (t *Tracker) RecordFetchFailed() {
	t.record(&t.failed)
}

func (t *Tracker) RecordRefreshDenied() {
	t.record(&t.denied)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// Recent returns outcome counts with timestamps not before now-window.
func (t *Tracker) Recent(window time.Duration) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	return Summary{
		Succeeded: countSince(t.succeeded, cutoff),
		Failed:    countSince(t.failed, cutoff),
		Denied:    countSince(t.denied, cutoff),
	}
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.succeeded = nil
	t.failed = nil
	t.denied = nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than DefaultWindow. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-DefaultWindow)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.succeeded)
	prune(&t.failed)
	prune(&t.denied)
}
