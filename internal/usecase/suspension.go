package usecase

import (
	"container/heap"
	"sort"
	"time"

	"BartWatch/internal/domain/models"
)

// SuspendedEntry records a detected departure for the cool-down window.
type SuspendedEntry struct {
	Snapshot  models.Estimate
	ExpiresAt time.Time
}

type suspendedHeap []SuspendedEntry

func (h suspendedHeap) Len() int           { return len(h) }
func (h suspendedHeap) Less(i, j int) bool { return h[i].ExpiresAt.Before(h[j].ExpiresAt) }
func (h suspendedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *suspendedHeap) Push(x any)        { *h = append(*h, x.(SuspendedEntry)) }
func (h *suspendedHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// SuspensionTracker suppresses re-scheduling of an estimate that was already detected.
// Matching is by value: every field of the estimate must be equal.
// Not safe for concurrent use; owned by the monitor goroutine.
type SuspensionTracker struct {
	entries suspendedHeap
	live    map[models.Estimate]int
}

func NewSuspensionTracker() *SuspensionTracker {
	return &SuspensionTracker{live: make(map[models.Estimate]int)}
}

// Prune drops every entry with ExpiresAt <= now and returns how many were removed.
func (t *SuspensionTracker) Prune(now time.Time) int {
	n := 0
	for t.entries.Len() > 0 && !t.entries[0].ExpiresAt.After(now) {
		e := heap.Pop(&t.entries).(SuspendedEntry)
		if t.live[e.Snapshot]--; t.live[e.Snapshot] <= 0 {
			delete(t.live, e.Snapshot)
		}
		n++
	}
	return n
}

// Suppressed reports whether an unexpired entry holds an equal snapshot.
// Callers must Prune first in the same cycle.
func (t *SuspensionTracker) Suppressed(e models.Estimate) bool {
	return t.live[e] > 0
}

// Suspend adds an entry expiring at expiresAt.
func (t *SuspensionTracker) Suspend(e models.Estimate, expiresAt time.Time) {
	heap.Push(&t.entries, SuspendedEntry{Snapshot: e, ExpiresAt: expiresAt})
	t.live[e]++
}

// Len returns the number of entries not yet pruned.
func (t *SuspensionTracker) Len() int { return t.entries.Len() }

// Entries returns a copy of the held entries ordered by expiry.
func (t *SuspensionTracker) Entries() []SuspendedEntry {
	out := make([]SuspendedEntry, len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}
