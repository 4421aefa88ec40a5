package usecase

import (
	"container/heap"
	"time"

	"BartWatch/internal/domain/models"
)

type scheduledItem struct {
	n   models.ScheduledNotification
	seq uint64
}

type scheduleHeap []scheduledItem

func (h scheduleHeap) Len() int { return len(h) }
func (h scheduleHeap) Less(i, j int) bool {
	if h[i].n.FireAt.Equal(h[j].n.FireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].n.FireAt.Before(h[j].n.FireAt)
}
func (h scheduleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scheduleHeap) Push(x any)   { *h = append(*h, x.(scheduledItem)) }
func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// DelayScheduler holds pending notifications ordered by fire time.
// Entries with equal fire times come out in insertion order.
// Not safe for concurrent use; owned by the monitor goroutine.
type DelayScheduler struct {
	items scheduleHeap
	seq   uint64
}

func NewDelayScheduler() *DelayScheduler { return &DelayScheduler{} }

// Schedule queues a notification for c firing at now + station.NotifyDelay.
func (s *DelayScheduler) Schedule(c models.Candidate, st models.StationConfig, now time.Time) models.ScheduledNotification {
	n := models.ScheduledNotification{
		StationID:   c.StationID,
		Destination: c.Destination,
		Direction:   c.Estimate.Direction,
		Length:      c.Estimate.Length,
		FireAt:      now.Add(st.NotifyDelay),
	}
	s.seq++
	heap.Push(&s.items, scheduledItem{n: n, seq: s.seq})
	return n
}

// Due removes and returns every notification with FireAt <= now.
func (s *DelayScheduler) Due(now time.Time) []models.ScheduledNotification {
	var out []models.ScheduledNotification
	for s.items.Len() > 0 && !s.items[0].n.FireAt.After(now) {
		out = append(out, heap.Pop(&s.items).(scheduledItem).n)
	}
	return out
}

// Requeue puts back notifications taken by Due but not delivered. They keep their
// FireAt and their relative order.
func (s *DelayScheduler) Requeue(ns []models.ScheduledNotification) {
	for _, n := range ns {
		s.seq++
		heap.Push(&s.items, scheduledItem{n: n, seq: s.seq})
	}
}

// Len returns the number of pending notifications.
func (s *DelayScheduler) Len() int { return s.items.Len() }

// Pending returns a copy of the pending notifications in fire order.
func (s *DelayScheduler) Pending() []models.ScheduledNotification {
	cp := make(scheduleHeap, len(s.items))
	copy(cp, s.items)
	out := make([]models.ScheduledNotification, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heap.Pop(&cp).(scheduledItem).n)
	}
	return out
}
