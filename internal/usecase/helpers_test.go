package usecase

import (
	"context"
	"sync"
	"time"

	"BartWatch/internal/domain/models"
)

var t0 = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sleeps) == 0 {
		return nil
	}
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeFeed serves fixed groups per station. fn, when set, runs before each fetch
// and may return an error to fail it.
type fakeFeed struct {
	mu     sync.Mutex
	groups map[string][]models.DestinationGroup
	fn     func(ctx context.Context, station string) error
	calls  []string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{groups: make(map[string][]models.DestinationGroup)}
}

func (f *fakeFeed) Set(station string, groups ...models.DestinationGroup) {
	f.mu.Lock()
	f.groups[station] = groups
	f.mu.Unlock()
}

func (f *fakeFeed) Fetch(ctx context.Context, station string) ([]models.DestinationGroup, error) {
	f.mu.Lock()
	f.calls = append(f.calls, station)
	fn := f.fn
	g := f.groups[station]
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, station); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (f *fakeFeed) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type countingMetrics struct {
	mu            sync.Mutex
	errors        map[string]int
	detections    map[string]int
	suppressed    map[string]int
	notifications map[string]int
	cycles        []float64
	states        []string
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		errors:        map[string]int{},
		detections:    map[string]int{},
		suppressed:    map[string]int{},
		notifications: map[string]int{},
	}
}

func (m *countingMetrics) RecordCycle(sec float64) {
	m.mu.Lock()
	m.cycles = append(m.cycles, sec)
	m.mu.Unlock()
}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordDetection(s string) {
	m.mu.Lock()
	m.detections[s]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordSuppressed(s string) {
	m.mu.Lock()
	m.suppressed[s]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordNotification(s string) {
	m.mu.Lock()
	m.notifications[s]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordPending(int, int) {}
func (m *countingMetrics) RecordState(s string) {
	m.mu.Lock()
	m.states = append(m.states, s)
	m.mu.Unlock()
}
func (m *countingMetrics) RecordLatency(string, float64) {}

func leaving(dest, dir string, cars int) models.Estimate {
	return models.Estimate{Destination: dest, Direction: dir, Minutes: models.Leaving, Length: cars, Platform: "2", Color: "ORANGE"}
}

func minutes(dest, dir, mins string, cars int) models.Estimate {
	return models.Estimate{Destination: dest, Direction: dir, Minutes: mins, Length: cars, Platform: "2", Color: "ORANGE"}
}

func group(dest string, est ...models.Estimate) models.DestinationGroup {
	return models.DestinationGroup{Destination: dest, Estimates: est}
}

// drain returns every queued outbox message.
func drain(o *Outbox) []models.Message {
	var out []models.Message
	for {
		m, ok := o.TryReceive()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}
