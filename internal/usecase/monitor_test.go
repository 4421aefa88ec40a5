package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BartWatch/internal/domain/models"
)

var nbrk = models.StationConfig{ID: "nbrk", Name: "North Berkeley", Direction: "North", NotifyDelay: 85 * time.Second}

type monitorFixture struct {
	mon     *Monitor
	feed    *fakeFeed
	clock   *fakeClock
	outbox  *Outbox
	metrics *countingMetrics
}

func newMonitorFixture(t *testing.T, stations ...models.StationConfig) *monitorFixture {
	t.Helper()
	if len(stations) == 0 {
		stations = []models.StationConfig{nbrk}
	}
	f := &monitorFixture{
		feed:    newFakeFeed(),
		clock:   newFakeClock(t0),
		outbox:  NewOutbox(256),
		metrics: newCountingMetrics(),
	}
	f.mon = NewMonitor(f.feed, stations, f.outbox, f.metrics, nil, f.clock, DefaultMonitorConfig())
	return f
}

func (f *monitorFixture) cycleAt(t *testing.T, offset time.Duration) []models.Message {
	t.Helper()
	f.clock.Set(t0.Add(offset))
	require.NoError(t, f.mon.RunCycle(context.Background()))
	return drain(f.outbox)
}

func TestMonitorDetectionFiresAfterDelay(t *testing.T) {
	f := newMonitorFixture(t)
	f.feed.Set("nbrk", group("Richmond", leaving("Richmond", "North", 8)))

	assert.Empty(t, f.cycleAt(t, 0))
	require.Equal(t, 1, f.mon.scheduler.Len())
	entries := f.mon.tracker.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, t0.Add(120*time.Second), entries[0].ExpiresAt)

	for s := 1; s <= 84; s++ {
		assert.Empty(t, f.cycleAt(t, time.Duration(s)*time.Second), "t=%d", s)
	}

	msgs := f.cycleAt(t, 85*time.Second)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessagePacket, msgs[0].Kind)
	assert.Equal(t, models.NotificationPacket{
		Compass:   "North",
		Station:   "North Berkeley",
		TrainLine: "Richmond",
		CarNumber: 8,
	}, msgs[0].Packet)
	assert.Equal(t, 1, f.metrics.detections["nbrk"])
	assert.Equal(t, 1, f.metrics.notifications["nbrk"])
}

func TestMonitorSuppressesWithinWindow(t *testing.T) {
	f := newMonitorFixture(t)
	f.feed.Set("nbrk", group("Richmond", leaving("Richmond", "North", 8)))

	total := 0
	for s := 0; s <= 119; s++ {
		total += len(f.cycleAt(t, time.Duration(s)*time.Second))
		assert.Equal(t, 1, f.mon.tracker.Len(), "t=%d", s)
	}
	assert.Equal(t, 1, total, "one packet across the whole window")
	assert.Equal(t, 1, f.metrics.detections["nbrk"])
	assert.Equal(t, 119, f.metrics.suppressed["nbrk"])

	// entry expired, same estimate is a fresh detection
	assert.Empty(t, f.cycleAt(t, 121*time.Second))
	assert.Equal(t, 2, f.metrics.detections["nbrk"])
	pending := f.mon.scheduler.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, t0.Add(206*time.Second), pending[0].FireAt)
}

func TestMonitorExpiryIsInclusive(t *testing.T) {
	f := newMonitorFixture(t)
	f.feed.Set("nbrk", group("Richmond", leaving("Richmond", "North", 8)))

	f.cycleAt(t, 0)
	f.cycleAt(t, 120*time.Second)
	assert.Equal(t, 2, f.metrics.detections["nbrk"])
}

func TestMonitorFieldDriftEscapesSuppression(t *testing.T) {
	f := newMonitorFixture(t)
	e := leaving("Richmond", "North", 8)
	f.feed.Set("nbrk", group("Richmond", e))
	f.cycleAt(t, 0)

	e.Delay = 42
	f.feed.Set("nbrk", group("Richmond", e))
	f.cycleAt(t, time.Second)

	assert.Equal(t, 2, f.metrics.detections["nbrk"])
	assert.Equal(t, 2, f.mon.scheduler.Len())
}

func TestMonitorIdenticalEstimatesAcrossStationsCollide(t *testing.T) {
	plza := models.StationConfig{ID: "plza", Name: "El Cerrito Plaza", Direction: "North", NotifyDelay: 140 * time.Second}
	f := newMonitorFixture(t, nbrk, plza)
	e := leaving("Richmond", "North", 8)
	f.feed.Set("nbrk", group("Richmond", e))
	f.feed.Set("plza", group("Richmond", e))

	f.cycleAt(t, 0)
	assert.Equal(t, 1, f.metrics.detections["nbrk"])
	assert.Equal(t, 0, f.metrics.detections["plza"])
	assert.Equal(t, 1, f.metrics.suppressed["plza"])
}

func TestMonitorIgnoresNonLeaving(t *testing.T) {
	f := newMonitorFixture(t)
	f.feed.Set("nbrk", group("Richmond",
		minutes("Richmond", "North", "4", 8),
		leaving("Richmond", "North", 8),
	))

	f.cycleAt(t, 0)
	assert.Equal(t, 0, f.mon.scheduler.Len())
	assert.Equal(t, 0, f.mon.tracker.Len())
}

func TestMonitorFailedCycleKeepsState(t *testing.T) {
	f := newMonitorFixture(t)
	f.feed.Set("nbrk", group("Richmond", leaving("Richmond", "North", 8)))
	f.cycleAt(t, 0)
	before := f.mon.scheduler.Pending()
	beforeEntries := f.mon.tracker.Entries()

	f.feed.fn = func(context.Context, string) error { return models.ErrFeedTransient }
	f.clock.Set(t0.Add(200 * time.Second))
	err := f.mon.RunCycle(context.Background())
	require.ErrorIs(t, err, models.ErrFeedTransient)

	assert.Equal(t, before, f.mon.scheduler.Pending())
	assert.Equal(t, beforeEntries, f.mon.tracker.Entries(), "no prune on a failed cycle")
	assert.Empty(t, drain(f.outbox), "due notifications wait for a good cycle")

	f.feed.fn = nil
	f.feed.Set("nbrk")
	msgs := f.cycleAt(t, 201*time.Second)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Richmond", msgs[0].Packet.TrainLine)
}

func TestMonitorTimeoutClassified(t *testing.T) {
	f := newMonitorFixture(t)
	cfg := DefaultMonitorConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	f.mon = NewMonitor(f.feed, []models.StationConfig{nbrk}, f.outbox, f.metrics, nil, f.clock, cfg)
	f.feed.fn = func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := f.mon.RunCycle(context.Background())
	assert.ErrorIs(t, err, models.ErrFeedTimeout)
}

func TestMonitorRunCadence(t *testing.T) {
	cases := []struct {
		name  string
		work  time.Duration
		sleep []time.Duration
	}{
		{name: "fast cycle sleeps the remainder", work: 200 * time.Millisecond, sleep: []time.Duration{800 * time.Millisecond}},
		{name: "exactly one period", work: time.Second, sleep: nil},
		{name: "slow cycle starts next immediately", work: 1500 * time.Millisecond, sleep: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMonitorFixture(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			calls := 0
			f.feed.fn = func(context.Context, string) error {
				calls++
				if calls > 2 {
					cancel()
					return context.Canceled
				}
				f.clock.Advance(tc.work)
				return nil
			}

			err := f.mon.Run(ctx)
			assert.ErrorIs(t, err, context.Canceled)

			var want []time.Duration
			for i := 0; i < 2; i++ {
				want = append(want, tc.sleep...)
			}
			assert.Equal(t, want, f.clock.Sleeps())
		})
	}
}

func TestMonitorRunRecovery(t *testing.T) {
	f := newMonitorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	f.feed.fn = func(context.Context, string) error {
		calls++
		switch {
		case calls <= 2:
			return models.ErrFeedTimeout
		case calls == 3:
			return nil
		default:
			cancel()
			return context.Canceled
		}
	}
	var states []State
	f.clock.onSleep = func(int) { states = append(states, f.mon.State()) }

	err := f.mon.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// two 3s recoveries (no cadence sleep after them), then a full 1s period
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, time.Second}, f.clock.Sleeps())
	assert.Equal(t, []State{StateRecovering, StateRecovering, StateRunning}, states)
	assert.Equal(t, StateRunning, f.mon.State())
	assert.Equal(t, 2, f.metrics.errors["timeout"])
	for _, d := range f.metrics.cycles {
		assert.Less(t, d, 1.0, "recovery sleep is not part of the cycle duration")
	}

	st := f.mon.Status()
	assert.True(t, st.Started)
	assert.Equal(t, int64(2), st.Recoveries)
	assert.Equal(t, "running", st.State)
	assert.Contains(t, st.LastError, "timed out")

	msgs := drain(f.outbox)
	starts := 0
	for _, m := range msgs {
		if m.Kind == models.MessageStart {
			starts++
		}
	}
	assert.Equal(t, 1, starts, "sentinel sent once regardless of recoveries")
	require.NotEmpty(t, msgs)
	assert.Equal(t, models.MessageStart, msgs[0].Kind)
}

func TestMonitorRunSentinelOncePerProcess(t *testing.T) {
	f := newMonitorFixture(t)
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		f.feed.fn = func(context.Context, string) error {
			cancel()
			return context.Canceled
		}
		err := f.mon.Run(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.Len(t, drain(f.outbox), 1)
}

func TestMonitorStations(t *testing.T) {
	plza := models.StationConfig{ID: "plza", Name: "El Cerrito Plaza", Direction: "South"}
	f := newMonitorFixture(t, plza, nbrk)

	got := f.mon.Stations()
	require.Len(t, got, 2)
	assert.Equal(t, "nbrk", got[0].ID)
	st, ok := f.mon.Station("plza")
	assert.True(t, ok)
	assert.Equal(t, "El Cerrito Plaza", st.Name)
	_, ok = f.mon.Station("embr")
	assert.False(t, ok)
}

func TestMonitorRunSlowFetchRecoversWithStateIntact(t *testing.T) {
	f := newMonitorFixture(t)
	cfg := DefaultMonitorConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	f.mon = NewMonitor(f.feed, []models.StationConfig{nbrk}, f.outbox, f.metrics, nil, f.clock, cfg)
	f.feed.Set("nbrk", group("Richmond", leaving("Richmond", "North", 8)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	defer close(release)

	var calls atomic.Int32
	var pendingDuring, suspendedDuring int
	f.feed.fn = func(context.Context, string) error {
		switch calls.Add(1) {
		case 1:
			return nil
		case 2:
			// ignores its context; only the poller bound ends the wait
			<-release
			return nil
		default:
			cancel()
			return context.Canceled
		}
	}
	f.clock.onSleep = func(n int) {
		if n == 2 {
			pendingDuring = f.mon.scheduler.Len()
			suspendedDuring = f.mon.tracker.Len()
		}
	}

	err := f.mon.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, f.clock.Sleeps())
	assert.Equal(t, 1, f.metrics.errors["timeout"])
	assert.Equal(t, 1, pendingDuring, "scheduled notification survives the timeout")
	assert.Equal(t, 1, suspendedDuring, "suspension survives the timeout")
	assert.Equal(t, int64(1), f.mon.Status().Recoveries)
	assert.Equal(t, StateRunning, f.mon.State())
}

func TestMonitorEmitFailureRequeues(t *testing.T) {
	zero := models.StationConfig{ID: "nbrk", Name: "North Berkeley", Direction: "North"}
	f := newMonitorFixture(t, zero)
	f.outbox = NewOutbox(1)
	f.mon = NewMonitor(f.feed, []models.StationConfig{zero}, f.outbox, f.metrics, nil, f.clock, DefaultMonitorConfig())
	f.feed.Set("nbrk",
		group("Richmond", leaving("Richmond", "North", 8)),
		group("Antioch", leaving("Antioch", "North", 10)),
	)
	require.NoError(t, f.outbox.Send(context.Background(), models.StartMessage()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f.clock.Set(t0)
	require.Error(t, f.mon.RunCycle(ctx))
	assert.Equal(t, 2, f.mon.scheduler.Len(), "unsent notifications go back to the scheduler")

	drain(f.outbox)
	var got []string
	for i := 1; i <= 2; i++ {
		f.clock.Set(t0.Add(time.Duration(i) * time.Second))
		cctx, ccancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_ = f.mon.RunCycle(cctx)
		ccancel()
		for _, m := range drain(f.outbox) {
			got = append(got, m.Packet.TrainLine)
		}
	}
	assert.Equal(t, []string{"Richmond", "Antioch"}, got, "one slot per cycle, nothing lost, order kept")
	assert.Equal(t, 0, f.mon.scheduler.Len())
}

func TestMonitorStatusLastCycle(t *testing.T) {
	f := newMonitorFixture(t)
	assert.Nil(t, f.mon.Status().LastCycle)

	f.cycleAt(t, 5*time.Second)
	last := f.mon.Status().LastCycle
	require.NotNil(t, last)
	assert.True(t, last.Equal(t0.Add(5*time.Second)))
}
