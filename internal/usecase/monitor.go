package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"BartWatch/internal/domain/models"
	drepo "BartWatch/internal/domain/repository"
	applogger "BartWatch/pkg/logger"
)

// State is the cadence controller state.
type State int32

const (
	StateRunning State = iota
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// MonitorConfig holds the loop timings.
type MonitorConfig struct {
	CyclePeriod      time.Duration // minimum spacing between cycle starts
	FetchTimeout     time.Duration // bound on the feed fetch step
	RecoveryDelay    time.Duration // constant sleep after a failed cycle
	SuspensionWindow time.Duration // dedup cool-down per detection
}

// DefaultMonitorConfig returns 1s cycles, 10s fetch bound, 3s recovery, 120s suspension.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CyclePeriod:      time.Second,
		FetchTimeout:     10 * time.Second,
		RecoveryDelay:    3 * time.Second,
		SuspensionWindow: 120 * time.Second,
	}
}

// Monitor is the cadence controller. It owns the suspension tracker and the delay
// scheduler; nothing else touches them, so they are unlocked.
type Monitor struct {
	cfg       MonitorConfig
	stations  map[string]models.StationConfig
	poller    *FeedPoller
	tracker   *SuspensionTracker
	scheduler *DelayScheduler
	outbox    *Outbox
	metrics   drepo.Metrics
	logger    *applogger.Logger
	clock     drepo.Clock

	startOnce sync.Once
	state     atomic.Int32
	started   atomic.Bool
	cycles    atomic.Int64
	recovers  atomic.Int64
	scheduled atomic.Int64
	suspended atomic.Int64
	lastCycle atomic.Int64 // unix nanos

	mu      sync.Mutex
	lastErr string
}

// NewMonitor builds a monitor polling every station in stations.
func NewMonitor(
	feed drepo.DepartureFeed,
	stations []models.StationConfig,
	outbox *Outbox,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	clock drepo.Clock,
	cfg MonitorConfig,
) *Monitor {
	byID := make(map[string]models.StationConfig, len(stations))
	ids := make([]string, 0, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
		ids = append(ids, st.ID)
	}
	if clock == nil {
		clock = drepo.SystemClock{}
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Monitor{
		cfg:       cfg,
		stations:  byID,
		poller:    NewFeedPoller(feed, ids, cfg.FetchTimeout),
		tracker:   NewSuspensionTracker(),
		scheduler: NewDelayScheduler(),
		outbox:    outbox,
		metrics:   metrics,
		logger:    logger.With(applogger.String("component", "monitor")),
		clock:     clock,
	}
}

// Run announces the start sentinel once, then cycles until ctx is cancelled.
// Cycle errors never end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.announce(ctx); err != nil {
		return err
	}
	m.logger.Info("monitor started",
		applogger.Strings("stations", m.poller.Stations()),
		applogger.Duration("cycle_period_ms", m.cfg.CyclePeriod))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := m.clock.Now()
		err := m.RunCycle(ctx)
		m.metrics.RecordCycle(m.clock.Now().Sub(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.recover(ctx, err)
		}

		// Recovery time counts toward the period, so no extra sleep follows it.
		elapsed := m.clock.Now().Sub(start)
		if elapsed < m.cfg.CyclePeriod {
			if err := m.clock.Sleep(ctx, m.cfg.CyclePeriod-elapsed); err != nil {
				return err
			}
		}
	}
}

// announce sends the start sentinel. It runs at most once per Monitor.
func (m *Monitor) announce(ctx context.Context) error {
	var err error
	m.startOnce.Do(func() {
		err = m.outbox.Send(ctx, models.StartMessage())
		if err == nil {
			m.started.Store(true)
		}
	})
	return err
}

func (m *Monitor) recover(ctx context.Context, err error) {
	kind := models.ErrorKind(err)
	m.setState(StateRecovering)
	m.recovers.Add(1)
	m.metrics.RecordError(kind)
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
	m.logger.Warn("cycle failed, retrying",
		applogger.String("kind", kind),
		applogger.Duration("retry_in_ms", m.cfg.RecoveryDelay),
		applogger.Error(err))

	_ = m.clock.Sleep(ctx, m.cfg.RecoveryDelay)
	m.setState(StateRunning)
}

// RunCycle performs poll, filter, dedup/schedule and emit-due once. A poll or filter
// error leaves tracker and scheduler untouched; an emit error requeues what was not sent.
func (m *Monitor) RunCycle(ctx context.Context) error {
	now := m.clock.Now()
	m.cycles.Add(1)
	m.lastCycle.Store(now.UnixNano())

	start := time.Now()
	feeds, err := m.poller.Poll(ctx)
	m.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("poll feed: %w", err)
	}

	candidates, err := FilterCandidates(feeds, m.stations)
	if err != nil {
		return fmt.Errorf("filter estimates: %w", err)
	}

	m.tracker.Prune(now)
	for _, c := range candidates {
		if m.tracker.Suppressed(c.Estimate) {
			m.metrics.RecordSuppressed(c.StationID)
			continue
		}
		if !c.Estimate.IsLeaving() {
			continue
		}
		n := m.scheduler.Schedule(c, m.stations[c.StationID], now)
		m.tracker.Suspend(c.Estimate, now.Add(m.cfg.SuspensionWindow))
		m.metrics.RecordDetection(c.StationID)
		m.logger.Info("departure detected",
			applogger.String("station", c.StationID),
			applogger.String("destination", c.Destination),
			applogger.String("direction", c.Estimate.Direction),
			applogger.Time("fire_at", n.FireAt))
	}

	if err := m.emitDue(ctx, now); err != nil {
		return err
	}

	m.scheduled.Store(int64(m.scheduler.Len()))
	m.suspended.Store(int64(m.tracker.Len()))
	m.metrics.RecordPending(m.scheduler.Len(), m.tracker.Len())
	return nil
}

// emitDue sends every due notification. Notifications not yet sent when Send fails
// go back to the scheduler and are retried on the next cycle.
func (m *Monitor) emitDue(ctx context.Context, now time.Time) error {
	due := m.scheduler.Due(now)
	for i, n := range due {
		st := m.stations[n.StationID]
		p := models.NotificationPacket{
			Compass:   n.Direction,
			Station:   st.Name,
			TrainLine: n.Destination,
			CarNumber: n.Length,
		}
		if err := m.outbox.Send(ctx, models.PacketMessage(p)); err != nil {
			m.scheduler.Requeue(due[i:])
			return fmt.Errorf("emit notification: %w", err)
		}
		m.metrics.RecordNotification(n.StationID)
		m.logger.Info("notification emitted",
			applogger.String("station", n.StationID),
			applogger.String("train_line", n.Destination),
			applogger.Int("cars", n.Length))
	}
	return nil
}

func (m *Monitor) setState(s State) {
	m.state.Store(int32(s))
	m.metrics.RecordState(s.String())
}

// State returns the current controller state.
func (m *Monitor) State() State { return State(m.state.Load()) }

// Status returns a snapshot safe to read from other goroutines.
func (m *Monitor) Status() models.MonitorStatus {
	m.mu.Lock()
	lastErr := m.lastErr
	m.mu.Unlock()
	var last *time.Time
	if ns := m.lastCycle.Load(); ns != 0 {
		t := time.Unix(0, ns)
		last = &t
	}
	return models.MonitorStatus{
		State:      m.State().String(),
		Started:    m.started.Load(),
		Cycles:     m.cycles.Load(),
		Recoveries: m.recovers.Load(),
		Scheduled:  m.scheduled.Load(),
		Suspended:  m.suspended.Load(),
		LastCycle:  last,
		LastError:  lastErr,
	}
}

// Stations returns the configured stations in polling order.
func (m *Monitor) Stations() []models.StationConfig {
	out := make([]models.StationConfig, 0, len(m.stations))
	for _, id := range m.poller.Stations() {
		out = append(out, m.stations[id])
	}
	return out
}

// Station looks up one configured station.
func (m *Monitor) Station(id string) (models.StationConfig, bool) {
	st, ok := m.stations[id]
	return st, ok
}
