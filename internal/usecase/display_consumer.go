package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"BartWatch/internal/domain/models"
	drepo "BartWatch/internal/domain/repository"
	applogger "BartWatch/pkg/logger"
)

// Forwarder hands a shown packet to the external sinks.
type Forwarder interface {
	Process(ctx context.Context, p models.NotificationPacket) error
}

// DisplayConsumer drains the outbox on its own tick. It waits for the start
// sentinel, initialises the display, then redraws the clock every tick and renders
// a packet whenever one is queued.
type DisplayConsumer struct {
	outbox  *Outbox
	display drepo.Display
	forward Forwarder
	tick    time.Duration
	logger  *applogger.Logger

	shown atomic.Int64
}

func NewDisplayConsumer(outbox *Outbox, display drepo.Display, forward Forwarder, tick time.Duration, logger *applogger.Logger) *DisplayConsumer {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	return &DisplayConsumer{
		outbox:  outbox,
		display: display,
		forward: forward,
		tick:    tick,
		logger:  logger.With(applogger.String("component", "display")),
	}
}

// WaitStart blocks until the start sentinel arrives and initialises the display.
func (c *DisplayConsumer) WaitStart(ctx context.Context) error {
	for {
		msg, err := c.outbox.Receive(ctx)
		if err != nil {
			return err
		}
		if msg.Kind == models.MessageStart {
			break
		}
		c.logger.Debug("message before start sentinel ignored")
	}
	if err := c.display.Init(ctx); err != nil {
		c.logger.Warn("display init failed", applogger.Error(err))
	}
	c.logger.Info("display initialised")
	return nil
}

// Run waits for start, then ticks until ctx is cancelled.
func (c *DisplayConsumer) Run(ctx context.Context) error {
	if err := c.WaitStart(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Tick(ctx, now)
		}
	}
}

// Tick does one non-blocking read. An empty outbox is the normal idle case.
func (c *DisplayConsumer) Tick(ctx context.Context, now time.Time) {
	msg, ok := c.outbox.TryReceive()
	if err := c.display.Clock(ctx, now); err != nil {
		c.logger.Warn("clock redraw failed", applogger.Error(err))
	}
	if !ok || msg.Kind != models.MessagePacket {
		return
	}

	if err := c.display.Show(ctx, msg.Packet); err != nil {
		c.logger.Warn("display show failed", applogger.Error(err))
	}
	c.shown.Add(1)
	if c.forward != nil {
		if err := c.forward.Process(ctx, msg.Packet); err != nil {
			c.logger.Warn("forward failed", applogger.String("station", msg.Packet.Station), applogger.Error(err))
		}
	}
}

// Shown returns how many packets were rendered.
func (c *DisplayConsumer) Shown() int64 { return c.shown.Load() }
