package repository

import (
	"context"
	"time"

	"BartWatch/internal/domain/models"
)

// DepartureFeed fetches live departure estimates for one station.
// Failures wrap models.ErrFeedTransient or models.ErrMissingField.
type DepartureFeed interface {
	Fetch(ctx context.Context, stationID string) ([]models.DestinationGroup, error)
}

// Display renders the monitor output for a human.
type Display interface {
	Boot(ctx context.Context) error
	Init(ctx context.Context) error
	Clock(ctx context.Context, now time.Time) error
	Show(ctx context.Context, p models.NotificationPacket) error
}

// NotificationSink receives every emitted packet after the display.
type NotificationSink interface {
	Name() string
	Publish(ctx context.Context, p models.NotificationPacket) error
	Close() error
}

type Metrics interface {
	RecordCycle(seconds float64)
	RecordError(kind string)
	RecordDetection(station string)
	RecordSuppressed(station string)
	RecordNotification(station string)
	RecordPending(scheduled, suspended int)
	RecordState(state string)
	RecordLatency(op string, seconds float64)
}
