package usecase

import (
	"context"

	"BartWatch/internal/domain/models"
)

// Outbox is the one-directional channel from the monitor to the display consumer.
// Sends block while the buffer is full so no packet is dropped.
type Outbox struct {
	ch chan models.Message
}

func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = 64
	}
	return &Outbox{ch: make(chan models.Message, size)}
}

// Send enqueues msg, waiting for room or ctx.
func (o *Outbox) Send(ctx context.Context, msg models.Message) error {
	select {
	case o.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message arrives or ctx is done.
func (o *Outbox) Receive(ctx context.Context) (models.Message, error) {
	select {
	case m := <-o.ch:
		return m, nil
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}

// TryReceive returns immediately; ok is false when nothing is queued.
func (o *Outbox) TryReceive() (models.Message, bool) {
	select {
	case m := <-o.ch:
		return m, true
	default:
		return models.Message{}, false
	}
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int { return len(o.ch) }
