package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BartWatch/internal/domain/models"
	domrepo "BartWatch/internal/domain/repository"
)

// NotificationPipeline sits between the display consumer and the external sinks.
// It validates packets, fans them out, and buffers deliveries a sink rejected so a
// background loop can retry them.
type NotificationPipeline struct {
	sinks    []domrepo.NotificationSink
	metrics  domrepo.Metrics
	bufSize  int
	bufCh    chan delivery
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
}

type delivery struct {
	sink   domrepo.NotificationSink
	packet models.NotificationPacket
}

type PipelineOption func(*NotificationPipeline)

// WithBufferSize sets how many failed deliveries are kept for retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *NotificationPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff sets the retry backoff bounds.
func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *NotificationPipeline) {
		if min > 0 {
			p.minDelay = min
		}
		if max >= p.minDelay {
			p.maxDelay = max
		}
	}
}

func NewNotificationPipeline(sinks []domrepo.NotificationSink, metrics domrepo.Metrics, opts ...PipelineOption) *NotificationPipeline {
	p := &NotificationPipeline{
		sinks:    sinks,
		metrics:  metrics,
		bufSize:  256,
		stopCh:   make(chan struct{}),
		minDelay: 50 * time.Millisecond,
		maxDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan delivery, p.bufSize)
	return p
}

// Start launches the retry loop.
func (p *NotificationPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := p.minDelay
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case d := <-p.bufCh:
				if err := d.sink.Publish(ctx, d.packet); err != nil {
					if backoff < p.maxDelay {
						backoff *= 2
						if backoff > p.maxDelay {
							backoff = p.maxDelay
						}
					}
					p.metrics.RecordError("sink_retry_" + d.sink.Name())
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					case <-ctx.Done():
						return
					}
					p.enqueue(d)
				} else {
					backoff = p.minDelay
				}
			}
		}
	}()
}

// Stop ends the retry loop. Buffered deliveries are abandoned.
func (p *NotificationPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates p and publishes it to every sink. A sink error buffers that
// delivery for retry; the joined errors are returned.
func (p *NotificationPipeline) Process(ctx context.Context, pkt models.NotificationPacket) error {
	start := time.Now()
	if err := validatePacket(pkt); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, pkt); err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			p.enqueue(delivery{sink: s, packet: pkt})
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return errors.Join(errs...)
}

// Buffered returns the number of deliveries waiting for retry.
func (p *NotificationPipeline) Buffered() int { return len(p.bufCh) }

// Close stops the pipeline and closes every sink.
func (p *NotificationPipeline) Close() error {
	p.Stop()
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *NotificationPipeline) enqueue(d delivery) {
	select {
	case p.bufCh <- d:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

func validatePacket(p models.NotificationPacket) error {
	if p.Station == "" {
		return fmt.Errorf("packet station empty")
	}
	if p.Compass == "" {
		return fmt.Errorf("packet compass empty")
	}
	if p.CarNumber < 0 {
		return fmt.Errorf("packet car number negative")
	}
	return nil
}
