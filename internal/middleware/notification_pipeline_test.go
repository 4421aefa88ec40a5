package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BartWatch/internal/domain/models"
	domrepo "BartWatch/internal/domain/repository"
)

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *nopMetrics) RecordCycle(float64) {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}
func (m *nopMetrics) RecordDetection(string)        {}
func (m *nopMetrics) RecordSuppressed(string)       {}
func (m *nopMetrics) RecordNotification(string)     {}
func (m *nopMetrics) RecordPending(int, int)        {}
func (m *nopMetrics) RecordState(string)            {}
func (m *nopMetrics) RecordLatency(string, float64) {}

func (m *nopMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type flakySink struct {
	name  string
	mu    sync.Mutex
	fails int
	got   []models.NotificationPacket
	close int
}

func (s *flakySink) Name() string { return s.name }
func (s *flakySink) Publish(_ context.Context, p models.NotificationPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("unavailable")
	}
	s.got = append(s.got, p)
	return nil
}
func (s *flakySink) Close() error { s.close++; return nil }

func (s *flakySink) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

var packet = models.NotificationPacket{Compass: "North", Station: "North Berkeley", TrainLine: "Richmond", CarNumber: 8}

func TestPipelineFanOut(t *testing.T) {
	a, b := &flakySink{name: "a"}, &flakySink{name: "b"}
	p := NewNotificationPipeline([]domrepo.NotificationSink{a, b}, &nopMetrics{})

	require.NoError(t, p.Process(context.Background(), packet))
	assert.Equal(t, 1, a.delivered())
	assert.Equal(t, 1, b.delivered())
	assert.Equal(t, 0, p.Buffered())
}

func TestPipelineRejectsInvalidPacket(t *testing.T) {
	a := &flakySink{name: "a"}
	m := &nopMetrics{}
	p := NewNotificationPipeline([]domrepo.NotificationSink{a}, m)

	err := p.Process(context.Background(), models.NotificationPacket{Compass: "North"})
	require.Error(t, err)
	assert.Equal(t, 0, a.delivered())
	assert.Equal(t, 1, m.count("pipeline_validate"))
}

func TestPipelineRetriesFailedSink(t *testing.T) {
	ok, flaky := &flakySink{name: "ok"}, &flakySink{name: "flaky", fails: 2}
	m := &nopMetrics{}
	p := NewNotificationPipeline([]domrepo.NotificationSink{ok, flaky}, m,
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	err := p.Process(ctx, packet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink flaky")
	assert.Equal(t, 1, ok.delivered(), "healthy sink unaffected")

	require.Eventually(t, func() bool { return flaky.delivered() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, m.count("sink_flaky"))
	assert.Equal(t, 1, m.count("sink_retry_flaky"))
}

func TestPipelineBufferFull(t *testing.T) {
	down := &flakySink{name: "down", fails: 10}
	m := &nopMetrics{}
	p := NewNotificationPipeline([]domrepo.NotificationSink{down}, m, WithBufferSize(1))

	_ = p.Process(context.Background(), packet)
	_ = p.Process(context.Background(), packet)
	assert.Equal(t, 1, p.Buffered())
	assert.Equal(t, 1, m.count("pipeline_buffer_full"))
}

func TestPipelineCloseClosesSinks(t *testing.T) {
	a, b := &flakySink{name: "a"}, &flakySink{name: "b"}
	p := NewNotificationPipeline([]domrepo.NotificationSink{a, b}, &nopMetrics{})
	p.Start(context.Background())

	require.NoError(t, p.Close())
	assert.Equal(t, 1, a.close)
	assert.Equal(t, 1, b.close)
	p.Stop()
}
