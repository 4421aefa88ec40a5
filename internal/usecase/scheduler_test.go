package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BartWatch/internal/domain/models"
)

func TestDelaySchedulerFireAt(t *testing.T) {
	s := NewDelayScheduler()
	st := models.StationConfig{ID: "nbrk", Name: "North Berkeley", Direction: "North", NotifyDelay: 85 * time.Second}
	c := models.Candidate{StationID: "nbrk", Destination: "Richmond", Estimate: leaving("Richmond", "North", 8)}

	n := s.Schedule(c, st, t0)
	assert.Equal(t, t0.Add(85*time.Second), n.FireAt)
	assert.Equal(t, "North", n.Direction)
	assert.Equal(t, 8, n.Length)

	assert.Empty(t, s.Due(t0.Add(84*time.Second)))
	due := s.Due(t0.Add(85 * time.Second))
	require.Len(t, due, 1)
	assert.Equal(t, n, due[0])
	assert.Equal(t, 0, s.Len())
}

func TestDelaySchedulerOrder(t *testing.T) {
	s := NewDelayScheduler()
	slow := models.StationConfig{ID: "plza", NotifyDelay: 140 * time.Second}
	fast := models.StationConfig{ID: "nbrk", NotifyDelay: 85 * time.Second}

	s.Schedule(models.Candidate{StationID: "plza", Destination: "Millbrae"}, slow, t0)
	s.Schedule(models.Candidate{StationID: "nbrk", Destination: "Richmond"}, fast, t0)
	s.Schedule(models.Candidate{StationID: "nbrk", Destination: "Antioch"}, fast, t0)

	pending := s.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, "Richmond", pending[0].Destination)
	assert.Equal(t, "Antioch", pending[1].Destination, "ties keep insertion order")
	assert.Equal(t, "Millbrae", pending[2].Destination)

	due := s.Due(t0.Add(time.Hour))
	require.Len(t, due, 3)
	assert.Equal(t, []string{"Richmond", "Antioch", "Millbrae"},
		[]string{due[0].Destination, due[1].Destination, due[2].Destination})
}

func TestDelaySchedulerZeroDelay(t *testing.T) {
	s := NewDelayScheduler()
	s.Schedule(models.Candidate{StationID: "x"}, models.StationConfig{ID: "x"}, t0)
	assert.Len(t, s.Due(t0), 1)
}

func TestDelaySchedulerRequeue(t *testing.T) {
	s := NewDelayScheduler()
	st := models.StationConfig{ID: "nbrk", NotifyDelay: 10 * time.Second}
	s.Schedule(models.Candidate{StationID: "nbrk", Destination: "Richmond"}, st, t0)
	s.Schedule(models.Candidate{StationID: "nbrk", Destination: "Antioch"}, st, t0)
	s.Schedule(models.Candidate{StationID: "nbrk", Destination: "Millbrae"}, st, t0.Add(time.Minute))

	due := s.Due(t0.Add(10 * time.Second))
	require.Len(t, due, 2)
	s.Requeue(due[1:])

	again := s.Due(t0.Add(10 * time.Second))
	require.Len(t, again, 1)
	assert.Equal(t, "Antioch", again[0].Destination)
	assert.Equal(t, t0.Add(10*time.Second), again[0].FireAt)
	assert.Equal(t, 1, s.Len())
}
