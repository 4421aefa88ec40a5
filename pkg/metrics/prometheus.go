package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	errorsTotal   *prometheus.CounterVec
	detections    *prometheus.CounterVec
	suppressed    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	pending       *prometheus.GaugeVec
	state         *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "bartwatch_cycles_total",
			Help: "Monitor cycles started",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bartwatch_cycle_duration_seconds",
			Help:    "Wall-clock duration of a monitor cycle, recovery included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bartwatch_errors_total",
			Help: "Errors by kind",
		}, []string{"type"}),
		detections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bartwatch_detections_total",
			Help: "Departing trains scheduled for notification",
		}, []string{"station"}),
		suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bartwatch_suppressed_total",
			Help: "Candidates suppressed by an active suspension",
		}, []string{"station"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bartwatch_notifications_total",
			Help: "Notification packets emitted to the display",
		}, []string{"station"}),
		pending: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bartwatch_pending",
			Help: "Pending scheduled notifications and active suspensions",
		}, []string{"kind"}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bartwatch_monitor_state",
			Help: "1 for the current monitor state",
		}, []string{"state"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bartwatch_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// RecordCycle counts a finished cycle and its duration.
func (r *Recorder) RecordCycle(seconds float64) {
	r.cycles.Inc()
	r.cycleDuration.Observe(seconds)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordDetection(station string) {
	r.detections.WithLabelValues(station).Inc()
}

func (r *Recorder) RecordSuppressed(station string) {
	r.suppressed.WithLabelValues(station).Inc()
}

func (r *Recorder) RecordNotification(station string) {
	r.notifications.WithLabelValues(station).Inc()
}

func (r *Recorder) RecordPending(scheduled, suspended int) {
	r.pending.WithLabelValues("scheduled").Set(float64(scheduled))
	r.pending.WithLabelValues("suspended").Set(float64(suspended))
}

// RecordState sets the gauge for state to 1 and the other known state to 0.
func (r *Recorder) RecordState(state string) {
	for _, s := range []string{"running", "recovering"} {
		v := 0.0
		if s == state {
			v = 1
		}
		r.state.WithLabelValues(s).Set(v)
	}
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
