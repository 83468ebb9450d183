package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics exposes counters/histograms for conversation turns and
// calendar calls.
type SchedulerMetrics struct {
	turnsTotal         *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
	calendarTotal      *prometheus.CounterVec
	calendarDuration   *prometheus.HistogramVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total conversation turns by intent and outcome",
		}, []string{"intent", "outcome"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "conversation",
			Name:      "side_effect_failures_total",
			Help:      "Audit log and email failures after a committed calendar change",
		}, []string{"effect"}),
		calendarTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "calendar",
			Name:      "requests_total",
			Help:      "Total calendar backend calls",
		}, []string{"operation", "status"}),
		calendarDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "calendar",
			Name:      "request_duration_seconds",
			Help:      "Latency of calendar backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.sideEffectFailures, m.calendarTotal, m.calendarDuration)
	return m
}

func (m *SchedulerMetrics) RecordTurn(intent, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *SchedulerMetrics) RecordSideEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(effect).Inc()
}

func (m *SchedulerMetrics) ObserveCalendarRequest(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calendarTotal.WithLabelValues(operation, status).Inc()
	m.calendarDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
