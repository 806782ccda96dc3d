package intake

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/edtriage/internal/esi"
)

// Metrics holds Prometheus metrics for the intake subsystem.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	RecordsTotal       prometheus.Counter
	QueueDepth         *prometheus.GaugeVec
	QueueBypassTotal   prometheus.Counter
	DequeuesTotal      *prometheus.CounterVec
	QueueWait          *prometheus.HistogramVec
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns intake metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edtriage_assessments_total",
			Help: "Total triage assessments by ESI level and deciding rule.",
		}, []string{"level", "rule"}),
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edtriage_records_total",
			Help: "Total triage records appended to the audit log.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "edtriage_queue_depth",
			Help: "Patients currently waiting, by ESI level.",
		}, []string{"level"}),
		QueueBypassTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edtriage_queue_bypass_total",
			Help: "ESI 1 patients sent straight to resuscitation.",
		}),
		DequeuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edtriage_dequeues_total",
			Help: "Patients called from the queue, by ESI level.",
		}, []string{"level"}),
		QueueWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edtriage_queue_wait_seconds",
			Help:    "Time between enqueue and being called, by ESI level.",
			Buckets: prometheus.ExponentialBuckets(60, 2, 9), // 1m .. ~4h16m
		}, []string{"level"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edtriage_notifications_total",
			Help: "Admission pages by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.RecordsTotal,
		m.QueueDepth,
		m.QueueBypassTotal,
		m.DequeuesTotal,
		m.QueueWait,
		m.NotificationsTotal,
	)

	return m
}

func levelLabel(l esi.Level) string { return strconv.Itoa(int(l)) }

// Hooks returns Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnAssess: func(level esi.Level, rule string) {
			m.AssessmentsTotal.WithLabelValues(levelLabel(level), rule).Inc()
		},
		OnRecord: func() {
			m.RecordsTotal.Inc()
		},
		OnBypass: func() {
			m.QueueBypassTotal.Inc()
		},
		OnDepth: func(counts map[esi.Level]int) {
			for level, n := range counts {
				m.QueueDepth.WithLabelValues(levelLabel(level)).Set(float64(n))
			}
		},
		OnDequeue: func(level esi.Level, waitedSeconds float64) {
			m.DequeuesTotal.WithLabelValues(levelLabel(level)).Inc()
			m.QueueWait.WithLabelValues(levelLabel(level)).Observe(waitedSeconds)
		},
		OnNotified: func(err error) {
			result := "sent"
			if err != nil {
				result = "error"
			}
			m.NotificationsTotal.WithLabelValues(result).Inc()
		},
	}
}
