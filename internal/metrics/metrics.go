package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

const (
	ResultSent    = "sent"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics captures delivery health signals.
type Metrics struct {
	messagesTotal *prometheus.CounterVec
	sendRetries   prometheus.Counter
	batchDuration prometheus.Histogram
	batchRuns     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffinbill_messages_total",
			Help: "Outbound messages by template and result.",
		}, []string{"template", "result"}),
		sendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tiffinbill_send_retries_total",
			Help: "Delivery attempts beyond the first.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tiffinbill_batch_duration_seconds",
			Help:    "Wall time of one send-batch operation.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffinbill_batch_runs_total",
			Help: "Send-batch operations by filter.",
		}, []string{"filter"}),
	}

	if reg != nil {
		reg.MustRegister(m.messagesTotal, m.sendRetries, m.batchDuration, m.batchRuns)
	}
	return m
}

func (m *Metrics) RecordMessage(templateType, result string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(templateType, result).Inc()
}

func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.sendRetries.Inc()
}

func (m *Metrics) ObserveBatch(filter string, d time.Duration) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(filter).Inc()
	m.batchDuration.Observe(d.Seconds())
}

// Module provides a dedicated registry plus the application metrics.
var Module = fx.Module("metrics",
	fx.Provide(NewRegistry),
	fx.Provide(func(reg *prometheus.Registry) *Metrics { return New(reg) }),
)

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}
