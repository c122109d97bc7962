package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterMetrics records the business counters of one register terminal
// fleet: sale commits, reversals and session closures.
type RegisterMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	salesCommitted   *prometheus.CounterVec
	linesReversed    prometheus.Counter
	oversellLines    prometheus.Counter
	sessionsClosed   *prometheus.CounterVec
}

// NewRegisterMetrics registers the POS metrics on the provided registerer.
func NewRegisterMetrics(reg prometheus.Registerer) *RegisterMetrics {
	if reg == nil {
		return &RegisterMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	salesCommitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_committed_total",
		Help: "Committed sale orders.",
	}, []string{"mode"})
	linesReversed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_lines_reversed_total",
		Help: "Order lines cancelled through compensating reversals.",
	})
	oversellLines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oversell_lines_total",
		Help: "Committed lines carrying an oversell remainder.",
	})
	sessionsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "terminal_sessions_closed_total",
		Help: "Closed terminal sessions by reconciliation outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkoutDuration, salesCommitted, linesReversed, oversellLines, sessionsClosed)
	return &RegisterMetrics{
		checkoutDuration: checkoutDuration,
		salesCommitted:   salesCommitted,
		linesReversed:    linesReversed,
		oversellLines:    oversellLines,
		sessionsClosed:   sessionsClosed,
	}
}

// ObserveCheckout records one checkout's duration for the given mode.
func (m *RegisterMetrics) ObserveCheckout(mode string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(mode)).Observe(duration.Seconds())
}

// IncSaleCommitted counts a committed sale for the given allocation mode.
func (m *RegisterMetrics) IncSaleCommitted(mode string) {
	if m == nil || m.salesCommitted == nil {
		return
	}
	m.salesCommitted.WithLabelValues(normalizeLabel(mode)).Inc()
}

// AddLinesReversed counts reversed lines.
func (m *RegisterMetrics) AddLinesReversed(n int) {
	if m == nil || m.linesReversed == nil || n <= 0 {
		return
	}
	m.linesReversed.Add(float64(n))
}

// IncOversellLine counts a committed line that carries oversell quantity.
func (m *RegisterMetrics) IncOversellLine() {
	if m == nil || m.oversellLines == nil {
		return
	}
	m.oversellLines.Inc()
}

// IncSessionClosed counts a closed session; outcome is "balanced" or "off".
func (m *RegisterMetrics) IncSessionClosed(outcome string) {
	if m == nil || m.sessionsClosed == nil {
		return
	}
	m.sessionsClosed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
