package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout holds the load-test-facing instruments: outcome counts and the
// per-order processing latency distribution.
type Checkout struct {
	Finalized  *prometheus.CounterVec
	DurationMs prometheus.Histogram
}

func NewCheckout(subsystem string) *Checkout {
	finalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: subsystem,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by terminal outcome.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: subsystem,
		Name:      "checkout_duration_ms",
		Help:      "Checkout processing time in milliseconds.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	prometheus.MustRegister(finalized, duration)
	return &Checkout{Finalized: finalized, DurationMs: duration}
}

func (c *Checkout) Observe(status string, durationMs int64) {
	if c == nil {
		return
	}
	c.Finalized.WithLabelValues(status).Inc()
	c.DurationMs.Observe(float64(durationMs))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
