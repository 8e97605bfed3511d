package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Report metrics
	ReportRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prismatics_report_requests_total",
			Help: "Total number of report requests",
		},
		[]string{"report", "status"}, // status: success|error
	)

	ReportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prismatics_report_duration_seconds",
			Help:    "Report assembly duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"report"},
	)

	// Live-update metrics
	ConnectedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "prismatics_connected_subscribers",
			Help: "Number of connected live-update subscribers",
		},
	)

	ChangeSignals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prismatics_change_signals_total",
			Help: "Total number of data-changed signals broadcast",
		},
	)
)

// MustRegister registers all collectors with the default registry.
// Call once at startup.
func MustRegister() {
	prometheus.MustRegister(
		ReportRequests,
		ReportDuration,
		ConnectedSubscribers,
		ChangeSignals,
	)
}

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
