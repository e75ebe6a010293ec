package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authorisation module.
type Metrics struct {
	// Stage outcomes by service type, resulting SCA status and outcome
	StageOutcome *prometheus.CounterVec

	// SPI adapter call latencies by service type and operation
	SpiLatency *prometheus.HistogramVec

	// Overall stage processing latency
	StageLatency prometheus.Histogram
}

// New creates a Metrics instance with all authorisation metrics registered.
func New() *Metrics {
	return &Metrics{
		StageOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "xs2a_authorisation_stage_outcomes_total",
			Help: "Total authorisation stage outcomes by service type, SCA status and outcome",
		}, []string{"service", "sca_status", "outcome"}), // outcome: "success", "failed"

		SpiLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xs2a_authorisation_spi_duration_seconds",
			Help:    "Duration of SPI adapter calls by service type and operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"service", "operation"}),

		StageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "xs2a_authorisation_stage_duration_seconds",
			Help:    "Duration of full authorisation stage processing including SPI calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementOutcome records one stage outcome.
func (m *Metrics) IncrementOutcome(service, scaStatus, outcome string) {
	if m != nil {
		m.StageOutcome.WithLabelValues(service, scaStatus, outcome).Inc()
	}
}

// ObserveSpiLatency records the duration of one SPI adapter call.
func (m *Metrics) ObserveSpiLatency(service, operation string, d time.Duration) {
	if m != nil {
		m.SpiLatency.WithLabelValues(service, operation).Observe(d.Seconds())
	}
}

// ObserveStageLatency records the total stage processing duration.
func (m *Metrics) ObserveStageLatency(d time.Duration) {
	if m != nil {
		m.StageLatency.Observe(d.Seconds())
	}
}
