// Package monitoring exposes Prometheus instruments for the prediction path.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusMismatch = "schema_mismatch"
	StatusError    = "error"

	// UnknownDeployment labels requests naming no configured deployment.
	UnknownDeployment = "unknown"
)

// Metrics groups the counters and histograms recorded per prediction.
type Metrics struct {
	predictions       *prometheus.CounterVec
	predictLatency    *prometheus.HistogramVec
	validationFailure *prometheus.CounterVec
	deployments       prometheus.Gauge
}

// NewMetrics registers against the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers every instrument with registerer.
func NewMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insurecast_predictions_total",
			Help: "Prediction requests by deployment and outcome",
		}, []string{"deployment", "status"}),
		predictLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insurecast_prediction_duration_seconds",
			Help:    "Time spent validating, encoding and invoking the model",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"deployment"}),
		validationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insurecast_validation_failures_total",
			Help: "Rejected input fields",
		}, []string{"field"}),
		deployments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "insurecast_deployments_loaded",
			Help: "Number of deployments currently served",
		}),
	}
	registerer.MustRegister(m.predictions, m.predictLatency, m.validationFailure, m.deployments)
	return m
}

// ObservePrediction records one finished request.
func (m *Metrics) ObservePrediction(deployment, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(deployment, status).Inc()
	m.predictLatency.WithLabelValues(deployment).Observe(elapsed.Seconds())
}

// ObserveValidationFailure counts each rejected field.
func (m *Metrics) ObserveValidationFailure(fields ...string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.validationFailure.WithLabelValues(f).Inc()
	}
}

// SetDeployments records how many deployments are served.
func (m *Metrics) SetDeployments(n int) {
	if m == nil {
		return
	}
	m.deployments.Set(float64(n))
}
