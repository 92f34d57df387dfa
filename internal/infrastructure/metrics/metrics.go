// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics is safe to use; all
// record methods become no-ops, which keeps tests free of global state.
type Metrics struct {
	PredictionsTotal  *prometheus.CounterVec
	PredictionErrors  *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	SwitchesTotal     *prometheus.CounterVec
}

// New registers the service collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modguard",
			Name:      "predictions_total",
			Help:      "Number of predictions served, by model and predicted label.",
		}, []string{"model", "label"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modguard",
			Name:      "prediction_errors_total",
			Help:      "Number of failed predictions, by error kind.",
		}, []string{"kind"}),
		InferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modguard",
			Name:      "inference_duration_seconds",
			Help:      "Model compute time per prediction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"model"}),
		SwitchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modguard",
			Name:      "model_switches_total",
			Help:      "Number of successful active-model switches, by target model.",
		}, []string{"model"}),
	}

	reg.MustRegister(m.PredictionsTotal, m.PredictionErrors, m.InferenceDuration, m.SwitchesTotal)
	return m
}

// RecordPrediction counts one served prediction and its compute time,
// given in milliseconds as reported on the prediction result. The
// seconds conversion for the histogram happens here and nowhere else.
func (m *Metrics) RecordPrediction(model, label string, millis float64) {
	if m == nil {
		return
	}
	m.PredictionsTotal.WithLabelValues(model, label).Inc()
	m.InferenceDuration.WithLabelValues(model).Observe(millis / 1000)
}

// RecordPredictionError counts one failed prediction.
func (m *Metrics) RecordPredictionError(kind string) {
	if m == nil {
		return
	}
	m.PredictionErrors.WithLabelValues(kind).Inc()
}

// RecordSwitch counts one successful model switch.
func (m *Metrics) RecordSwitch(model string) {
	if m == nil {
		return
	}
	m.SwitchesTotal.WithLabelValues(model).Inc()
}
