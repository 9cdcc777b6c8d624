package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Parse outcomes used as the outcome label.
const (
	OutcomeSuccess        = "success"
	OutcomeInputError     = "input_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeSerializeError = "serialize_error"
)

// Metrics holds the Prometheus metrics of the parse pipeline.
type Metrics struct {
	ParsesTotal        *prometheus.CounterVec
	ParseDuration      prometheus.Histogram
	PreviewFramesTotal prometheus.Counter
	PixelErrorsTotal   *prometheus.CounterVec
	AttributesEmitted  prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ParsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicompreview_parses_total",
				Help: "Parse invocations by outcome",
			},
			[]string{"outcome"},
		),

		ParseDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dicompreview_parse_duration_seconds",
				Help:    "Parse completion time distribution",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),

		PreviewFramesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dicompreview_preview_frames_total",
				Help: "Preview frames rendered and encoded",
			},
		),

		PixelErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicompreview_pixel_errors_total",
				Help: "Preview failures by stage",
			},
			[]string{"stage"},
		),

		AttributesEmitted: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dicompreview_attributes_emitted",
				Help:    "Top-level attributes per parsed file",
				Buckets: prometheus.ExponentialBuckets(8, 2, 8),
			},
		),
	}
}

// RecordParse records the outcome and duration of one parse.
func (m *Metrics) RecordParse(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ParsesTotal.WithLabelValues(outcome).Inc()
	m.ParseDuration.Observe(durationSeconds)
}

// RecordAttributes records the number of top-level attributes of a file.
func (m *Metrics) RecordAttributes(n int) {
	if m == nil {
		return
	}
	m.AttributesEmitted.Observe(float64(n))
}

// RecordPreviewFrames adds n rendered frames.
func (m *Metrics) RecordPreviewFrames(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PreviewFramesTotal.Add(float64(n))
}

// RecordPixelError increments the failure counter for stage.
func (m *Metrics) RecordPixelError(stage string) {
	if m == nil {
		return
	}
	m.PixelErrorsTotal.WithLabelValues(stage).Inc()
}
