// Package metrics holds the Prometheus metrics recorded during an export run.
// A run is a short-lived process, so metrics are kept in a private registry and
// optionally written out in textfile format when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "ffdl"

// Transcript outcome label values.
const (
	StatusExported = "exported"
	StatusFailed   = "failed"
)

// ExportMetrics holds all metrics for an export run.
type ExportMetrics struct {
	registry *prometheus.Registry

	TranscriptsTotal      *prometheus.CounterVec
	ArtifactsWrittenTotal *prometheus.CounterVec
	ArtifactErrorsTotal   *prometheus.CounterVec
	MediaBytesTotal       *prometheus.CounterVec
	ExportSeconds         prometheus.Histogram
}

// New creates the export metrics on a fresh registry.
func New() *ExportMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ExportMetrics{
		registry: reg,
		TranscriptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "transcripts_total",
				Help:      "Transcripts processed by outcome",
			},
			[]string{"status"},
		),
		ArtifactsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "artifacts_written_total",
				Help:      "Artifacts written per format",
			},
			[]string{"format"},
		),
		ArtifactErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "artifact_errors_total",
				Help:      "Artifact writes that failed per format",
			},
			[]string{"format"},
		),
		MediaBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "media_bytes_total",
				Help:      "Media bytes downloaded per kind",
			},
			[]string{"kind"},
		),
		ExportSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "transcript_export_seconds",
				Help:      "Wall time to export one transcript",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *ExportMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTranscript records one transcript outcome and its duration.
func (m *ExportMetrics) RecordTranscript(status string, d time.Duration) {
	m.TranscriptsTotal.WithLabelValues(status).Inc()
	m.ExportSeconds.Observe(d.Seconds())
}

// RecordArtifact records a written artifact.
func (m *ExportMetrics) RecordArtifact(format string) {
	m.ArtifactsWrittenTotal.WithLabelValues(format).Inc()
}

// RecordArtifactError records a failed artifact write.
func (m *ExportMetrics) RecordArtifactError(format string) {
	m.ArtifactErrorsTotal.WithLabelValues(format).Inc()
}

// RecordMediaBytes adds downloaded bytes for a media kind.
func (m *ExportMetrics) RecordMediaBytes(kind string, n int64) {
	if n <= 0 {
		return
	}
	m.MediaBytesTotal.WithLabelValues(kind).Add(float64(n))
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text exposition format.
func (m *ExportMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
