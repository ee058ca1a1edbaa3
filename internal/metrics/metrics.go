// Package metrics exposes Prometheus instrumentation for the
// conversation pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the conversation pipeline.
type Metrics struct {
	// Extraction
	ExtractionsTotal  *prometheus.CounterVec
	ExtractionErrors  *prometheus.CounterVec
	ModeFallbacks     prometheus.Counter
	ExtractedMessages prometheus.Histogram

	// Analysis
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	FindingsTotal    *prometheus.CounterVec

	// Insights
	InsightsStoredTotal prometheus.Counter
	InsightStoreErrors  prometheus.Counter
}

// NewMetrics creates and registers the pipeline metrics.
//
// sync.Once ensures metrics register once globally, preventing
// "duplicate metrics collector registration" panics when multiple
// services are constructed in one process.
//
// All metrics are prefixed with "candor_" for namespacing.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ExtractionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "candor_extractions_total",
					Help: "Total number of extractions by resolved mode",
				},
				[]string{"mode"}, // "basic" or "advanced"
			),

			ExtractionErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "candor_extraction_errors_total",
					Help: "Total number of failed extractions by mode",
				},
				[]string{"mode"},
			),

			ModeFallbacks: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "candor_mode_fallbacks_total",
					Help: "Total number of advanced extractions that fell back to basic",
				},
			),

			ExtractedMessages: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "candor_extracted_messages",
					Help:    "Messages extracted per conversation",
					Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
				},
			),

			AnalysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "candor_analyses_total",
					Help: "Total number of analyses by strategy",
				},
				[]string{"strategy"},
			),

			AnalysisDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "candor_analysis_duration_seconds",
					Help:    "Duration of conversation analysis in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~65s
				},
				[]string{"strategy"},
			),

			FindingsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "candor_findings_total",
					Help: "Total number of analysis findings by dimension",
				},
				[]string{"dimension"},
			),

			InsightsStoredTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "candor_insights_stored_total",
					Help: "Total number of insights persisted",
				},
			),

			InsightStoreErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "candor_insight_store_errors_total",
					Help: "Total number of insight persistence failures",
				},
			),
		}
	})

	return globalMetrics
}

// RecordExtraction records a completed extraction.
func (m *Metrics) RecordExtraction(mode string, messages int) {
	m.ExtractionsTotal.WithLabelValues(mode).Inc()
	m.ExtractedMessages.Observe(float64(messages))
}

// RecordExtractionError records a failed extraction.
func (m *Metrics) RecordExtractionError(mode string) {
	m.ExtractionErrors.WithLabelValues(mode).Inc()
}

// RecordModeFallback records an advanced-to-basic fallback.
func (m *Metrics) RecordModeFallback() {
	m.ModeFallbacks.Inc()
}

// RecordAnalysis records a completed analysis with duration.
func (m *Metrics) RecordAnalysis(strategy string, durationSeconds float64) {
	m.AnalysesTotal.WithLabelValues(strategy).Inc()
	m.AnalysisDuration.WithLabelValues(strategy).Observe(durationSeconds)
}

// RecordFindings records finding counts for one dimension.
func (m *Metrics) RecordFindings(dimension string, count int) {
	m.FindingsTotal.WithLabelValues(dimension).Add(float64(count))
}

// RecordInsightStored records a persisted insight.
func (m *Metrics) RecordInsightStored() {
	m.InsightsStoredTotal.Inc()
}

// RecordInsightStoreError records an insight persistence failure.
func (m *Metrics) RecordInsightStoreError() {
	m.InsightStoreErrors.Inc()
}
