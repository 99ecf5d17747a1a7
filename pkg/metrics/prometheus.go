package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default bucket layouts.
var (
	defaultStageBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket layout
	scoreBuckets        = prometheus.LinearBuckets(-0.3, 0.05, 13)                             //nolint:gochecknoglobals // bucket layout
)

// Manager owns the Prometheus collectors for a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Run outcome
	runs        *prometheus.CounterVec
	stageTime   *prometheus.HistogramVec
	stageErrors *prometheus.CounterVec

	// Data shape
	rowsGenerated       prometheus.Gauge
	outliersInjected    prometheus.Gauge
	zeroVarianceColumns prometheus.Gauge

	// Detector output
	anomaliesDetected prometheus.Gauge
	anomalyRatio      prometheus.Gauge
	decisionOffset    prometheus.Gauge
	decisionScores    prometheus.Histogram

	// Rendering
	chartsRendered *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "anomaly",
		subsystem:        "pipeline",
		histogramBuckets: defaultStageBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string { return m.metricPrefix + n }

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("runs_total"),
		Help:        "Pipeline runs by outcome",
		ConstLabels: labels,
	}, []string{"result"})

	m.stageTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stage_duration_milliseconds"),
		Help:        "Wall time of each pipeline stage in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"stage"})

	m.stageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stage_errors_total"),
		Help:        "Stage failures by stage",
		ConstLabels: labels,
	}, []string{"stage"})

	m.rowsGenerated = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rows_generated"),
		Help:        "Rows in the generated telemetry table",
		ConstLabels: labels,
	})

	m.outliersInjected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("outliers_injected"),
		Help:        "Rows overwritten with synthetic spikes",
		ConstLabels: labels,
	})

	m.zeroVarianceColumns = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("zero_variance_columns"),
		Help:        "Constant columns passed through by the normalizer",
		ConstLabels: labels,
	})

	m.anomaliesDetected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("anomalies_detected"),
		Help:        "Rows labeled anomalous in the last run",
		ConstLabels: labels,
	})

	m.anomalyRatio = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("anomaly_ratio"),
		Help:        "Share of rows labeled anomalous in the last run",
		ConstLabels: labels,
	})

	m.decisionOffset = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("decision_offset"),
		Help:        "Raw score threshold fitted from the contamination rate",
		ConstLabels: labels,
	})

	m.decisionScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("decision_score"),
		Help:        "Distribution of per-row decision scores",
		Buckets:     scoreBuckets,
		ConstLabels: labels,
	})

	m.chartsRendered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("charts_rendered_total"),
		Help:        "Charts written by kind",
		ConstLabels: labels,
	}, []string{"kind"})
}

// RecordRun counts a finished run; result is "success" or "failure".
func RecordRun(result string) {
	globalManager.runs.WithLabelValues(result).Inc()
}

// RecordStageDuration observes a stage's wall time in milliseconds.
func RecordStageDuration(stage string, ms float64) {
	globalManager.stageTime.WithLabelValues(stage).Observe(ms)
}

// RecordStageError counts a stage failure.
func RecordStageError(stage string) {
	globalManager.stageErrors.WithLabelValues(stage).Inc()
}

// UpdateRowsGenerated sets the generated row count.
func UpdateRowsGenerated(rows int) {
	globalManager.rowsGenerated.Set(float64(rows))
}

// UpdateOutliersInjected sets the injected outlier count.
func UpdateOutliersInjected(n int) {
	globalManager.outliersInjected.Set(float64(n))
}

// UpdateZeroVarianceColumns sets the number of constant columns.
func UpdateZeroVarianceColumns(n int) {
	globalManager.zeroVarianceColumns.Set(float64(n))
}

// UpdateAnomalies sets the anomalous row count and its share of total rows.
func UpdateAnomalies(anomalies, total int) {
	globalManager.anomaliesDetected.Set(float64(anomalies))
	if total > 0 {
		globalManager.anomalyRatio.Set(float64(anomalies) / float64(total))
	}
}

// UpdateDecisionOffset sets the fitted decision offset.
func UpdateDecisionOffset(offset float64) {
	globalManager.decisionOffset.Set(offset)
}

// RecordDecisionScores observes every score of a run.
func RecordDecisionScores(scores []float64) {
	for _, s := range scores {
		globalManager.decisionScores.Observe(s)
	}
}

// RecordChartRendered counts a written chart.
func RecordChartRendered(kind string) {
	globalManager.chartsRendered.WithLabelValues(kind).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current metrics in text exposition format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
