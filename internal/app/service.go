// Package app wires the telemetry pipeline stages into a single run:
// generate, normalize, train, predict, explain, plot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/anomaly/internal/adapters/chart"
	"github.com/okian/anomaly/internal/domain/detector"
	"github.com/okian/anomaly/internal/domain/explain"
	"github.com/okian/anomaly/internal/domain/normalize"
	"github.com/okian/anomaly/internal/domain/telemetry"
	"github.com/okian/anomaly/pkg/logger"
	"github.com/okian/anomaly/pkg/metrics"
	"gonum.org/v1/plot/vg"
)

// Stage names, used in logs, metrics and wrapped errors.
const (
	StageGenerate  = "generate"
	StageNormalize = "normalize"
	StageTrain     = "train"
	StagePredict   = "predict"
	StageExplain   = "explain"
	StagePlot      = "plot"
)

const (
	topAnomaliesLogged        = 5
	nanosecondsPerMillisecond = 1e6
)

// Result holds everything a run produced.
type Result struct {
	RunID        string
	Raw          *telemetry.Table
	Normalized   *telemetry.Table
	ZeroVariance []string
	Model        *detector.Model
	Labels       []detector.Label
	Scores       []float64
	Report       explain.Report
	Charts       []string
}

// Anomalies counts the rows labeled anomalous.
func (r *Result) Anomalies() int {
	n := 0
	for _, l := range r.Labels {
		if l == detector.Anomalous {
			n++
		}
	}
	return n
}

// Service runs the pipeline with a fixed configuration.
type Service struct {
	logger logger.Logger

	// Generator
	rows            int
	seed            int64
	outlierFraction float64

	// Detector
	trees         int
	sampleSize    int
	contamination float64

	// Visualizer
	scoreChart     string
	telemetryChart string
	chartWidth     vg.Length
	chartHeight    vg.Length
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRows sets the number of generated rows.
func WithRows(n int) Option {
	return func(s *Service) { s.rows = n }
}

// WithSeed sets the seed shared by the generator and the forest.
func WithSeed(seed int64) Option {
	return func(s *Service) { s.seed = seed }
}

// WithOutlierFraction sets the share of generated rows turned into spikes.
func WithOutlierFraction(f float64) Option {
	return func(s *Service) { s.outlierFraction = f }
}

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(s *Service) { s.trees = n }
}

// WithSampleSize sets the per-tree sub-sample size; 0 keeps the detector default.
func WithSampleSize(n int) Option {
	return func(s *Service) { s.sampleSize = n }
}

// WithContamination sets the expected anomaly fraction.
func WithContamination(c float64) Option {
	return func(s *Service) { s.contamination = c }
}

// WithScoreChart sets the score chart path. Empty disables the chart.
func WithScoreChart(path string) Option {
	return func(s *Service) { s.scoreChart = path }
}

// WithTelemetryChart sets the raw telemetry chart path. Empty disables the chart.
func WithTelemetryChart(path string) Option {
	return func(s *Service) { s.telemetryChart = path }
}

// WithChartSize sets the chart size.
func WithChartSize(width, height vg.Length) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.chartWidth = width
			s.chartHeight = height
		}
	}
}

// New constructs a Service. Defaults reproduce the reference run: 1000
// rows, seed 42, 5% spikes, 100 trees, contamination 0.05, no charts.
func New(opts ...Option) *Service {
	s := &Service{
		rows:            1000,
		seed:            42,
		outlierFraction: 0.05,
		trees:           100,
		contamination:   0.05,
		chartWidth:      10 * vg.Inch,
		chartHeight:     4 * vg.Inch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every stage once, in order. The first failing stage aborts
// the run; its error is wrapped with ErrStage and the stage name.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := s.logger
	if log == nil {
		log = logger.Get()
	}
	log = log.With(logger.String("run_id", res.RunID))
	start := time.Now()

	if err := s.run(ctx, log, res); err != nil {
		metrics.RecordRun("failure")
		log.Error(ctx, "pipeline failed", logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	metrics.RecordRun("success")
	log.Info(ctx, "pipeline finished",
		logger.Int("rows", res.Raw.Rows()),
		logger.Int("anomalies", res.Anomalies()),
		logger.Float64("offset", res.Model.Offset()),
		logger.Strings("charts", res.Charts),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (s *Service) run(ctx context.Context, log logger.Logger, res *Result) error {
	err := s.stage(ctx, log, StageGenerate, func() error {
		t, err := telemetry.Generate(ctx,
			telemetry.WithRows(s.rows),
			telemetry.WithSeed(s.seed),
			telemetry.WithOutlierFraction(s.outlierFraction))
		if err != nil {
			return err
		}
		res.Raw = t
		metrics.UpdateRowsGenerated(t.Rows())
		metrics.UpdateOutliersInjected(len(t.OutlierRows()))
		return nil
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, log, StageNormalize, func() error {
		scaler := normalize.NewScaler()
		t, err := scaler.FitTransform(res.Raw)
		if err != nil {
			return err
		}
		res.Normalized = t
		res.ZeroVariance = scaler.ZeroVarianceColumns()
		metrics.UpdateZeroVarianceColumns(len(res.ZeroVariance))
		if len(res.ZeroVariance) > 0 {
			log.Warn(ctx, "constant columns centered without scaling", logger.Strings("columns", res.ZeroVariance))
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, log, StageTrain, func() error {
		opts := []detector.Option{
			detector.WithTrees(s.trees),
			detector.WithContamination(s.contamination),
			detector.WithSeed(s.seed),
		}
		if s.sampleSize > 0 {
			opts = append(opts, detector.WithSampleSize(s.sampleSize))
		}
		m, err := detector.Train(ctx, res.Normalized, opts...)
		if err != nil {
			return err
		}
		res.Model = m
		metrics.UpdateDecisionOffset(m.Offset())
		return nil
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, log, StagePredict, func() error {
		labels, scores, err := detector.Predict(res.Model, res.Normalized)
		if err != nil {
			return err
		}
		res.Labels, res.Scores = labels, scores
		metrics.UpdateAnomalies(res.Anomalies(), len(labels))
		metrics.RecordDecisionScores(scores)
		return nil
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, log, StageExplain, func() error {
		report, err := explain.Explain(res.Model, res.Normalized)
		if err != nil {
			return err
		}
		res.Report = report
		log.Info(ctx, report.Summary)
		for _, row := range report.Top(topAnomaliesLogged) {
			log.Debug(ctx, "top anomaly",
				logger.Int("row", row.Index),
				logger.Float64("score", row.Score),
				logger.String("dominant", row.Dominant),
				logger.String("verdict", row.Verdict))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.stage(ctx, log, StagePlot, func() error { return s.plot(res) })
}

func (s *Service) plot(res *Result) error {
	size := chart.WithSize(s.chartWidth, s.chartHeight)
	if s.scoreChart != "" {
		var marked []int
		for _, row := range res.Report.Anomalies() {
			marked = append(marked, row.Index)
		}
		if err := chart.Scores(s.scoreChart, res.Scores, size, chart.WithMarkers(marked)); err != nil {
			return err
		}
		res.Charts = append(res.Charts, s.scoreChart)
		metrics.RecordChartRendered("scores")
	}
	if s.telemetryChart != "" {
		// three stacked panels need more room than one line plot
		tall := chart.WithSize(s.chartWidth, 3*s.chartHeight)
		if err := chart.Telemetry(s.telemetryChart, res.Raw, tall); err != nil {
			return err
		}
		res.Charts = append(res.Charts, s.telemetryChart)
		metrics.RecordChartRendered("telemetry")
	}
	return nil
}

func (s *Service) stage(ctx context.Context, log logger.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordStageDuration(name, float64(elapsed.Nanoseconds())/nanosecondsPerMillisecond)
	if err != nil {
		metrics.RecordStageError(name)
		return fmt.Errorf("%w: %s: %w", ErrStage, name, err)
	}
	log.Debug(ctx, "stage finished", logger.String("stage", name), logger.Duration("elapsed", elapsed))
	return nil
}
