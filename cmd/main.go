package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/anomaly/internal/app"
	"github.com/okian/anomaly/internal/config"
	"github.com/okian/anomaly/pkg/logger"
	"github.com/okian/anomaly/pkg/metrics"
	"gonum.org/v1/plot/vg"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("pipeline failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run initializes logging from cfg, executes one pipeline run and exports
// metrics when a textfile path is configured.
func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(serviceOptions(cfg, log)...)
	res, err := svc.Run(ctx)

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Error(ctx, "metrics export failed", logger.String("path", cfg.MetricsFile), logger.Error(werr))
			if err == nil {
				err = werr
			}
		}
	}
	if err != nil {
		return err
	}

	log.Info(ctx, "anomalies detected",
		logger.String("run_id", res.RunID),
		logger.Int("anomalies", res.Anomalies()),
		logger.Int("rows", len(res.Labels)))
	return nil
}

func serviceOptions(cfg *config.Config, log logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(log),
		app.WithRows(cfg.Rows),
		app.WithSeed(cfg.Seed),
		app.WithOutlierFraction(cfg.OutlierFraction),
		app.WithTrees(cfg.Trees),
		app.WithSampleSize(cfg.SampleSize),
		app.WithContamination(cfg.Contamination),
		app.WithScoreChart(cfg.ScoreChart),
		app.WithTelemetryChart(cfg.TelemetryChart),
		app.WithChartSize(vg.Length(cfg.ChartWidth)*vg.Centimeter, vg.Length(cfg.ChartHeight)*vg.Centimeter),
	}
}
