package telemetry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// Default generation parameters.
const (
	defaultRows            = 1000
	defaultSeed            = 42
	defaultOutlierFraction = 0.05

	cpuMean, cpuStdDev         = 50.0, 10.0
	cpuMin, cpuMax             = 0.0, 100.0
	errorsLambda               = 2.0
	latencyMean, latencyStdDev = 200.0, 30.0

	spikeCPUMin, spikeCPUMax             = 90.0, 100.0
	spikeErrorsLambda                    = 20.0
	spikeLatencyMean, spikeLatencyStdDev = 800.0, 100.0
)

// Generator produces synthetic telemetry tables.
type Generator struct {
	rows            int
	seed            int64
	outlierFraction float64
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRows sets the number of rows to generate.
func WithRows(n int) Option {
	return func(g *Generator) { g.rows = n }
}

// WithSeed sets the PRNG seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithOutlierFraction sets the share of rows overwritten with spikes.
func WithOutlierFraction(f float64) Option {
	return func(g *Generator) { g.outlierFraction = f }
}

// NewGenerator creates a generator with default parameters.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rows:            defaultRows,
		seed:            defaultSeed,
		outlierFraction: defaultOutlierFraction,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate is shorthand for NewGenerator(opts...).Generate(ctx).
func Generate(ctx context.Context, opts ...Option) (*Table, error) {
	return NewGenerator(opts...).Generate(ctx)
}

// Generate builds a table with the cpu, errors and latency columns.
// Baseline rows are Gaussian (cpu, latency) and Poisson (errors); a
// fraction of rows chosen without replacement are replaced by spikes.
func (g *Generator) Generate(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if g.rows <= 0 {
		return nil, fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidOptions, g.rows)
	}
	if g.outlierFraction < 0 || g.outlierFraction >= 1 || math.IsNaN(g.outlierFraction) {
		return nil, fmt.Errorf("%w: outlier fraction must be in [0, 1), got %g", ErrInvalidOptions, g.outlierFraction)
	}

	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // reproducible synthetic data
	width := len(Columns())
	data := make([]float64, g.rows*width)
	for i := 0; i < g.rows; i++ {
		row := data[i*width : (i+1)*width]
		row[0] = clamp(cpuMean+rng.NormFloat64()*cpuStdDev, cpuMin, cpuMax)
		row[1] = poisson(rng, errorsLambda)
		row[2] = math.Max(0, latencyMean+rng.NormFloat64()*latencyStdDev)
	}

	n := int(math.Round(g.outlierFraction * float64(g.rows)))
	outliers := rng.Perm(g.rows)[:n]
	slices.Sort(outliers)
	for _, i := range outliers {
		row := data[i*width : (i+1)*width]
		row[0] = spikeCPUMin + rng.Float64()*(spikeCPUMax-spikeCPUMin)
		row[1] = poisson(rng, spikeErrorsLambda)
		row[2] = math.Max(0, spikeLatencyMean+rng.NormFloat64()*spikeLatencyStdDev)
	}

	t, err := NewTable(Columns(), data)
	if err != nil {
		return nil, err
	}
	t.outliers = outliers
	return t, nil
}

// poisson draws a Poisson variate with Knuth's multiplication method.
// It is only used with small lambda.
func poisson(rng *rand.Rand, lambda float64) float64 {
	limit := math.Exp(-lambda)
	k := 0
	for p := rng.Float64(); p > limit; p *= rng.Float64() {
		k++
	}
	return float64(k)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
