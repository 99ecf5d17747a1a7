// Package detector fits an isolation forest on a numeric table and scores rows.
//
// Scores follow the convention of the reference Python pipeline: the
// decision score is the raw isolation score shifted so that the
// contamination quantile of the training rows sits at zero. Higher is more
// normal; rows below zero are labeled anomalous.
package detector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/okian/anomaly/internal/domain/telemetry"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Label is the per-row verdict.
type Label int

// Labels use the -1/1 encoding of the reference pipeline.
const (
	Anomalous Label = -1
	Normal    Label = 1
)

func (l Label) String() string {
	switch l {
	case Anomalous:
		return "anomalous"
	case Normal:
		return "normal"
	default:
		return "unknown"
	}
}

// Model is a fitted isolation forest. It is immutable after Train.
type Model struct {
	columns       []string
	trees         []*node
	sampleSize    int
	contamination float64
	offset        float64
}

// Train fits an isolation forest on t.
func Train(ctx context.Context, t *telemetry.Table, opts ...Option) (*Model, error) {
	cfg := newTrainer(opts)
	if cfg.trees <= 0 {
		return nil, fmt.Errorf("%w: trees must be positive, got %d", ErrInvalidOptions, cfg.trees)
	}
	if cfg.contamination <= 0 || cfg.contamination > maxContamination || math.IsNaN(cfg.contamination) {
		return nil, fmt.Errorf("%w: contamination must be in (0, %g], got %g", ErrInvalidOptions, maxContamination, cfg.contamination)
	}
	if t == nil || t.Rows() == 0 {
		return nil, ErrEmptyTable
	}

	rows := tableRows(t.Matrix())
	psi := min(cfg.sampleSize, len(rows))
	maxDepth := int(math.Ceil(math.Log2(float64(max(psi, 2)))))
	rng := rand.New(rand.NewSource(cfg.seed)) //nolint:gosec // reproducible model

	m := &Model{
		columns:       t.Columns(),
		trees:         make([]*node, 0, cfg.trees),
		sampleSize:    psi,
		contamination: cfg.contamination,
	}
	sample := make([][]float64, psi)
	for i := 0; i < cfg.trees; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("train interrupted after %d trees: %w", i, err)
		}
		for k, idx := range rng.Perm(len(rows))[:psi] {
			sample[k] = rows[idx]
		}
		m.trees = append(m.trees, build(rng, sample, 0, maxDepth))
	}

	raw := make([]float64, len(rows))
	for i, r := range rows {
		raw[i] = m.rawScore(r)
	}
	slices.Sort(raw)
	m.offset = stat.Quantile(cfg.contamination, stat.LinInterp, raw, nil)
	return m, nil
}

// Predict labels and scores every row of t, in row order.
func Predict(m *Model, t *telemetry.Table) ([]Label, []float64, error) {
	if m == nil || len(m.trees) == 0 {
		return nil, nil, ErrNotFitted
	}
	return m.Predict(t)
}

// Predict labels and scores every row of t, in row order.
func (m *Model) Predict(t *telemetry.Table) ([]Label, []float64, error) {
	scores, err := m.DecisionFunction(t)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]Label, len(scores))
	for i, s := range scores {
		labels[i] = m.label(s)
	}
	return labels, scores, nil
}

// DecisionFunction returns raw scores shifted by the fitted offset.
func (m *Model) DecisionFunction(t *telemetry.Table) ([]float64, error) {
	raw, err := m.ScoreSamples(t)
	if err != nil {
		return nil, err
	}
	for i := range raw {
		raw[i] -= m.offset
	}
	return raw, nil
}

// ScoreSamples returns -2^(-E[h(x)]/c(psi)) per row; lower is more abnormal.
func (m *Model) ScoreSamples(t *telemetry.Table) ([]float64, error) {
	if err := m.check(t); err != nil {
		return nil, err
	}
	rows := tableRows(t.Matrix())
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = m.rawScore(r)
	}
	return out, nil
}

// SplitCounts counts, per feature, the splits on x's path through every tree.
func (m *Model) SplitCounts(x []float64) ([]int, error) {
	if len(x) != len(m.columns) {
		return nil, fmt.Errorf("%w: row has %d values, model %d", ErrShapeMismatch, len(x), len(m.columns))
	}
	counts := make([]int, len(m.columns))
	for _, tr := range m.trees {
		walk(tr, x, func(f int) { counts[f]++ })
	}
	return counts, nil
}

// Columns returns the feature names the model was trained on.
func (m *Model) Columns() []string { return slices.Clone(m.columns) }

// Trees returns the number of fitted trees.
func (m *Model) Trees() int { return len(m.trees) }

// SampleSize returns the effective per-tree sub-sample size.
func (m *Model) SampleSize() int { return m.sampleSize }

// Contamination returns the configured anomaly fraction.
func (m *Model) Contamination() float64 { return m.contamination }

// Offset returns the raw-score threshold subtracted by DecisionFunction.
func (m *Model) Offset() float64 { return m.offset }

func (m *Model) label(decision float64) Label {
	if decision < 0 {
		return Anomalous
	}
	return Normal
}

func (m *Model) rawScore(x []float64) float64 {
	var total float64
	for _, tr := range m.trees {
		total += pathLength(tr, x)
	}
	mean := total / float64(len(m.trees))
	c := averagePathLength(m.sampleSize)
	if c == 0 {
		// a single-row sample cannot be split
		return -0.5
	}
	return -math.Pow(2, -mean/c)
}

func (m *Model) check(t *telemetry.Table) error {
	if len(m.trees) == 0 {
		return ErrNotFitted
	}
	if t == nil {
		return ErrEmptyTable
	}
	if !slices.Equal(t.Columns(), m.columns) {
		return fmt.Errorf("%w: trained on %v, got %v", ErrShapeMismatch, m.columns, t.Columns())
	}
	return nil
}

func tableRows(m mat.Matrix) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}
