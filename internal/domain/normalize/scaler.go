// Package normalize standardizes telemetry columns to zero mean and unit variance.
package normalize

import (
	"fmt"
	"slices"

	"github.com/okian/anomaly/internal/domain/telemetry"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// zeroScale is the standard deviation below which a column counts as constant.
const zeroScale = 10 * 2.220446049250313e-16

// Scaler learns per-column mean and population standard deviation and
// rescales tables with them. Constant columns keep a scale of 1, so they
// are centered to zero instead of dividing by zero.
type Scaler struct {
	columns []string
	mean    []float64
	scale   []float64
	zeroVar []string
}

// NewScaler returns an unfitted scaler.
func NewScaler() *Scaler { return &Scaler{} }

// Normalize fits a fresh scaler on t and returns the transformed table.
func Normalize(t *telemetry.Table) (*telemetry.Table, error) {
	return NewScaler().FitTransform(t)
}

// Fit computes column statistics from t.
func (s *Scaler) Fit(t *telemetry.Table) error {
	if t == nil || t.Rows() == 0 {
		return ErrEmptyTable
	}
	width := t.Width()
	s.columns = t.Columns()
	s.mean = make([]float64, width)
	s.scale = make([]float64, width)
	s.zeroVar = nil
	for j := 0; j < width; j++ {
		mean, std := stat.PopMeanStdDev(t.ColumnAt(j), nil)
		s.mean[j] = mean
		if std < zeroScale {
			std = 1
			s.zeroVar = append(s.zeroVar, s.columns[j])
		}
		s.scale[j] = std
	}
	return nil
}

// Transform applies the fitted statistics to t.
func (s *Scaler) Transform(t *telemetry.Table) (*telemetry.Table, error) {
	if s.mean == nil {
		return nil, ErrNotFitted
	}
	if t == nil {
		return nil, ErrEmptyTable
	}
	if !slices.Equal(t.Columns(), s.columns) {
		return nil, fmt.Errorf("%w: fitted %v, got %v", ErrShapeMismatch, s.columns, t.Columns())
	}
	if t.Rows() == 0 {
		return telemetry.NewTable(s.columns, nil)
	}

	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, t.Matrix())
	return telemetry.FromDense(s.columns, &out)
}

// FitTransform fits on t and transforms it.
func (s *Scaler) FitTransform(t *telemetry.Table) (*telemetry.Table, error) {
	if err := s.Fit(t); err != nil {
		return nil, err
	}
	return s.Transform(t)
}

// Mean returns the fitted column means.
func (s *Scaler) Mean() []float64 { return slices.Clone(s.mean) }

// Scale returns the fitted column scales (1 for constant columns).
func (s *Scaler) Scale() []float64 { return slices.Clone(s.scale) }

// ZeroVarianceColumns names the columns that were constant during Fit.
func (s *Scaler) ZeroVarianceColumns() []string { return slices.Clone(s.zeroVar) }

// InverseTransform maps standardized values back to the original units.
func (s *Scaler) InverseTransform(t *telemetry.Table) (*telemetry.Table, error) {
	if s.mean == nil {
		return nil, ErrNotFitted
	}
	if t == nil || t.Rows() == 0 {
		return nil, ErrEmptyTable
	}
	if !slices.Equal(t.Columns(), s.columns) {
		return nil, fmt.Errorf("%w: fitted %v, got %v", ErrShapeMismatch, s.columns, t.Columns())
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return v*s.scale[j] + s.mean[j]
	}, t.Matrix())
	return telemetry.FromDense(s.columns, &out)
}
