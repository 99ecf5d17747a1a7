// Package explain attributes isolation forest verdicts to input features.
//
// A row's attribution is the share of splits each feature made along the
// row's paths through the forest. Features that split often on the way to
// an early leaf are the ones that isolated the row.
package explain

import (
	"fmt"
	"sort"

	"github.com/okian/anomaly/internal/domain/detector"
	"github.com/okian/anomaly/internal/domain/telemetry"
	"gonum.org/v1/gonum/floats"
)

// Decision score bands used for verdicts.
const (
	strongBelow     = -0.05
	borderlineBelow = 0.02
)

// Row explains the verdict for one table row.
type Row struct {
	Index    int
	Label    detector.Label
	Score    float64
	Shares   map[string]float64
	Dominant string
	Verdict  string
}

// Report is the explanation of a whole table.
type Report struct {
	Summary string
	Rows    []Row
}

// Explain scores t with m and attributes each row.
func Explain(m *detector.Model, t *telemetry.Table) (Report, error) {
	labels, scores, err := detector.Predict(m, t)
	if err != nil {
		return Report{}, fmt.Errorf("explain: %w", err)
	}

	columns := t.Columns()
	rows := make([]Row, len(scores))
	for i := range rows {
		counts, err := m.SplitCounts(t.Row(i))
		if err != nil {
			return Report{}, fmt.Errorf("explain row %d: %w", i, err)
		}
		shares := make([]float64, len(counts))
		for j, c := range counts {
			shares[j] = float64(c)
		}
		if total := floats.Sum(shares); total > 0 {
			floats.Scale(1/total, shares)
		}

		named := make(map[string]float64, len(columns))
		for j, c := range columns {
			named[c] = shares[j]
		}
		rows[i] = Row{
			Index:    i,
			Label:    labels[i],
			Score:    scores[i],
			Shares:   named,
			Dominant: columns[floats.MaxIdx(shares)],
			Verdict:  verdict(scores[i]),
		}
	}

	return Report{
		Summary: fmt.Sprintf("Explaining %d rows", len(rows)),
		Rows:    rows,
	}, nil
}

// Top returns up to k rows with the lowest decision scores, most anomalous first.
func (r Report) Top(k int) []Row {
	if k <= 0 {
		return nil
	}
	sorted := make([]Row, len(r.Rows))
	copy(sorted, r.Rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score < sorted[j].Score
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// Anomalies returns the rows labeled anomalous, in row order.
func (r Report) Anomalies() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Label == detector.Anomalous {
			out = append(out, row)
		}
	}
	return out
}

func verdict(score float64) string {
	switch {
	case score < strongBelow:
		return "Strong anomaly - significantly different from normal patterns"
	case score < 0:
		return "Likely anomaly - deviates from normal behavior"
	case score < borderlineBelow:
		return "Borderline - slightly unusual but within normal variation"
	default:
		return "Normal - consistent with expected patterns"
	}
}
