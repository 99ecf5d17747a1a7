package normalize_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/anomaly/internal/domain/normalize"
	"github.com/okian/anomaly/internal/domain/telemetry"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/stat"
)

const tolerance = 1e-9

func TestNormalize(t *testing.T) {
	Convey("Given a generated telemetry table", t, func() {
		raw, err := telemetry.Generate(context.Background())
		So(err, ShouldBeNil)

		Convey("When it is normalized", func() {
			scaler := normalize.NewScaler()
			out, err := scaler.FitTransform(raw)
			So(err, ShouldBeNil)

			Convey("Then the shape is unchanged", func() {
				So(out.Rows(), ShouldEqual, raw.Rows())
				So(out.Columns(), ShouldResemble, raw.Columns())
			})

			Convey("Then every column has zero mean and unit population variance", func() {
				for j := 0; j < out.Width(); j++ {
					mean, variance := stat.PopMeanVariance(out.ColumnAt(j), nil)
					So(mean, ShouldAlmostEqual, 0, tolerance)
					So(variance, ShouldAlmostEqual, 1, tolerance)
				}
				So(scaler.ZeroVarianceColumns(), ShouldBeEmpty)
			})

			Convey("Then the inverse transform restores the input", func() {
				back, err := scaler.InverseTransform(out)
				So(err, ShouldBeNil)
				for _, i := range []int{0, 499, 999} {
					for j, v := range back.Row(i) {
						So(v, ShouldAlmostEqual, raw.At(i, j), 1e-6)
					}
				}
			})
		})

		Convey("When the package helper is used", func() {
			out, err := normalize.Normalize(raw)
			So(err, ShouldBeNil)
			So(out.Rows(), ShouldEqual, 1000)
		})
	})
}

func TestNormalizeZeroVariance(t *testing.T) {
	Convey("Given a table with a constant column", t, func() {
		tbl, err := telemetry.NewTable(telemetry.Columns(), []float64{
			10, 3, 100,
			20, 3, 120,
			30, 3, 140,
		})
		So(err, ShouldBeNil)

		Convey("When it is normalized", func() {
			scaler := normalize.NewScaler()
			out, err := scaler.FitTransform(tbl)

			Convey("Then the constant column is centered and reported", func() {
				So(err, ShouldBeNil)
				So(out.ColumnAt(1), ShouldResemble, []float64{0, 0, 0})
				So(scaler.Scale()[1], ShouldEqual, 1)
				So(scaler.ZeroVarianceColumns(), ShouldResemble, []string{"errors"})
			})

			Convey("And the other columns are standardized", func() {
				cpu := out.ColumnAt(0)
				So(cpu[0], ShouldAlmostEqual, -1.224744871391589, tolerance)
				So(cpu[1], ShouldAlmostEqual, 0, tolerance)
				So(cpu[2], ShouldAlmostEqual, 1.224744871391589, tolerance)
			})
		})
	})
}

func TestNormalizeErrors(t *testing.T) {
	Convey("Given invalid scaler inputs", t, func() {
		empty, err := telemetry.NewTable(telemetry.Columns(), nil)
		So(err, ShouldBeNil)

		Convey("When fitting an empty table", func() {
			_, err := normalize.Normalize(empty)
			So(errors.Is(err, normalize.ErrEmptyTable), ShouldBeTrue)
		})

		Convey("When transforming before fitting", func() {
			_, err := normalize.NewScaler().Transform(empty)
			So(errors.Is(err, normalize.ErrNotFitted), ShouldBeTrue)
		})

		Convey("When columns differ from the fitted ones", func() {
			fit, _ := telemetry.NewTable([]string{"a", "b"}, []float64{1, 2, 3, 4})
			other, _ := telemetry.NewTable([]string{"a", "c"}, []float64{1, 2, 3, 4})
			scaler := normalize.NewScaler()
			So(scaler.Fit(fit), ShouldBeNil)

			_, err := scaler.Transform(other)
			So(errors.Is(err, normalize.ErrShapeMismatch), ShouldBeTrue)
		})
	})
}
