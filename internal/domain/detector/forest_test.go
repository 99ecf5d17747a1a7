package detector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/anomaly/internal/domain/detector"
	"github.com/okian/anomaly/internal/domain/normalize"
	"github.com/okian/anomaly/internal/domain/telemetry"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func normalized(t *testing.T, opts ...telemetry.Option) (*telemetry.Table, *telemetry.Table) {
	t.Helper()
	raw, err := telemetry.Generate(context.Background(), opts...)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	norm, err := normalize.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return raw, norm
}

func TestTrainPredict(t *testing.T) {
	raw, norm := normalized(t)

	Convey("Given a forest trained on normalized telemetry", t, func() {
		ctx := context.Background()
		model, err := detector.Train(ctx, norm)
		So(err, ShouldBeNil)
		So(model.Trees(), ShouldEqual, 100)
		So(model.SampleSize(), ShouldEqual, 256)
		So(model.Contamination(), ShouldEqual, 0.05)

		labels, scores, err := detector.Predict(model, norm)
		So(err, ShouldBeNil)

		Convey("Then one label and one score exist per row", func() {
			So(len(labels), ShouldEqual, 1000)
			So(len(scores), ShouldEqual, 1000)
		})

		Convey("Then the anomalous share is close to the contamination rate", func() {
			flagged := 0
			for i, l := range labels {
				if l == detector.Anomalous {
					flagged++
					So(scores[i], ShouldBeLessThan, 0)
				} else {
					So(scores[i], ShouldBeGreaterThanOrEqualTo, 0)
				}
			}
			So(float64(flagged)/1000, ShouldBeBetweenOrEqual, 0.04, 0.06)
		})

		Convey("Then injected spikes score below typical rows", func() {
			outliers := raw.OutlierRows()
			isOutlier := make(map[int]bool, len(outliers))
			for _, i := range outliers {
				isOutlier[i] = true
			}
			var spike, typical []float64
			caught := 0
			for i, s := range scores {
				if isOutlier[i] {
					spike = append(spike, s)
					if labels[i] == detector.Anomalous {
						caught++
					}
				} else {
					typical = append(typical, s)
				}
			}
			So(stat.Mean(spike, nil), ShouldBeLessThan, stat.Mean(typical, nil))
			So(caught, ShouldBeGreaterThanOrEqualTo, len(outliers)/2)
		})

		Convey("Then the decision score is the raw score minus the offset", func() {
			rawScores, err := model.ScoreSamples(norm)
			So(err, ShouldBeNil)
			floats.AddConst(-model.Offset(), rawScores)
			So(floats.EqualApprox(rawScores, scores, 1e-12), ShouldBeTrue)
			So(floats.Max(rawScores), ShouldBeLessThan, -model.Offset())
		})

		Convey("Then training with the same seed is reproducible", func() {
			again, err := detector.Train(ctx, norm)
			So(err, ShouldBeNil)
			_, scores2, err := again.Predict(norm)
			So(err, ShouldBeNil)
			So(scores2, ShouldResemble, scores)
		})

		Convey("Then split counts cover every feature vector", func() {
			counts, err := model.SplitCounts(norm.Row(0))
			So(err, ShouldBeNil)
			So(len(counts), ShouldEqual, 3)
			total := 0
			for _, c := range counts {
				total += c
			}
			So(total, ShouldBeGreaterThan, 0)
		})
	})
}

func TestFarPoint(t *testing.T) {
	Convey("Given a small cluster", t, func() {
		train, err := telemetry.NewTable([]string{"x", "y"}, []float64{
			1.0, 2.0,
			1.1, 2.1,
			0.9, 1.9,
			1.2, 2.2,
			0.8, 1.8,
			1.0, 2.0,
			1.1, 2.0,
			0.9, 2.1,
		})
		So(err, ShouldBeNil)
		model, err := detector.Train(context.Background(), train, detector.WithTrees(50), detector.WithSeed(3))
		So(err, ShouldBeNil)

		Convey("When scoring a point far outside the cluster", func() {
			probe, _ := telemetry.NewTable([]string{"x", "y"}, []float64{
				1.0, 2.0,
				10.0, 20.0,
			})
			_, scores, err := model.Predict(probe)
			So(err, ShouldBeNil)

			Convey("Then it scores lower than the cluster center", func() {
				So(scores[1], ShouldBeLessThan, scores[0])
			})
		})
	})
}

func TestDegenerateTables(t *testing.T) {
	Convey("Given tables that cannot be split", t, func() {
		ctx := context.Background()

		Convey("When every row is identical", func() {
			same, _ := telemetry.NewTable([]string{"a", "b"}, []float64{1, 1, 1, 1, 1, 1, 1, 1})
			model, err := detector.Train(ctx, same)
			So(err, ShouldBeNil)
			labels, scores, err := model.Predict(same)

			Convey("Then every row is normal with a zero decision score", func() {
				So(err, ShouldBeNil)
				for i := range labels {
					So(labels[i], ShouldEqual, detector.Normal)
					So(scores[i], ShouldAlmostEqual, 0, 1e-12)
				}
			})
		})

		Convey("When the table has a single row", func() {
			one, _ := telemetry.NewTable([]string{"a"}, []float64{5})
			model, err := detector.Train(ctx, one)
			So(err, ShouldBeNil)
			So(model.SampleSize(), ShouldEqual, 1)

			labels, scores, err := model.Predict(one)
			So(err, ShouldBeNil)
			So(labels, ShouldResemble, []detector.Label{detector.Normal})
			So(scores[0], ShouldEqual, 0)
		})
	})
}

func TestTrainErrors(t *testing.T) {
	_, norm := normalized(t, telemetry.WithRows(100))

	Convey("Given invalid training inputs", t, func() {
		ctx := context.Background()

		Convey("When the table is empty", func() {
			empty, _ := telemetry.NewTable(telemetry.Columns(), nil)
			_, err := detector.Train(ctx, empty)
			So(errors.Is(err, detector.ErrEmptyTable), ShouldBeTrue)
		})

		Convey("When contamination is out of range", func() {
			for _, c := range []float64{0, -0.1, 0.51} {
				_, err := detector.Train(ctx, norm, detector.WithContamination(c))
				So(errors.Is(err, detector.ErrInvalidOptions), ShouldBeTrue)
			}
		})

		Convey("When trees are not positive", func() {
			_, err := detector.Train(ctx, norm, detector.WithTrees(0))
			So(errors.Is(err, detector.ErrInvalidOptions), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := detector.Train(cctx, norm)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When predicting without a model", func() {
			_, _, err := detector.Predict(nil, norm)
			So(errors.Is(err, detector.ErrNotFitted), ShouldBeTrue)
		})

		Convey("When predicting a table with other columns", func() {
			model, err := detector.Train(ctx, norm, detector.WithTrees(5))
			So(err, ShouldBeNil)
			other, _ := telemetry.NewTable([]string{"cpu", "errors"}, []float64{1, 2})
			_, _, err = model.Predict(other)
			So(errors.Is(err, detector.ErrShapeMismatch), ShouldBeTrue)

			_, err = model.SplitCounts([]float64{1})
			So(errors.Is(err, detector.ErrShapeMismatch), ShouldBeTrue)
		})
	})
}

func TestLabelString(t *testing.T) {
	Convey("Given labels", t, func() {
		So(detector.Anomalous.String(), ShouldEqual, "anomalous")
		So(detector.Normal.String(), ShouldEqual, "normal")
		So(detector.Label(0).String(), ShouldEqual, "unknown")
	})
}
