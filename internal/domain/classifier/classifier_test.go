package classifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/encoding"
	"github.com/okian/attrition/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// separable builds n rows whose label is the sign of the first column.
func separable(n int, seed int64) ([]encoding.Vector, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([]encoding.Vector, n)
	y := make([]float64, n)
	for i := range X {
		x0 := rng.Float64()*2 - 1
		if x0 > -0.05 && x0 < 0.05 {
			x0 += 0.2
		}
		X[i] = encoding.Vector{x0, rng.Float64()*2 - 1}
		if x0 > 0 {
			y[i] = 1
		}
	}
	return X, y
}

func smallConfig() classifier.Config {
	cfg := classifier.DefaultConfig()
	cfg.Epochs = 40
	cfg.BatchSize = 16
	cfg.HiddenLayers = []int{8, 4}
	cfg.LearningRate = 0.05
	return cfg
}

func TestTrain(t *testing.T) {
	ctx := context.Background()
	X, y := separable(200, 7)

	Convey("Given a separable training set", t, func() {
		var seen []classifier.Progress
		m, err := classifier.Train(ctx, X, y, smallConfig(), classifier.WithProgress(func(p classifier.Progress) {
			seen = append(seen, p)
		}))
		So(err, ShouldBeNil)

		Convey("Then progress is reported once per epoch", func() {
			So(len(seen), ShouldEqual, 40)
			So(seen[0].Epoch, ShouldEqual, 1)
			So(seen[39].Epochs, ShouldEqual, 40)
			So(seen[39].HasValidation, ShouldBeTrue)
			So(len(m.History), ShouldEqual, 40)
		})

		Convey("Then the loss decreases", func() {
			So(seen[39].Loss, ShouldBeLessThan, seen[0].Loss)
		})

		Convey("Then the model separates the classes", func() {
			ev, err := m.Evaluate(X, y)
			So(err, ShouldBeNil)
			So(ev.Samples, ShouldEqual, 200)
			So(ev.Accuracy, ShouldBeGreaterThan, 0.85)
			So(ev.TruePositives+ev.FalsePositives+ev.TrueNegatives+ev.FalseNegatives, ShouldEqual, 200)
			So(ev.F1, ShouldBeGreaterThan, 0)
		})

		Convey("Then probabilities stay in [0,1]", func() {
			probs, err := m.Predict(X)
			So(err, ShouldBeNil)
			for _, p := range probs {
				So(p, ShouldBeBetweenOrEqual, 0, 1)
			}
		})

		Convey("Then the flag follows the threshold", func() {
			So(m.Flag(0.5), ShouldBeTrue)
			So(m.Flag(0.49), ShouldBeFalse)
		})

		Convey("Then training with the same seed is reproducible", func() {
			again, err := classifier.Train(ctx, X, y, smallConfig())
			So(err, ShouldBeNil)
			So(again.Layers, ShouldResemble, m.Layers)
		})

		Convey("When the model round-trips through JSON", func() {
			data, err := json.Marshal(m)
			So(err, ShouldBeNil)
			var back classifier.Model
			So(json.Unmarshal(data, &back), ShouldBeNil)

			Convey("Then it predicts identically", func() {
				a, _ := m.PredictOne(X[3])
				b, err := back.PredictOne(X[3])
				So(err, ShouldBeNil)
				So(b, ShouldEqual, a)
			})
		})
	})

	Convey("Given an empty training set", t, func() {
		_, err := classifier.Train(ctx, nil, nil, smallConfig())

		Convey("Then a TrainingError is returned", func() {
			var te *classifier.TrainingError
			So(errors.As(err, &te), ShouldBeTrue)
			So(errors.Is(err, classifier.ErrTraining), ShouldBeTrue)
			So(errors.Is(err, classifier.ErrEmptyTrainingSet), ShouldBeTrue)
		})
	})

	Convey("Given malformed input", t, func() {
		Convey("When labels and rows differ in count", func() {
			_, err := classifier.Train(ctx, X, y[:10], smallConfig())
			So(errors.Is(err, classifier.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When rows are ragged", func() {
			_, err := classifier.Train(ctx, []encoding.Vector{{1, 2}, {1}}, []float64{0, 1}, smallConfig())
			So(errors.Is(err, classifier.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When a label is not 0 or 1", func() {
			_, err := classifier.Train(ctx, []encoding.Vector{{1}, {2}}, []float64{0, 2}, smallConfig())
			So(errors.Is(err, classifier.ErrTraining), ShouldBeTrue)
		})

		Convey("When the config is out of range", func() {
			cfg := smallConfig()
			cfg.ValidationSplit = 1.5
			_, err := classifier.Train(ctx, X, y, cfg)
			So(errors.Is(err, classifier.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the attached encoding has another width", func() {
			params, err := encoding.Fit([]model.EmployeeRecord{{Age: model.Float(30)}})
			So(err, ShouldBeNil)
			_, err = classifier.Train(ctx, X, y, smallConfig(), classifier.WithEncoding(params))
			So(errors.Is(err, classifier.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given a canceled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)

		Convey("When canceled before the first epoch", func() {
			cancel()
			m, err := classifier.Train(cctx, X, y, smallConfig())
			So(m, ShouldBeNil)
			So(errors.Is(err, classifier.ErrTrainingCanceled), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When canceled from the progress callback", func() {
			epochs := 0
			m, err := classifier.Train(cctx, X, y, smallConfig(), classifier.WithProgress(func(p classifier.Progress) {
				epochs++
				if p.Epoch == 2 {
					cancel()
				}
			}))
			So(m, ShouldBeNil)
			So(errors.Is(err, classifier.ErrTrainingCanceled), ShouldBeTrue)
			So(epochs, ShouldEqual, 2)
		})

		Reset(cancel)
	})

	Convey("Given a single row", t, func() {
		m, err := classifier.Train(ctx, []encoding.Vector{{0.5, 1}}, []float64{1}, smallConfig())

		Convey("Then training runs without a validation split", func() {
			So(err, ShouldBeNil)
			final, ok := m.Final()
			So(ok, ShouldBeTrue)
			So(final.HasValidation, ShouldBeFalse)
		})
	})
}

func TestPredict(t *testing.T) {
	X, y := separable(40, 3)
	cfg := smallConfig()
	cfg.Epochs = 2
	m, err := classifier.Train(context.Background(), X, y, cfg)

	Convey("Given a trained model", t, func() {
		So(err, ShouldBeNil)

		Convey("When a vector has the wrong width", func() {
			_, err := m.PredictOne(encoding.Vector{1, 2, 3})

			Convey("Then a shape error is returned", func() {
				So(errors.Is(err, classifier.ErrShape), ShouldBeTrue)
			})
		})

		Convey("When the model has no encoding parameters", func() {
			_, err := m.PredictRecord(model.EmployeeRecord{})

			Convey("Then a prediction error is returned", func() {
				So(errors.Is(err, classifier.ErrPrediction), ShouldBeTrue)
			})
		})

		Convey("When evaluating with mismatched labels", func() {
			_, err := m.Evaluate(X, y[:1])
			So(err, ShouldNotBeNil)
		})

		Convey("When cloned", func() {
			c := m.Clone()
			c.Layers[0].W[0] = 42

			Convey("Then the original is untouched", func() {
				So(m.Layers[0].W[0], ShouldNotEqual, 42)
			})
		})
	})

	Convey("Given a nil model", t, func() {
		var nilModel *classifier.Model
		_, err := nilModel.Predict([]encoding.Vector{{1}})

		Convey("Then prediction fails", func() {
			So(errors.Is(err, classifier.ErrPrediction), ShouldBeTrue)
			So(nilModel.Width(), ShouldEqual, 0)
		})
	})
}

func TestPredictRecord(t *testing.T) {
	recs := []model.EmployeeRecord{
		{Age: model.Float(25), MonthlyIncome: model.Float(3000), OverTime: model.Str("Yes"), Attrition: model.Bool(true)},
		{Age: model.Float(45), MonthlyIncome: model.Float(9000), OverTime: model.Str("No"), Attrition: model.Bool(false)},
		{Age: model.Float(30), MonthlyIncome: model.Float(5000), OverTime: model.Str("No"), Attrition: model.Bool(false)},
	}

	Convey("Given a model trained with encoding parameters", t, func() {
		params, err := encoding.Fit(recs)
		So(err, ShouldBeNil)
		X, err := params.TransformAll(recs)
		So(err, ShouldBeNil)
		cfg := smallConfig()
		cfg.Epochs = 5
		m, err := classifier.Train(context.Background(), X, []float64{1, 0, 0}, cfg, classifier.WithEncoding(params))
		So(err, ShouldBeNil)

		Convey("Then raw records can be scored directly", func() {
			p, err := m.PredictRecord(recs[0])
			So(err, ShouldBeNil)
			So(p, ShouldBeBetweenOrEqual, 0, 1)
			So(m.Width(), ShouldEqual, params.Width())
		})
	})
}
