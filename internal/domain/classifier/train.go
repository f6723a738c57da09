package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/okian/attrition/internal/domain/encoding"
)

type trainer struct {
	cfg      Config
	progress func(Progress)
	params   *encoding.Params
}

// Train fits a feed-forward binary classifier on X with 0/1 labels y.
// The context is checked between epochs; a canceled run returns
// ErrTrainingCanceled and no model.
func Train(ctx context.Context, X []encoding.Vector, y []float64, cfg Config, opts ...TrainOption) (*Model, error) {
	t := &trainer{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.cfg.validate(); err != nil {
		return nil, trainingErr(0, err)
	}
	if err := checkInput(X, y); err != nil {
		return nil, trainingErr(0, err)
	}
	width := len(X[0])
	if t.params != nil && t.params.Width() != width {
		return nil, trainingErr(0, fmt.Errorf("%w: encoding width %d, vectors %d", ErrInvalidInput, t.params.Width(), width))
	}
	return t.run(ctx, X, y, width)
}

func checkInput(X []encoding.Vector, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrInvalidInput, len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("%w: zero-width vectors", ErrInvalidInput)
	}
	for i := range X {
		if len(X[i]) != width {
			return fmt.Errorf("%w: row %d has width %d, want %d", ErrInvalidInput, i, len(X[i]), width)
		}
		if y[i] != 0 && y[i] != 1 {
			return fmt.Errorf("%w: label %v at row %d", ErrInvalidInput, y[i], i)
		}
	}
	return nil
}

func (t *trainer) run(ctx context.Context, X []encoding.Vector, y []float64, width int) (*Model, error) {
	cfg := t.cfg
	rng := rand.New(rand.NewSource(cfg.Seed))

	order := rng.Perm(len(X))
	nVal := int(float64(len(X)) * cfg.ValidationSplit)
	if nVal >= len(X) {
		nVal = len(X) - 1
	}
	trainIdx := order[:len(order)-nVal]
	valIdx := order[len(order)-nVal:]

	batch := min(cfg.BatchSize, len(trainIdx))

	layers := buildLayers(width, cfg.HiddenLayers, rng)
	grads := zeroLike(layers)
	opt := newAdam(layers, cfg.LearningRate)
	ws := newWorkspace(layers)

	history := make([]Progress, 0, cfg.Epochs)
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTrainingCanceled, err)
		}

		rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })

		var loss float64
		var correct int
		for start := 0; start < len(trainIdx); start += batch {
			end := min(start+batch, len(trainIdx))
			resetLayers(grads)
			for _, idx := range trainIdx[start:end] {
				p := ws.predict(layers, X[idx])
				loss += bce(p, y[idx])
				if (p >= cfg.Threshold) == (y[idx] == 1) {
					correct++
				}
				ws.backward(layers, grads, y[idx])
			}
			opt.apply(layers, grads, end-start)
		}

		pr := Progress{
			Epoch:    epoch,
			Epochs:   cfg.Epochs,
			Loss:     loss / float64(len(trainIdx)),
			Accuracy: float64(correct) / float64(len(trainIdx)),
		}
		if math.IsNaN(pr.Loss) || math.IsInf(pr.Loss, 0) {
			return nil, trainingErr(epoch, ErrNonFiniteLoss)
		}
		if len(valIdx) > 0 {
			pr.HasValidation = true
			pr.ValLoss, pr.ValAccuracy = score(layers, ws, X, y, valIdx, cfg.Threshold)
		}
		history = append(history, pr)
		if t.progress != nil {
			t.progress(pr)
		}
	}

	return &Model{
		Layers:    layers,
		Threshold: cfg.Threshold,
		Params:    t.params,
		Config:    cfg,
		History:   history,
		TrainedAt: time.Now().UTC(),
		Samples:   len(X),
	}, nil
}

// score returns mean loss and accuracy over the given rows.
func score(layers []Layer, ws *workspace, X []encoding.Vector, y []float64, idx []int, threshold float64) (float64, float64) {
	var loss float64
	var correct int
	for _, i := range idx {
		p := ws.predict(layers, X[i])
		loss += bce(p, y[i])
		if (p >= threshold) == (y[i] == 1) {
			correct++
		}
	}
	n := float64(len(idx))
	return loss / n, float64(correct) / n
}
