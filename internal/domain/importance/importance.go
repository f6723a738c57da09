// Package importance estimates how much each raw feature drives the
// classifier output, and holds the weights the rule scorer falls back on.
package importance

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/okian/attrition/internal/domain/encoding"
	"github.com/okian/attrition/internal/domain/model"
)

// Weight is the share of one raw feature.
type Weight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Set is an ordered list of weights, highest first, summing to 1.
type Set []Weight

// defaultWeights is the table used before any model is trained. It is
// normalized by Default.
var defaultWeights = Set{
	{model.FieldMonthlyIncome, 0.21},
	{model.FieldOverTime, 0.19},
	{model.FieldAge, 0.18},
	{model.FieldJobSatisfaction, 0.15},
	{model.FieldYearsAtCompany, 0.12},
	{model.FieldEnvironmentSatisfaction, 0.09},
	{model.FieldWorkLifeBalance, 0.08},
	{model.FieldStockOptionLevel, 0.07},
	{model.FieldDepartment, 0.06},
	{model.FieldDistanceFromHome, 0.05},
}

// Default returns the pre-training importance set.
func Default() Set { return Normalize(defaultWeights) }

// Normalize returns a sorted copy of s scaled to sum to 1. Negative and
// non-finite weights count as 0; an all-zero set becomes uniform.
func Normalize(s Set) Set {
	out := make(Set, len(s))
	var total float64
	for i, w := range s {
		if w.Weight < 0 || math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			w.Weight = 0
		}
		out[i] = w
		total += w.Weight
	}
	for i := range out {
		if total > 0 {
			out[i].Weight /= total
		} else {
			out[i].Weight = 1 / float64(len(out))
		}
	}
	sortSet(out)
	return out
}

func sortSet(s Set) {
	slices.SortStableFunc(s, func(a, b Weight) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Feature, b.Feature)
	})
}

// Sum returns the total weight.
func (s Set) Sum() float64 {
	var t float64
	for _, w := range s {
		t += w.Weight
	}
	return t
}

// Get returns the weight of feature.
func (s Set) Get(feature string) (float64, bool) {
	for _, w := range s {
		if w.Feature == feature {
			return w.Weight, true
		}
	}
	return 0, false
}

// Top returns the first n entries.
func (s Set) Top(n int) Set {
	if n < 0 || n > len(s) {
		n = len(s)
	}
	return slices.Clone(s[:n])
}

// Predictor is the part of a classifier the estimator needs.
type Predictor interface {
	Predict(X []encoding.Vector) ([]float64, error)
}

// Estimator computes perturbation importance.
type Estimator struct {
	noiseStd float64
	seed     int64
	maxRows  int
	source   func(col int) string
}

// NewEstimator creates an Estimator.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{noiseStd: 0.1, seed: 42, maxRows: 1000}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate adds Gaussian noise to one column at a time and measures the
// mean absolute change in output. Columns are summed into their raw feature.
func (e *Estimator) Estimate(ctx context.Context, p Predictor, X []encoding.Vector) (Set, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEstimation, ErrEmptyInput)
	}
	if len(X) > e.maxRows {
		X = X[:e.maxRows]
	}
	base, err := p.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("%w: baseline: %w", ErrEstimation, err)
	}

	rng := rand.New(rand.NewSource(e.seed))
	width := len(X[0])
	perturbed := make([]encoding.Vector, len(X))
	for i, x := range X {
		perturbed[i] = slices.Clone(x)
	}

	byFeature := make(map[string]float64)
	var order []string
	for col := 0; col < width; col++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEstimation, err)
		}
		for i := range perturbed {
			perturbed[i][col] = X[i][col] + rng.NormFloat64()*e.noiseStd
		}
		out, err := p.Predict(perturbed)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %w", ErrEstimation, col, err)
		}
		for i := range perturbed {
			perturbed[i][col] = X[i][col]
		}

		var delta float64
		for i := range out {
			delta += math.Abs(out[i] - base[i])
		}
		name := e.name(col)
		if _, ok := byFeature[name]; !ok {
			order = append(order, name)
		}
		byFeature[name] += delta / float64(len(out))
	}

	set := make(Set, 0, len(order))
	var total float64
	for _, name := range order {
		set = append(set, Weight{Feature: name, Weight: byFeature[name]})
		total += byFeature[name]
	}
	if total <= 0 || math.IsNaN(total) {
		return nil, fmt.Errorf("%w: %w", ErrEstimation, ErrNoSignal)
	}
	return Normalize(set), nil
}

func (e *Estimator) name(col int) string {
	if e.source != nil {
		if n := e.source(col); n != "" {
			return n
		}
	}
	return fmt.Sprintf("f%d", col)
}

// EstimateOrFallback never returns an empty set: on failure it returns last,
// or Default when last is empty.
func (e *Estimator) EstimateOrFallback(ctx context.Context, p Predictor, X []encoding.Vector, last Set) (Set, error) {
	set, err := e.Estimate(ctx, p, X)
	if err == nil {
		return set, nil
	}
	if len(last) > 0 {
		return slices.Clone(last), err
	}
	return Default(), err
}
