// Package scoring computes attrition risk from raw employee attributes using
// fixed bands weighted by feature importance. It needs no trained model.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/attrition/internal/domain/importance"
	"github.com/okian/attrition/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultMinScore = 0.05
	defaultMaxScore = 0.95
	// neutralScore is returned when no weighted feature can be scored.
	neutralScore = 0.5
)

// Option applies a configuration option to the RuleScorer.
type Option func(*RuleScorer)

// WithBounds sets the clamp applied to the final score.
func WithBounds(lo, hi float64) Option {
	return func(s *RuleScorer) {
		if lo >= 0 && hi <= 1 && lo < hi {
			s.minScore = lo
			s.maxScore = hi
		}
	}
}

// Scorer computes a risk score in [0,1] from raw input.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in model.RawEmployeeInput, weights importance.Set) (float64, error)
}

// Explainer breaks a score down into per-feature contributions.
type Explainer interface {
	Explain(in model.RawEmployeeInput, weights importance.Set) []Contribution
}

var (
	_ Scorer    = (*RuleScorer)(nil)
	_ Explainer = (*RuleScorer)(nil)
)

// RuleScorer implements Scorer with banded sub-scores per feature.
type RuleScorer struct {
	minScore float64
	maxScore float64
}

// NewRuleScorer creates a RuleScorer.
func NewRuleScorer(opts ...Option) *RuleScorer {
	s := &RuleScorer{
		minScore: defaultMinScore,
		maxScore: defaultMaxScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contribution is one feature's share of a rule score.
type Contribution struct {
	Feature      string  `json:"feature"`
	Weight       float64 `json:"weight"`
	SubScore     float64 `json:"sub_score"`
	Contribution float64 `json:"contribution"`
}

// Score returns the weighted mean of the sub-scores of every weighted
// feature that has a band and a value, clamped to the scorer bounds.
func (s *RuleScorer) Score(ctx context.Context, in model.RawEmployeeInput, weights importance.Set) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	if len(weights) == 0 {
		weights = importance.Default()
	}

	var sum, total float64
	for _, c := range s.Explain(in, weights) {
		sum += c.Contribution
		total += c.Weight
	}
	score := neutralScore
	if total > 0 {
		score = sum / total
	}
	return math.Max(s.minScore, math.Min(s.maxScore, score)), nil
}

// Explain lists the features that took part in the score.
func (s *RuleScorer) Explain(in model.RawEmployeeInput, weights importance.Set) []Contribution {
	out := make([]Contribution, 0, len(weights))
	for _, w := range weights {
		if w.Weight <= 0 {
			continue
		}
		sub, ok := SubScore(w.Feature, in)
		if !ok {
			continue
		}
		out = append(out, Contribution{
			Feature:      w.Feature,
			Weight:       w.Weight,
			SubScore:     sub,
			Contribution: sub * w.Weight,
		})
	}
	return out
}

// SubScore returns the banded risk of one feature. ok is false when the
// feature has no band or the input lacks a value for it.
func SubScore(feature string, in model.RawEmployeeInput) (float64, bool) {
	switch feature {
	case model.FieldMonthlyIncome:
		return band(in.MonthlyIncome, func(v float64) float64 {
			switch {
			case v < 4000:
				return 0.9
			case v < 6000:
				return 0.6
			case v < 8000:
				return 0.3
			default:
				return 0.1
			}
		})
	case model.FieldOverTime:
		if in.OverTime == nil {
			return 0, false
		}
		if model.IsYes(in.OverTime) {
			return 0.8, true
		}
		return 0.1, true
	case model.FieldAge:
		return band(in.Age, func(v float64) float64 {
			switch {
			case v < 28:
				return 0.8
			case v < 35:
				return 0.5
			case v < 45:
				return 0.3
			default:
				return 0.1
			}
		})
	case model.FieldJobSatisfaction:
		return band(in.JobSatisfaction, func(v float64) float64 {
			switch {
			case v <= 2:
				return 0.8
			case v == 3:
				return 0.4
			default:
				return 0.1
			}
		})
	case model.FieldYearsAtCompany:
		return band(in.YearsAtCompany, func(v float64) float64 {
			switch {
			case v < 2:
				return 0.7
			case v < 5:
				return 0.4
			default:
				return 0.2
			}
		})
	case model.FieldEnvironmentSatisfaction:
		return band(in.EnvironmentSatisfaction, func(v float64) float64 {
			if v <= 2 {
				return 0.6
			}
			return 0.2
		})
	case model.FieldWorkLifeBalance:
		return band(in.WorkLifeBalance, func(v float64) float64 {
			if v <= 2 {
				return 0.5
			}
			return 0.2
		})
	case model.FieldStockOptionLevel:
		return band(in.StockOptionLevel, func(v float64) float64 {
			switch v {
			case 0:
				return 0.6
			case 1:
				return 0.3
			default:
				return 0.1
			}
		})
	case model.FieldDepartment:
		if in.Department == nil {
			return 0, false
		}
		switch *in.Department {
		case "Sales":
			return 0.6, true
		case "Research & Development", "R&D":
			return 0.3, true
		default:
			return 0.1, true
		}
	case model.FieldDistanceFromHome:
		return band(in.DistanceFromHome, func(v float64) float64 {
			switch {
			case v > 15:
				return 0.4
			case v > 8:
				return 0.2
			default:
				return 0.1
			}
		})
	}
	return 0, false
}

func band(p *float64, fn func(float64) float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return fn(*p), true
}
