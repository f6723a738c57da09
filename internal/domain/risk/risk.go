// Package risk maps risk scores to bands.
package risk

import (
	"math"

	"github.com/okian/attrition/internal/domain/model"
)

// Band lower bounds, inclusive.
const (
	HighThreshold   = 0.70
	MediumThreshold = 0.40
)

// Level returns the band of a score in [0,1].
func Level(score float64) model.Level {
	switch {
	case score >= HighThreshold:
		return model.LevelHigh
	case score >= MediumThreshold:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// Classify builds a RiskAssessment. Scores are clamped into [0,1] and NaN
// is read as 0.
func Classify(score float64, source model.Source) model.RiskAssessment {
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Max(0, math.Min(1, score))
	return model.RiskAssessment{
		Score:  score,
		Level:  Level(score),
		Source: source,
	}
}

// RecommendedAction is the retention guidance for a band.
func RecommendedAction(level model.Level) string {
	switch level {
	case model.LevelHigh:
		return "Immediate retention discussion; review compensation and workload"
	case model.LevelMedium:
		return "Schedule a career development check-in"
	default:
		return "Maintain regular engagement"
	}
}
