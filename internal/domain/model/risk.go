package model

// Level is a risk band.
type Level string

// Risk bands, lowest first.
const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Rank orders levels: LOW < MEDIUM < HIGH.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	default:
		return -1
	}
}

// Source records which scorer produced a risk score.
type Source string

// Score sources.
const (
	SourceModel Source = "MODEL"
	SourceRule  Source = "RULE"
)

// RiskAssessment is the result of a single prediction. It is created per
// request and never persisted.
type RiskAssessment struct {
	Score  float64 `json:"score"`
	Level  Level   `json:"level"`
	Source Source  `json:"source"`
	// Flagged is the binary high-risk flag from the configured threshold,
	// independent of Level.
	Flagged bool `json:"flagged"`
	// FallbackReason says why the rule scorer answered instead of the model.
	FallbackReason string `json:"fallback_reason,omitempty"`
}
