// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config populated with defaults.
// - Load layers defaults, an optional YAML file and ATTRITION_ env vars.
// - Validate enforces the documented option ranges.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Epochs is the number of training passes over the data.
	Epochs int `koanf:"epochs"`

	// BatchSize is the mini-batch size used by the optimizer.
	BatchSize int `koanf:"batch_size"`

	// ValidationSplit is the fraction of rows held out for monitoring, in [0,1).
	ValidationSplit float64 `koanf:"validation_split"`

	// RiskThreshold turns a probability into the binary high-risk flag.
	RiskThreshold float64 `koanf:"risk_threshold"`

	// HiddenLayers lists hidden layer widths, widest first.
	HiddenLayers []int `koanf:"hidden_layers"`

	// LearningRate is the Adam step size.
	LearningRate float64 `koanf:"learning_rate"`

	// Seed drives weight init, shuffling and perturbation noise.
	Seed int64 `koanf:"seed"`

	// NoiseStd is the Gaussian noise std used by perturbation importance.
	NoiseStd float64 `koanf:"noise_std"`

	// WorkerCount sets the number of batch scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the batch scoring queue.
	QueueSize int `koanf:"queue_size"`

	// ModelDBPath is the SQLite file of the model registry. Empty disables persistence.
	ModelDBPath string `koanf:"model_db_path"`

	// PredictRatePerSec and PredictBurst limit POST /predict.
	PredictRatePerSec float64 `koanf:"predict_rate_per_sec"`
	PredictBurst      int     `koanf:"predict_burst"`

	// BreakerMaxFailures trips the inference breaker after that many consecutive failures.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures"`

	// BreakerTimeoutSec is how long the breaker stays open.
	BreakerTimeoutSec int `koanf:"breaker_timeout_sec"`

	// MaxRankingLimit caps GET /ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// MaxUploadBytes caps the dataset upload body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		Epochs:             50,
		BatchSize:          32,
		ValidationSplit:    0.2,
		RiskThreshold:      0.5,
		HiddenLayers:       []int{64, 32, 16},
		LearningRate:       0.001,
		Seed:               42,
		NoiseStd:           0.1,
		WorkerCount:        runtime.NumCPU(),
		QueueSize:          10_000,
		ModelDBPath:        "attrition.db",
		PredictRatePerSec:  50,
		PredictBurst:       100,
		BreakerMaxFailures: 3,
		BreakerTimeoutSec:  30,
		MaxRankingLimit:    500,
		MaxUploadBytes:     32 << 20,
	}
}

// Validate checks option ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Epochs <= 0:
		return fmt.Errorf("%w: epochs must be > 0", ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be > 0", ErrInvalidConfig)
	case c.ValidationSplit < 0 || c.ValidationSplit >= 1:
		return fmt.Errorf("%w: validation_split must be in [0,1)", ErrInvalidConfig)
	case c.RiskThreshold < 0 || c.RiskThreshold > 1:
		return fmt.Errorf("%w: risk_threshold must be in [0,1]", ErrInvalidConfig)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning_rate must be > 0", ErrInvalidConfig)
	case c.NoiseStd <= 0:
		return fmt.Errorf("%w: noise_std must be > 0", ErrInvalidConfig)
	}
	if len(c.HiddenLayers) == 0 {
		return fmt.Errorf("%w: hidden_layers must not be empty", ErrInvalidConfig)
	}
	for _, w := range c.HiddenLayers {
		if w <= 0 {
			return fmt.Errorf("%w: hidden layer width %d must be > 0", ErrInvalidConfig, w)
		}
	}
	return nil
}
