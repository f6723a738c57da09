package classifier

import "fmt"

// Config controls network shape and optimization.
type Config struct {
	Epochs          int     `json:"epochs"`
	BatchSize       int     `json:"batch_size"`
	ValidationSplit float64 `json:"validation_split"`
	HiddenLayers    []int   `json:"hidden_layers"`
	LearningRate    float64 `json:"learning_rate"`
	Threshold       float64 `json:"threshold"`
	Seed            int64   `json:"seed"`
}

// Adam moment decay rates and numerical fuzz.
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// DefaultConfig returns the standard training setup.
func DefaultConfig() Config {
	return Config{
		Epochs:          50,
		BatchSize:       32,
		ValidationSplit: 0.2,
		HiddenLayers:    []int{64, 32, 16},
		LearningRate:    0.001,
		Threshold:       0.5,
		Seed:            42,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Epochs == 0 {
		c.Epochs = d.Epochs
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.HiddenLayers == nil {
		c.HiddenLayers = d.HiddenLayers
	}
	if c.LearningRate == 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.Epochs < 0:
		return fmt.Errorf("%w: epochs %d", ErrInvalidConfig, c.Epochs)
	case c.BatchSize < 0:
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	case c.ValidationSplit < 0 || c.ValidationSplit >= 1:
		return fmt.Errorf("%w: validation split %v", ErrInvalidConfig, c.ValidationSplit)
	case c.LearningRate < 0:
		return fmt.Errorf("%w: learning rate %v", ErrInvalidConfig, c.LearningRate)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("%w: threshold %v", ErrInvalidConfig, c.Threshold)
	}
	for _, w := range c.HiddenLayers {
		if w <= 0 {
			return fmt.Errorf("%w: hidden width %d", ErrInvalidConfig, w)
		}
	}
	return nil
}
