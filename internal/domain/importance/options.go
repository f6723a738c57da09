package importance

import "github.com/okian/attrition/internal/domain/encoding"

// Option configures an Estimator.
type Option func(*Estimator)

// WithNoiseStd sets the std of the Gaussian noise added to each column.
func WithNoiseStd(std float64) Option {
	return func(e *Estimator) {
		if std > 0 {
			e.noiseStd = std
		}
	}
}

// WithSeed seeds the noise generator.
func WithSeed(seed int64) Option {
	return func(e *Estimator) {
		e.seed = seed
	}
}

// WithParams names columns by their raw feature so one-hot blocks are
// reported as a single feature.
func WithParams(p *encoding.Params) Option {
	return func(e *Estimator) {
		if p != nil {
			e.source = p.SourceFeature
		}
	}
}

// WithMaxRows caps the number of rows perturbed per column.
func WithMaxRows(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.maxRows = n
		}
	}
}
