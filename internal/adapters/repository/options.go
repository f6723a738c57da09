package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithSeed seeds node priorities, making tree shape reproducible.
func WithSeed(seed int64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}
