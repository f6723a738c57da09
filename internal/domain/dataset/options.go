package dataset

import "github.com/okian/attrition/internal/domain/dedupe"

// Option configures Load.
type Option func(*loader)

// WithDeduper sets the deduper used to drop repeated EmployeeNumber rows.
func WithDeduper(d dedupe.Deduper) Option {
	return func(l *loader) {
		if d != nil {
			l.dedupe = d
		}
	}
}

// WithNullTokens replaces the cell values read as missing. Matching is
// case-insensitive; the empty cell is always missing.
func WithNullTokens(tokens ...string) Option {
	return func(l *loader) {
		l.nulls = make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			l.nulls[normalizeToken(t)] = struct{}{}
		}
	}
}

// WithRequireTrainable controls whether a load with no trainable rows fails.
// It is on by default.
func WithRequireTrainable(require bool) Option {
	return func(l *loader) {
		l.requireTrainable = require
	}
}
