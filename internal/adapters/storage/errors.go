package storage

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound = errors.New("model version not found")
	ErrInvalid  = errors.New("invalid model payload")
)
