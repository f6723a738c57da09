package repository

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound     = errors.New("employee not ranked")
	ErrInvalidLimit = errors.New("invalid ranking limit")
	ErrInvalidEntry = errors.New("invalid ranking entry")
)
