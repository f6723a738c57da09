package dataset

import "errors"

// ErrDataLoad is returned when a dataset cannot be used at all: unreadable
// input, missing required columns, or no trainable rows.
var ErrDataLoad = errors.New("data load failed")
