package encoding

import (
	"errors"
	"fmt"
)

// ErrEncoding is the kind shared by every encoder failure.
var ErrEncoding = errors.New("encoding error")

var (
	// ErrInsufficientData is returned when fitting on an empty record set.
	ErrInsufficientData = fmt.Errorf("%w: insufficient data", ErrEncoding)
	// ErrShapeMismatch is returned when a vector width differs from the fitted layout.
	ErrShapeMismatch = fmt.Errorf("%w: feature vector shape mismatch", ErrEncoding)
	// ErrNotFitted is returned when transforming with empty parameters.
	ErrNotFitted = fmt.Errorf("%w: parameters not fitted", ErrEncoding)
)
