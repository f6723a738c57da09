package importance

import "errors"

var (
	ErrEstimation = errors.New("importance estimation failed")
	ErrNoSignal   = errors.New("perturbation produced no output change")
	ErrEmptyInput = errors.New("no rows to perturb")
)
