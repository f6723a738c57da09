package classifier

import (
	"errors"
	"fmt"
)

// ErrTraining is the kind shared by every training failure.
var ErrTraining = errors.New("training error")

var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrNonFiniteLoss    = errors.New("non-finite loss")
	ErrInvalidInput     = errors.New("invalid training input")
	ErrInvalidConfig    = errors.New("invalid classifier config")

	// ErrTrainingCanceled is returned when the context ends between epochs.
	ErrTrainingCanceled = fmt.Errorf("%w: canceled", ErrTraining)
)

var (
	// ErrShape is returned by Predict for vectors of the wrong width.
	ErrShape = errors.New("feature vector width mismatch")
	// ErrPrediction covers any other inference failure.
	ErrPrediction = errors.New("prediction failed")
)

// TrainingError aborts a training run. errors.Is(err, ErrTraining) holds for
// every TrainingError; Unwrap returns the cause.
type TrainingError struct {
	Epoch int
	Cause error
}

func (e *TrainingError) Error() string {
	if e.Epoch > 0 {
		return fmt.Sprintf("training error at epoch %d: %v", e.Epoch, e.Cause)
	}
	return fmt.Sprintf("training error: %v", e.Cause)
}

func (e *TrainingError) Unwrap() error { return e.Cause }

// Is reports ErrTraining as a match.
func (e *TrainingError) Is(target error) bool { return target == ErrTraining }

func trainingErr(epoch int, cause error) error {
	return &TrainingError{Epoch: epoch, Cause: cause}
}
