package classifier

import "github.com/okian/attrition/internal/domain/encoding"

// Progress reports metrics after each epoch.
type Progress struct {
	Epoch         int     `json:"epoch"`
	Epochs        int     `json:"epochs"`
	Loss          float64 `json:"loss"`
	Accuracy      float64 `json:"accuracy"`
	ValLoss       float64 `json:"val_loss,omitempty"`
	ValAccuracy   float64 `json:"val_accuracy,omitempty"`
	HasValidation bool    `json:"has_validation"`
}

// TrainOption configures a Train call.
type TrainOption func(*trainer)

// WithProgress registers a callback invoked after every epoch.
func WithProgress(fn func(Progress)) TrainOption {
	return func(t *trainer) {
		t.progress = fn
	}
}

// WithEncoding attaches the encoding parameters the vectors were built with.
// The parameter width must match the training vectors.
func WithEncoding(p *encoding.Params) TrainOption {
	return func(t *trainer) {
		t.params = p
	}
}
