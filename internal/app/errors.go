package service

import "errors"

// Sentinel error kinds for the service. HTTP handlers map them to status codes.
var (
	ErrNoDataset          = errors.New("no dataset loaded")
	ErrUnknownEmployee    = errors.New("unknown employee")
	ErrTrainingInProgress = errors.New("training already in progress")
	ErrScoringInProgress  = errors.New("batch scoring already in progress")
	ErrNoTrainingJob      = errors.New("no training job")
	ErrNoRegistry         = errors.New("no model registry configured")
)
