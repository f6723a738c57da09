package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/encoding"
	"github.com/okian/attrition/internal/domain/importance"
	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"
)

// JobState is the lifecycle state of a training job.
type JobState string

// Training job states.
const (
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// TrainingStatus is a point-in-time view of a training job.
type TrainingStatus struct {
	ID           string               `json:"id"`
	State        JobState             `json:"state"`
	Epoch        int                  `json:"epoch"`
	Epochs       int                  `json:"epochs"`
	Last         *classifier.Progress `json:"last,omitempty"`
	Error        string               `json:"error,omitempty"`
	ModelVersion string               `json:"model_version,omitempty"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
}

// TrainingJob is an asynchronous training run.
type TrainingJob struct {
	cancel   context.CancelFunc
	done     chan struct{}
	progress chan classifier.Progress

	mu     sync.RWMutex
	status TrainingStatus
	model  *classifier.Model
	err    error
}

func newTrainingJob(cancel context.CancelFunc, epochs int) *TrainingJob {
	return &TrainingJob{
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: make(chan classifier.Progress, epochs),
		status: TrainingStatus{
			ID:        uuid.New().String(),
			State:     JobRunning,
			Epochs:    epochs,
			StartedAt: time.Now().UTC(),
		},
	}
}

// ID returns the job id.
func (j *TrainingJob) ID() string { return j.status.ID }

// Status returns the current job status.
func (j *TrainingJob) Status() TrainingStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Progress delivers per-epoch metrics. Events are dropped when the reader
// falls behind; the channel is closed when the job ends.
func (j *TrainingJob) Progress() <-chan classifier.Progress { return j.progress }

// Done is closed when the job ends.
func (j *TrainingJob) Done() <-chan struct{} { return j.done }

// Cancel asks the job to stop before the next epoch.
func (j *TrainingJob) Cancel() { j.cancel() }

// Wait blocks until the job ends and returns its model.
func (j *TrainingJob) Wait(ctx context.Context) (*classifier.Model, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.model, j.err
}

func (j *TrainingJob) report(p classifier.Progress) {
	j.mu.Lock()
	j.status.Epoch = p.Epoch
	last := p
	j.status.Last = &last
	j.mu.Unlock()

	select {
	case j.progress <- p:
	default:
	}
}

func (j *TrainingJob) finish(m *classifier.Model, err error) {
	j.mu.Lock()
	now := time.Now().UTC()
	j.status.FinishedAt = &now
	j.model, j.err = m, err
	switch {
	case err == nil:
		j.status.State = JobSucceeded
		j.status.ModelVersion = m.Version
	case errors.Is(err, classifier.ErrTrainingCanceled):
		j.status.State = JobCanceled
		j.status.Error = err.Error()
	default:
		j.status.State = JobFailed
		j.status.Error = err.Error()
	}
	j.mu.Unlock()

	j.cancel()
	close(j.progress)
	close(j.done)
}

// Train fits the encoder and classifier on the trainable records and
// publishes the model with its recomputed importance. A failed run leaves
// the previous model in place.
func (s *Service) Train(ctx context.Context) (*classifier.Model, error) {
	if !s.training.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer s.training.Store(false)
	return s.train(ctx, nil)
}

// StartTraining runs Train in the background. The job outlives ctx and is
// stopped only by Cancel or Stop.
func (s *Service) StartTraining(ctx context.Context) (*TrainingJob, error) {
	if s.snapshot().store == nil {
		return nil, &classifier.TrainingError{Cause: ErrNoDataset}
	}
	if !s.training.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}

	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	epochs := s.trainCfg.Epochs
	if epochs <= 0 {
		epochs = classifier.DefaultConfig().Epochs
	}
	job := newTrainingJob(cancel, epochs)
	s.job.Store(job)

	go func() {
		m, err := s.train(jctx, job.report)
		s.training.Store(false)
		job.finish(m, err)
	}()

	s.logger.Info(ctx, "training job started", logger.String("job", job.ID()))
	return job, nil
}

// TrainingStatus returns the status of the latest training job.
func (s *Service) TrainingStatus() (TrainingStatus, error) {
	job := s.job.Load()
	if job == nil {
		return TrainingStatus{}, ErrNoTrainingJob
	}
	return job.Status(), nil
}

// CancelTraining cancels the running training job.
func (s *Service) CancelTraining(ctx context.Context) error {
	job := s.job.Load()
	if job == nil {
		return ErrNoTrainingJob
	}
	if job.Status().State != JobRunning {
		return fmt.Errorf("%w: job %s already %s", ErrNoTrainingJob, job.ID(), job.Status().State)
	}
	job.Cancel()
	s.logger.Info(ctx, "training job cancel requested", logger.String("job", job.ID()))
	return nil
}

func (s *Service) train(ctx context.Context, onProgress func(classifier.Progress)) (*classifier.Model, error) {
	start := time.Now()
	st := s.snapshot()
	if st.store == nil {
		return nil, s.trainFailed(ctx, start, &classifier.TrainingError{Cause: ErrNoDataset})
	}

	records := st.store.Trainable()
	if len(records) == 0 {
		return nil, s.trainFailed(ctx, start, &classifier.TrainingError{Cause: classifier.ErrEmptyTrainingSet})
	}
	params, err := encoding.Fit(records)
	if err != nil {
		return nil, s.trainFailed(ctx, start, &classifier.TrainingError{Cause: err})
	}
	X, err := params.TransformAll(records)
	if err != nil {
		return nil, s.trainFailed(ctx, start, &classifier.TrainingError{Cause: err})
	}
	y := make([]float64, len(records))
	for i := range records {
		y[i], _ = records[i].Label()
	}

	s.logger.Info(ctx, "training started",
		logger.Int("rows", len(X)),
		logger.Int("width", params.Width()),
		logger.Int("epochs", s.trainCfg.Epochs),
	)
	m, err := classifier.Train(ctx, X, y, s.trainCfg,
		classifier.WithEncoding(params),
		classifier.WithProgress(func(p classifier.Progress) {
			metrics.RecordEpoch(p.Loss, p.Accuracy, p.ValAccuracy)
			s.logger.Debug(ctx, "epoch finished",
				logger.Int("epoch", p.Epoch),
				logger.Float64("loss", p.Loss),
				logger.Float64("accuracy", p.Accuracy),
			)
			if onProgress != nil {
				onProgress(p)
			}
		}),
	)
	if err != nil {
		return nil, s.trainFailed(ctx, start, err)
	}

	estStart := time.Now()
	est := importance.NewEstimator(
		importance.WithNoiseStd(s.noiseStd),
		importance.WithSeed(s.trainCfg.Seed),
		importance.WithParams(params),
	)
	imp, err := est.EstimateOrFallback(ctx, m, X, st.weights)
	metrics.RecordImportanceLatency(float64(time.Since(estStart).Milliseconds()))
	if err != nil {
		s.logger.Warn(ctx, "importance estimation failed, keeping previous weights", logger.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, s.trainFailed(ctx, start, fmt.Errorf("%w: %w", classifier.ErrTrainingCanceled, err))
	}

	if s.registry != nil {
		v, err := s.registry.Save(ctx, m, imp)
		if err != nil {
			metrics.RecordErrorByComponent("registry", "save_error")
			s.logger.Error(ctx, "failed to persist model", logger.Error(err))
		} else {
			m.Version = v.ID
		}
	}

	s.update(func(st *state) {
		st.model = m
		st.weights = imp
	})
	s.resetScores(ctx)

	metrics.RecordTrainingRun("ok", time.Since(start))
	fields := []logger.Field{
		logger.String("version", m.Version),
		logger.Duration("took", time.Since(start)),
	}
	if final, ok := m.Final(); ok {
		fields = append(fields,
			logger.Float64("loss", final.Loss),
			logger.Float64("accuracy", final.Accuracy),
			logger.Float64("val_accuracy", final.ValAccuracy),
		)
	}
	s.logger.Info(ctx, "model published", fields...)
	return m, nil
}

func (s *Service) trainFailed(ctx context.Context, start time.Time, err error) error {
	outcome := "failed"
	if errors.Is(err, classifier.ErrTrainingCanceled) {
		outcome = "canceled"
	}
	metrics.RecordTrainingRun(outcome, time.Since(start))
	metrics.RecordErrorByComponent("training", outcome)
	s.logger.Warn(ctx, "training did not publish a model",
		logger.String("outcome", outcome),
		logger.Error(err),
	)
	return err
}
