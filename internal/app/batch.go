package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/okian/attrition/internal/adapters/mq/queue"
	"github.com/okian/attrition/internal/adapters/mq/worker"
	"github.com/okian/attrition/internal/domain/analysis"
	"github.com/okian/attrition/internal/domain/dedupe"
	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/internal/domain/types"
	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"
)

// enqueueRetry is how long a producer waits when the batch queue is full.
const enqueueRetry = time.Millisecond

// BatchResult summarizes one ScoreDataset run.
type BatchResult struct {
	BatchID    string        `json:"batch_id"`
	Submitted  int           `json:"submitted"`
	Scored     int           `json:"scored"`
	Failed     int           `json:"failed"`
	Duplicates int           `json:"duplicates"`
	HighRisk   int           `json:"high_risk"`
	ModelRuns  int           `json:"model_runs"`
	RuleRuns   int           `json:"rule_runs"`
	Took       time.Duration `json:"took"`
}

// ScoreDataset assesses every loaded employee through the worker pool and
// rebuilds the risk ranking.
func (s *Service) ScoreDataset(ctx context.Context) (BatchResult, error) {
	st := s.snapshot()
	if st.store == nil {
		return BatchResult{}, ErrNoDataset
	}
	if !s.scoreMu.TryLock() {
		return BatchResult{}, ErrScoringInProgress
	}
	defer s.scoreMu.Unlock()

	start := time.Now()
	res := BatchResult{BatchID: uuid.New().String()}
	s.resetScores(ctx)

	records := st.store.All()
	collect := make(chan model.RiskAssessment, s.workerCount)
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	pool := worker.NewPool(s.workerCount, q, s, s.ranking,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithOnResult(func(j worker.Job, r worker.Result) {
			s.assessMu.Lock()
			s.assessments[j.Record.EmployeeID] = r
			s.assessMu.Unlock()
			collect <- r
		}),
	)

	tally := make(chan struct{})
	go func() {
		defer close(tally)
		for a := range collect {
			switch a.Source {
			case model.SourceModel:
				res.ModelRuns++
			case model.SourceRule:
				res.RuleRuns++
			}
			if a.Level == model.LevelHigh {
				res.HighRisk++
			}
		}
	}()

	pool.Start(ctx)
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(len(records) + 1))
	var submitErr error
	for _, rec := range records {
		if seen.SeenAndRecord(ctx, rec.EmployeeID) {
			res.Duplicates++
			continue
		}
		job := model.ScoreJob{BatchID: res.BatchID, Record: rec, EnqueuedAt: time.Now()}
		if err := s.enqueue(ctx, q, job); err != nil {
			seen.Unrecord(ctx, rec.EmployeeID)
			submitErr = err
			break
		}
		res.Submitted++
	}

	drainErr := pool.Drain(ctx)
	if drainErr != nil {
		// Workers may still be finishing a job that reports into collect.
		pool.Wait()
	}
	close(collect)
	<-tally

	processed, failed := pool.Stats()
	res.Scored = int(processed)
	res.Failed = int(failed) + (len(records) - res.Duplicates - res.Submitted)
	res.Took = time.Since(start)
	s.lastBatch.Store(&res)

	fields := []logger.Field{
		logger.String("batch", res.BatchID),
		logger.Int("submitted", res.Submitted),
		logger.Int("scored", res.Scored),
		logger.Int("failed", res.Failed),
		logger.Int("high_risk", res.HighRisk),
		logger.Duration("took", res.Took),
	}
	if err := errors.Join(submitErr, drainErr); err != nil {
		s.logger.Warn(ctx, "batch scoring incomplete", append(fields, logger.Error(err))...)
		return res, fmt.Errorf("score dataset: %w", err)
	}
	s.logger.Info(ctx, "batch scoring finished", fields...)
	metrics.UpdateRankedEmployees(s.ranking.Count(ctx))
	return res, nil
}

func (s *Service) enqueue(ctx context.Context, q *queue.InMemoryQueue, job model.ScoreJob) error {
	for {
		err := q.Enqueue(ctx, job)
		if !errors.Is(err, queue.ErrFull) {
			return err
		}
		t := time.NewTimer(enqueueRetry)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Service) resetScores(ctx context.Context) {
	s.ranking.Reset(ctx)
	s.assessMu.Lock()
	s.assessments = make(map[string]model.RiskAssessment)
	s.assessMu.Unlock()
	metrics.UpdateRankedEmployees(0)
}

// TopN returns the n highest-risk employees of the last batch run.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.ranking.TopN(ctx, n)
}

// Rank returns the rank and score of an employee in the last batch run.
func (s *Service) Rank(ctx context.Context, employeeID string) (types.Entry, error) {
	return s.ranking.Rank(ctx, employeeID)
}

// HighRisk returns up to n HIGH employees, highest score first. The dataset
// is scored first when the ranking is empty. n <= 0 means all.
func (s *Service) HighRisk(ctx context.Context, n int) ([]analysis.HighRiskRow, error) {
	st := s.snapshot()
	if st.store == nil {
		return nil, ErrNoDataset
	}
	if s.ranking.Count(ctx) == 0 {
		if _, err := s.ScoreDataset(ctx); err != nil {
			return nil, err
		}
	}

	limit := s.ranking.Count(ctx)
	if limit == 0 {
		return nil, nil
	}
	entries, err := s.ranking.TopN(ctx, limit)
	if err != nil {
		return nil, err
	}

	s.assessMu.RLock()
	defer s.assessMu.RUnlock()
	rows := make([]analysis.HighRiskRow, 0)
	for _, e := range entries {
		if e.Level != model.LevelHigh {
			break
		}
		rec, ok := st.byID[e.EmployeeID]
		if !ok {
			continue
		}
		a, ok := s.assessments[e.EmployeeID]
		if !ok {
			a = model.RiskAssessment{Score: e.Score, Level: e.Level, Source: e.Source}
		}
		rows = append(rows, analysis.HighRiskRow{Record: rec, Assessment: a})
		if n > 0 && len(rows) == n {
			break
		}
	}
	return rows, nil
}

// ExportHighRisk writes the HIGH employees as CSV.
func (s *Service) ExportHighRisk(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.HighRisk(ctx, 0)
	if err != nil {
		return 0, err
	}
	if err := analysis.WriteHighRiskCSV(w, rows); err != nil {
		return 0, fmt.Errorf("export high risk: %w", err)
	}
	return len(rows), nil
}
