package service

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/attrition/internal/domain/analysis"
	"github.com/okian/attrition/internal/domain/dataset"
	"github.com/okian/attrition/internal/domain/dedupe"
	"github.com/okian/attrition/internal/domain/model"
	"github.com/okian/attrition/pkg/logger"
	"github.com/okian/attrition/pkg/metrics"
)

// LoadDataset parses a CSV export and replaces the session dataset. The
// published model is kept; the risk ranking is cleared since it scored the
// previous dataset.
func (s *Service) LoadDataset(ctx context.Context, r io.Reader) (dataset.LoadReport, error) {
	store, report, err := dataset.Load(ctx, r,
		dataset.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1_000_000))),
	)
	if err != nil {
		metrics.RecordDatasetLoad("error")
		metrics.RecordErrorByComponent("dataset", "load_error")
		s.logger.Warn(ctx, "dataset load failed", logger.Error(err))
		return report, err
	}

	all := store.All()
	byID := make(map[string]model.EmployeeRecord, len(all))
	for _, rec := range all {
		byID[rec.EmployeeID] = rec
	}
	s.update(func(st *state) {
		st.store = store
		st.report = report
		st.byID = byID
	})
	s.resetScores(ctx)

	metrics.RecordDatasetLoad("ok")
	metrics.UpdateDatasetSize(report.Loaded, report.Trainable)
	metrics.RecordDatasetSkipped(report.Skipped)
	s.logger.Info(ctx, "dataset loaded",
		logger.Int("rows", report.Rows),
		logger.Int("loaded", report.Loaded),
		logger.Int("trainable", report.Trainable),
		logger.Int("skipped", report.Skipped),
		logger.Int("duplicates", report.Duplicates),
	)
	return report, nil
}

// Dataset returns the loaded dataset and its load report.
func (s *Service) Dataset() (*dataset.Store, dataset.LoadReport, error) {
	st := s.snapshot()
	if st.store == nil {
		return nil, dataset.LoadReport{}, ErrNoDataset
	}
	return st.store, st.report, nil
}

// Summary describes the loaded dataset.
func (s *Service) Summary() (analysis.Summary, error) {
	st := s.snapshot()
	if st.store == nil {
		return analysis.Summary{}, ErrNoDataset
	}
	return analysis.Summarize(st.store.All()), nil
}

// Analysis computes attrition rates by department, age and income group over
// the labelled records.
func (s *Service) Analysis() (analysis.Report, error) {
	st := s.snapshot()
	if st.store == nil {
		return analysis.Report{}, ErrNoDataset
	}
	return analysis.Comprehensive(st.store.Trainable()), nil
}

// Record looks up a loaded employee by id.
func (s *Service) Record(employeeID string) (model.EmployeeRecord, error) {
	st := s.snapshot()
	if st.store == nil {
		return model.EmployeeRecord{}, ErrNoDataset
	}
	rec, ok := st.byID[employeeID]
	if !ok {
		return model.EmployeeRecord{}, fmt.Errorf("employee %q: %w", employeeID, ErrUnknownEmployee)
	}
	return rec, nil
}
