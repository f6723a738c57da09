package service

import (
	"context"
	"fmt"

	"github.com/okian/attrition/internal/adapters/storage"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/importance"
	"github.com/okian/attrition/pkg/logger"
)

// ModelCatalog is a registry that can list stored versions and switch the
// active one.
type ModelCatalog interface {
	List(ctx context.Context, limit int) ([]storage.Version, error)
	Activate(ctx context.Context, id string) error
}

func (s *Service) catalog() (ModelCatalog, error) {
	c, ok := s.registry.(ModelCatalog)
	if !ok {
		return nil, ErrNoRegistry
	}
	return c, nil
}

// Models lists stored model versions, newest first.
func (s *Service) Models(ctx context.Context, limit int) ([]storage.Version, error) {
	c, err := s.catalog()
	if err != nil {
		return nil, err
	}
	return c.List(ctx, limit)
}

// ActivateModel makes a stored version the active one and publishes it with
// its importance. The ranking is cleared since it was scored by the
// previous model. Rejected while training runs.
func (s *Service) ActivateModel(ctx context.Context, id string) (*classifier.Model, error) {
	c, err := s.catalog()
	if err != nil {
		return nil, err
	}
	if !s.training.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer s.training.Store(false)

	if err := c.Activate(ctx, id); err != nil {
		return nil, fmt.Errorf("activate %s: %w", id, err)
	}
	m, imp, err := s.registry.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	if len(imp) == 0 {
		imp = importance.Default()
	}
	s.update(func(st *state) {
		st.model = m
		st.weights = imp
	})
	s.resetScores(ctx)

	s.logger.Info(ctx, "model activated",
		logger.String("version", m.Version),
		logger.Int("width", m.Width()),
	)
	return m, nil
}
