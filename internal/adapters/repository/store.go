// Package repository holds the risk ranking of scored employees.
package repository

import (
	"context"

	"github.com/okian/attrition/internal/domain/types"
)

// Store provides read/write access to the risk ranking.
type Store interface {
	// Upsert records the latest assessment of an employee, replacing any
	// previous one. Entry.Rank is ignored.
	Upsert(ctx context.Context, e types.Entry) error

	// Rank returns the current rank and score of an employee.
	// Returns ErrNotFound if the employee is unknown.
	Rank(ctx context.Context, employeeID string) (types.Entry, error)

	// TopN returns the top-N entries ordered by score desc, id asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of ranked employees.
	Count(ctx context.Context) int

	// Reset drops every entry.
	Reset(ctx context.Context)
}
