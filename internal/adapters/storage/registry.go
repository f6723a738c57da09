// Package storage persists trained models in a versioned SQLite registry.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/attrition/internal/domain/classifier"
	"github.com/okian/attrition/internal/domain/importance"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	created_at    TEXT NOT NULL,
	payload_json  TEXT NOT NULL,
	metrics_json  TEXT,
	FOREIGN KEY (parent_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_model (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);
`

// Version describes one stored model.
type Version struct {
	ID        string               `json:"id"`
	ParentID  string               `json:"parent_id,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	Metrics   *classifier.Progress `json:"metrics,omitempty"`
	Active    bool                 `json:"active"`
}

type payload struct {
	Model      *classifier.Model `json:"model"`
	Importance importance.Set    `json:"importance"`
}

// Registry stores model versions and the active pointer.
type Registry struct {
	db *sql.DB
}

// Open opens a SQLite database and runs migrations.
func Open(ctx context.Context, dbPath string) (*Registry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Save stores m with its importance set as a new version and makes it active.
func (r *Registry) Save(ctx context.Context, m *classifier.Model, imp importance.Set) (Version, error) {
	if m == nil {
		return Version{}, fmt.Errorf("%w: nil model", ErrInvalid)
	}
	v := Version{ID: uuid.New().String(), CreatedAt: time.Now().UTC(), Active: true}

	stored := m.Clone()
	stored.Version = v.ID
	body, err := json.Marshal(payload{Model: stored, Importance: imp})
	if err != nil {
		return Version{}, fmt.Errorf("marshal model: %w", err)
	}
	var metricsPtr any
	if final, ok := m.Final(); ok {
		v.Metrics = &final
		mj, err := json.Marshal(final)
		if err != nil {
			return Version{}, fmt.Errorf("marshal metrics: %w", err)
		}
		metricsPtr = string(mj)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var parent sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT version_id FROM active_model WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	var parentPtr any
	if parent.Valid {
		v.ParentID = parent.String
		parentPtr = parent.String
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_versions (version_id, parent_id, created_at, payload_json, metrics_json)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ID, parentPtr, v.CreatedAt.Format(time.RFC3339Nano), string(body), metricsPtr,
	)
	if err != nil {
		return Version{}, fmt.Errorf("insert version: %w", err)
	}
	if err := setActive(ctx, tx, v.ID); err != nil {
		return Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

func setActive(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO active_model (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// Active loads the active model. Returns ErrNotFound when none was saved.
func (r *Registry) Active(ctx context.Context) (*classifier.Model, importance.Set, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT version_id FROM active_model WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get active: %w", err)
	}
	return r.Load(ctx, id)
}

// Load reads a specific version.
func (r *Registry) Load(ctx context.Context, id string) (*classifier.Model, importance.Set, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT payload_json FROM model_versions WHERE version_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get version %s: %w", id, err)
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrInvalid, id, err)
	}
	if p.Model == nil || len(p.Model.Layers) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no layers", ErrInvalid, id)
	}
	return p.Model, p.Importance, nil
}

// Activate points the registry at an existing version.
func (r *Registry) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_versions WHERE version_id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := setActive(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the most recent versions, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]Version, error) {
	if limit < 1 {
		limit = 20
	}
	var active sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT version_id FROM active_model WHERE id = 1`).Scan(&active)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get active: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT version_id, parent_id, created_at, metrics_json
		 FROM model_versions ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var (
			v          Version
			parentID   sql.NullString
			createdStr string
			metricsStr sql.NullString
		)
		if err := rows.Scan(&v.ID, &parentID, &createdStr, &metricsStr); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.ParentID = parentID.String
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		if metricsStr.Valid {
			var p classifier.Progress
			if err := json.Unmarshal([]byte(metricsStr.String), &p); err == nil {
				v.Metrics = &p
			}
		}
		v.Active = active.Valid && active.String == v.ID
		out = append(out, v)
	}
	return out, rows.Err()
}
