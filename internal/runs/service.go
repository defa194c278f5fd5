// Package runs records scoring runs and their per-category summaries in
// Postgres.
package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Run lifecycle.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ErrNotFound is returned when no run matches the requested ID.
var ErrNotFound = errors.New("run not found")

// ErrInvalidTransition is returned when a status update does not follow the
// QUEUED → RUNNING → COMPLETED|FAILED lifecycle.
var ErrInvalidTransition = errors.New("invalid run status transition")

// Run is one persisted scoring run.
type Run struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	EntityCount   int       `json:"entity_count"`
	CategoryCount int       `json:"category_count"`
	InputRef      *string   `json:"input_ref,omitempty"`
	ResultRef     *string   `json:"result_ref,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Terminal reports whether the run can no longer change.
func (r *Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// CategorySummary is the stored overview of one category in a run.
type CategorySummary struct {
	RunID        string          `json:"run_id"`
	Category     string          `json:"category"`
	Members      int             `json:"members"`
	Scored       int             `json:"scored"`
	MeanScore    *float64        `json:"mean_score"`
	Distribution json.RawMessage `json:"distribution"`
	Weights      json.RawMessage `json:"weights"`
}

// allowedFrom lists the statuses a run may move out of to reach status.
func allowedFrom(status string) []string {
	switch status {
	case StatusRunning:
		return []string{StatusQueued}
	case StatusCompleted, StatusFailed:
		return []string{StatusQueued, StatusRunning}
	}
	return nil
}

// Service provides run bookkeeping backed by Postgres.
type Service struct {
	db *sql.DB
}

// NewService creates a new run Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const runColumns = `id, source, status, entity_count, category_count, input_ref, result_ref, error, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	r := &Run{}
	err := s.Scan(&r.ID, &r.Source, &r.Status, &r.EntityCount, &r.CategoryCount,
		&r.InputRef, &r.ResultRef, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRun inserts a QUEUED run for a batch from source.
func (s *Service) CreateRun(ctx context.Context, source string, entityCount, categoryCount int) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`INSERT INTO runs (id, source, status, entity_count, category_count)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+runColumns,
		uuid.NewString(), source, StatusQueued, entityCount, categoryCount,
	))
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// MarkRunning records that scoring started and where the input batch lives.
func (s *Service) MarkRunning(ctx context.Context, id, inputRef string) error {
	return s.transition(ctx, id, StatusRunning, `input_ref = $4`, inputRef)
}

// MarkCompleted records the stored result location.
func (s *Service) MarkCompleted(ctx context.Context, id, resultRef string) error {
	return s.transition(ctx, id, StatusCompleted, `result_ref = $4`, resultRef)
}

// MarkFailed records why a run failed.
func (s *Service) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.transition(ctx, id, StatusFailed, `error = $4`, errMsg)
}

func (s *Service) transition(ctx context.Context, id, status, set string, arg any) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = $2, `+set+`, updated_at = now()
		 WHERE id = $1 AND status = ANY($3)`,
		id, status, pq.Array(allowedFrom(status)), arg,
	)
	if err != nil {
		return fmt.Errorf("update run %s to %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s to %s: %w", id, status, err)
	}
	if n == 0 {
		if _, getErr := s.GetRun(ctx, id); errors.Is(getErr, ErrNotFound) {
			return getErr
		}
		return fmt.Errorf("run %s to %s: %w", id, status, ErrInvalidTransition)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. Status filters when
// non-empty.
func (s *Service) ListRuns(ctx context.Context, status string, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// SaveSummaries replaces the category summaries of a run in one transaction.
func (s *Service) SaveSummaries(ctx context.Context, runID string, summaries []CategorySummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summaries tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_summaries WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}
	for _, cs := range summaries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO category_summaries (run_id, category, members, scored, mean_score, distribution, weights)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, cs.Category, cs.Members, cs.Scored, cs.MeanScore, []byte(cs.Distribution), []byte(cs.Weights),
		)
		if err != nil {
			return fmt.Errorf("insert summary %s: %w", cs.Category, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summaries: %w", err)
	}
	return nil
}

// ListSummaries returns a run's category summaries ordered by category.
func (s *Service) ListSummaries(ctx context.Context, runID string) ([]CategorySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, category, members, scored, mean_score, distribution, weights
		 FROM category_summaries WHERE run_id = $1 ORDER BY category`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []CategorySummary
	for rows.Next() {
		var cs CategorySummary
		if err := rows.Scan(&cs.RunID, &cs.Category, &cs.Members, &cs.Scored, &cs.MeanScore, &cs.Distribution, &cs.Weights); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
