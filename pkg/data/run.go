package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/raschctl/pkg/rasch"
)

const (
	RunListLimitDefault = 20
	runListLimitMax     = 500

	insertRunSQL = `INSERT INTO run (id, name, created_at, n_persons, n_items, reliability, converged, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectRunsSQL = `SELECT id, name, created_at, n_persons, n_items, reliability, converged
		FROM run
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	selectRunSQL = `SELECT id, name, created_at, n_persons, n_items, reliability, converged, result
		FROM run
		WHERE id = ?
	`

	deleteRunSQL = `DELETE FROM run WHERE id = ?`
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted analysis. Result is only populated by GetRun.
type Run struct {
	ID          string                `json:"id" yaml:"id"`
	Name        string                `json:"name" yaml:"name"`
	CreatedAt   time.Time             `json:"created_at" yaml:"createdAt"`
	NPersons    int                   `json:"n_persons" yaml:"nPersons"`
	NItems      int                   `json:"n_items" yaml:"nItems"`
	Reliability float64               `json:"reliability" yaml:"reliability"`
	Converged   bool                  `json:"converged" yaml:"converged"`
	Result      *rasch.AnalysisResult `json:"result,omitempty" yaml:"result,omitempty"`
}

// SaveRun stores an analysis result under a new ID.
func (s *Store) SaveRun(ctx context.Context, name string, res *rasch.AnalysisResult) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if res == nil {
		return nil, errors.New("analysis result required")
	}

	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("error encoding analysis result: %w", err)
	}

	r := &Run{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   time.Now().UTC(),
		NPersons:    res.NPersons,
		NItems:      res.NItems,
		Reliability: res.Reliability,
		Converged:   res.Metadata.CalibrationConverged,
	}
	if r.Name == "" {
		r.Name = r.ID[:8]
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(insertRunSQL),
		r.ID, r.Name, r.CreatedAt.UnixNano(), r.NPersons, r.NItems, r.Reliability, r.Converged, string(b)); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	r.CreatedAt = time.Unix(0, r.CreatedAt.UnixNano()).UTC()
	return r, nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}
	if limit < 1 || limit > runListLimitMax {
		limit = RunListLimitDefault
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectRunsSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r := &Run{}
		var created int64
		if err := rows.Scan(&r.ID, &r.Name, &created, &r.NPersons, &r.NItems, &r.Reliability, &r.Converged); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return list, nil
}

// GetRun returns a run including its full result.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	r := &Run{}
	var created int64
	var result string
	err := s.db.QueryRowContext(ctx, s.rebind(selectRunSQL), id).
		Scan(&r.ID, &r.Name, &created, &r.NPersons, &r.NItems, &r.Reliability, &r.Converged, &result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()

	r.Result = &rasch.AnalysisResult{}
	if err := json.Unmarshal([]byte(result), r.Result); err != nil {
		return nil, fmt.Errorf("error decoding result of run %s: %w", id, err)
	}
	return r, nil
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}

	res, err := s.db.ExecContext(ctx, s.rebind(deleteRunSQL), id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
