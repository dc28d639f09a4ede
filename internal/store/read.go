package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fixrun/internal/ir"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// ListRuns returns the most recent runs, newest first.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, root_dir, patterns, total, passed, failed, complete, digest, ir_version, engine_version
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run and its summary rebuilt in reported order.
// Returns ErrNotFound if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (*RunRecord, *ir.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, root_dir, patterns, total, passed, failed, complete, digest, ir_version, engine_version
		FROM runs
		WHERE id = ?
	`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	summary := &ir.RunSummary{
		RunID:    rec.ID,
		Total:    rec.Total,
		Passed:   rec.Passed,
		Failed:   rec.Failed,
		Complete: rec.Complete,
		Fixtures: []ir.FixtureReport{},
	}

	fixtures, err := s.db.QueryContext(ctx, `
		SELECT fixture_id, sealed FROM fixtures
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer fixtures.Close()

	index := make(map[string]int)
	for fixtures.Next() {
		var (
			fixtureID string
			sealed    int
		)
		if err := fixtures.Scan(&fixtureID, &sealed); err != nil {
			return nil, nil, fmt.Errorf("scan fixture: %w", err)
		}
		index[fixtureID] = len(summary.Fixtures)
		summary.Fixtures = append(summary.Fixtures, ir.FixtureReport{
			FixtureID:  fixtureID,
			Sealed:     sealed != 0,
			Assertions: []ir.AssertionResult{},
		})
	}
	if err := fixtures.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate fixtures: %w", err)
	}

	assertions, err := s.db.QueryContext(ctx, `
		SELECT a.fixture_id, a.name, a.passed, a.message, a.synthetic
		FROM assertions a
		JOIN fixtures f ON f.run_id = a.run_id AND f.fixture_id = a.fixture_id
		WHERE a.run_id = ?
		ORDER BY f.seq ASC, a.seq ASC
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("query assertions: %w", err)
	}
	defer assertions.Close()

	for assertions.Next() {
		var (
			a                 ir.AssertionResult
			passed, synthetic int
		)
		if err := assertions.Scan(&a.FixtureID, &a.Name, &passed, &a.Message, &synthetic); err != nil {
			return nil, nil, fmt.Errorf("scan assertion: %w", err)
		}
		a.Passed = passed != 0
		a.Synthetic = synthetic != 0
		i := index[a.FixtureID]
		summary.Fixtures[i].Assertions = append(summary.Fixtures[i].Assertions, a)
	}
	if err := assertions.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate assertions: %w", err)
	}

	return &rec, summary, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec               RunRecord
		started, finished string
		patternsJSON      string
		complete          int
	)
	err := row.Scan(
		&rec.ID,
		&started,
		&finished,
		&rec.RootDir,
		&patternsJSON,
		&rec.Total,
		&rec.Passed,
		&rec.Failed,
		&complete,
		&rec.Digest,
		&rec.IRVersion,
		&rec.EngineVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan run: %w", err)
	}

	if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return rec, fmt.Errorf("scan run: started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return rec, fmt.Errorf("scan run: finished_at: %w", err)
	}
	if err := json.Unmarshal([]byte(patternsJSON), &rec.Patterns); err != nil {
		return rec, fmt.Errorf("scan run: patterns: %w", err)
	}
	rec.Complete = complete != 0
	return rec, nil
}
