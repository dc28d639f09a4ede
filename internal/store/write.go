package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fixrun/internal/ir"
)

// RunRecord is the run-level row of the history.
type RunRecord struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	RootDir       string    `json:"root_dir"`
	Patterns      []string  `json:"patterns"`
	Total         int       `json:"total"`
	Passed        int       `json:"passed"`
	Failed        int       `json:"failed"`
	Complete      bool      `json:"complete"`
	Digest        string    `json:"digest"`
	IRVersion     string    `json:"ir_version"`
	EngineVersion string    `json:"engine_version"`
}

// timeLayout is the stored representation of timestamps. Fixed width keeps
// lexical and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewRunRecord builds the run row for a finished summary.
func NewRunRecord(s *ir.RunSummary, rootDir string, patterns []string, started, finished time.Time) (RunRecord, error) {
	digest, err := ir.SummaryDigest(s)
	if err != nil {
		return RunRecord{}, fmt.Errorf("new run record: %w", err)
	}
	return RunRecord{
		ID:            s.RunID,
		StartedAt:     started.UTC(),
		FinishedAt:    finished.UTC(),
		RootDir:       rootDir,
		Patterns:      patterns,
		Total:         s.Total,
		Passed:        s.Passed,
		Failed:        s.Failed,
		Complete:      s.Complete,
		Digest:        digest,
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
	}, nil
}

// WriteRun records a run and all of its fixtures and assertions in one
// transaction. Writing the same run ID twice is an error.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord, summary *ir.RunSummary) (err error) {
	if rec.ID == "" {
		return errors.New("write run: run id is required")
	}

	patternsJSON, err := ir.MarshalCanonical(rec.Patterns)
	if err != nil {
		return fmt.Errorf("write run: patterns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, root_dir, patterns, total, passed, failed, complete, digest, ir_version, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
		rec.RootDir,
		string(patternsJSON),
		rec.Total,
		rec.Passed,
		rec.Failed,
		boolToInt(rec.Complete),
		rec.Digest,
		rec.IRVersion,
		rec.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for i, fr := range summary.Fixtures {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fixtures (run_id, seq, fixture_id, sealed)
			VALUES (?, ?, ?, ?)
		`, rec.ID, i, fr.FixtureID, boolToInt(fr.Sealed))
		if err != nil {
			return fmt.Errorf("write run: fixture %s: %w", fr.FixtureID, err)
		}

		for j, a := range fr.Assertions {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO assertions (run_id, fixture_id, seq, name, passed, message, synthetic)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, rec.ID, fr.FixtureID, j, a.Name, boolToInt(a.Passed), a.Message, boolToInt(a.Synthetic))
			if err != nil {
				return fmt.Errorf("write run: assertion %s/%s: %w", fr.FixtureID, a.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
