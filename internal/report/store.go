package report

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/fixrun/internal/ir"
	"github.com/roach88/fixrun/internal/store"
)

// Store persists each finished run to the history store.
type Store struct {
	st       *store.Store
	rootDir  string
	patterns []string
	now      func() time.Time
	started  time.Time
}

// NewStore creates a history reporter. now defaults to time.Now; the start
// time is taken when the reporter is created.
func NewStore(st *store.Store, rootDir string, patterns []string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		st:       st,
		rootDir:  rootDir,
		patterns: patterns,
		now:      now,
		started:  now(),
	}
}

// Describe implements Reporter.
func (s *Store) Describe(ir.FixturePath) Group { return nopGroup{} }

// Finish implements Reporter. A summary without a run ID cannot be stored.
func (s *Store) Finish(summary *ir.RunSummary) error {
	rec, err := store.NewRunRecord(summary, s.rootDir, s.patterns, s.started, s.now())
	if err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	if err := s.st.WriteRun(context.Background(), rec, summary); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}
