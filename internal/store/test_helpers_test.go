package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/fixrun/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSummary builds a two-fixture summary with one failure.
func createTestSummary(runID string) *ir.RunSummary {
	return &ir.RunSummary{
		RunID:    runID,
		Total:    3,
		Passed:   2,
		Failed:   1,
		Complete: true,
		Fixtures: []ir.FixtureReport{
			{
				FixtureID: "b.test.scss",
				Sealed:    true,
				Assertions: []ir.AssertionResult{
					ir.Pass("b.test.scss", "mixins :: adds"),
					ir.Fail("b.test.scss", "mixins :: subtracts", "Output: 1\nExpected: 2"),
				},
			},
			{
				FixtureID: "a.test.yaml",
				Sealed:    true,
				Assertions: []ir.AssertionResult{
					ir.Pass("a.test.yaml", "sum"),
				},
			},
		},
	}
}

func createTestRecord(t *testing.T, s *ir.RunSummary, started time.Time) RunRecord {
	t.Helper()
	rec, err := NewRunRecord(s, "/work", []string{"**/*.test.scss", "**/*.test.yaml"}, started, started.Add(1500*time.Millisecond))
	if err != nil {
		t.Fatalf("NewRunRecord() failed: %v", err)
	}
	return rec
}
