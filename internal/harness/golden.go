package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fixrun/internal/ir"
)

// AssertGolden compares the canonical encoding of a summary against the
// golden file testdata/golden/{name}.golden. The run ID is not part of the
// encoding, so summaries of separate runs compare equal.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, summary *ir.RunSummary) {
	t.Helper()

	data, err := ir.CanonicalSummary(summary)
	if err != nil {
		t.Fatalf("canonical summary: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
