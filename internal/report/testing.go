package report

import (
	"testing"

	"github.com/roach88/fixrun/internal/ir"
)

// Testing bridges a run into Go tests: each fixture becomes a subtest and
// each assertion a subtest of it, failing with the assertion message.
//
// Results of a fixture are buffered until End, since a subtest body must
// run inside t.Run.
type Testing struct {
	T *testing.T
}

// NewTesting creates a reporter running subtests of t.
func NewTesting(t *testing.T) *Testing {
	return &Testing{T: t}
}

// Describe implements Reporter.
func (r *Testing) Describe(fixture ir.FixturePath) Group {
	return &testingGroup{t: r.T, id: fixture.ID}
}

// Finish implements Reporter.
func (r *Testing) Finish(summary *ir.RunSummary) error {
	r.T.Helper()
	if !summary.Complete {
		r.T.Errorf("run summary incomplete: %d fixtures reported", len(summary.Fixtures))
	}
	return nil
}

type testingGroup struct {
	t       *testing.T
	id      string
	results []ir.AssertionResult
}

func (g *testingGroup) It(result ir.AssertionResult) {
	g.results = append(g.results, result)
}

func (g *testingGroup) End() {
	results := g.results
	g.t.Run(g.id, func(t *testing.T) {
		for _, a := range results {
			t.Run(a.Name, func(t *testing.T) {
				if !a.Passed {
					t.Error(a.Message)
				}
			})
		}
	})
}
