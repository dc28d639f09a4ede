// Package report is the host reporting surface of a run.
//
// The harness pushes results one way: Describe opens a group for a fixture,
// It delivers each assertion result of that fixture, End closes the group,
// and Finish receives the terminal summary. Reporters never feed anything
// back into the run.
package report

import (
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/fixrun/internal/ir"
)

// Reporter receives fixture groups and the final summary.
type Reporter interface {
	Describe(fixture ir.FixturePath) Group
	Finish(summary *ir.RunSummary) error
}

// Group receives the assertion results of one fixture.
type Group interface {
	It(result ir.AssertionResult)
	End()
}

// Nop discards everything.
type Nop struct{}

// Describe implements Reporter.
func (Nop) Describe(ir.FixturePath) Group { return nopGroup{} }

// Finish implements Reporter.
func (Nop) Finish(*ir.RunSummary) error { return nil }

type nopGroup struct{}

func (nopGroup) It(ir.AssertionResult) {}
func (nopGroup) End()                  {}

// Multi fans every event out to several reporters in order.
func Multi(reporters ...Reporter) Reporter {
	return multi(reporters)
}

type multi []Reporter

func (m multi) Describe(fixture ir.FixturePath) Group {
	groups := make(multiGroup, len(m))
	for i, r := range m {
		groups[i] = r.Describe(fixture)
	}
	return groups
}

// Finish calls Finish on every reporter, even after one fails, and returns
// the combined errors.
func (m multi) Finish(summary *ir.RunSummary) error {
	var result *multierror.Error
	for _, r := range m {
		if err := r.Finish(summary); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type multiGroup []Group

func (g multiGroup) It(result ir.AssertionResult) {
	for _, grp := range g {
		grp.It(result)
	}
}

func (g multiGroup) End() {
	for _, grp := range g {
		grp.End()
	}
}

// Replay pushes a finished summary through r as if the run were happening
// now. Fixture paths are not stored, so only IDs are set.
func Replay(r Reporter, summary *ir.RunSummary) error {
	for _, fr := range summary.Fixtures {
		g := r.Describe(ir.FixturePath{ID: fr.FixtureID})
		for _, a := range fr.Assertions {
			g.It(a)
		}
		g.End()
	}
	return r.Finish(summary)
}
