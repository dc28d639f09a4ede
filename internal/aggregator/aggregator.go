// Package aggregator collects assertion results into per-fixture reports
// and tallies them into a run summary.
package aggregator

import (
	"fmt"
	"sync"

	"github.com/roach88/fixrun/internal/ir"
)

// Reasons carried by AggregatorError.
const (
	ReasonSealed   = "sealed"
	ReasonMismatch = "fixture id mismatch"
)

// AggregatorError indicates a driver bug, such as recording into a fixture
// that was already sealed.
type AggregatorError struct {
	FixtureID string
	Reason    string
}

func (e *AggregatorError) Error() string {
	return fmt.Sprintf("aggregator: fixture %s: %s", e.FixtureID, e.Reason)
}

// Aggregator is safe for concurrent use. Writers for disjoint fixture IDs
// may record concurrently; results for one fixture keep insertion order.
type Aggregator struct {
	mu      sync.Mutex
	order   []string
	reports map[string]*ir.FixtureReport
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{reports: make(map[string]*ir.FixtureReport)}
}

// Expect registers fixtures that will be reported, in report order.
// A summary is incomplete until every expected fixture is sealed.
func (a *Aggregator) Expect(ids ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		a.reportLocked(id)
	}
}

// reportLocked returns the report for id, creating it if necessary.
func (a *Aggregator) reportLocked(id string) *ir.FixtureReport {
	r, ok := a.reports[id]
	if !ok {
		r = &ir.FixtureReport{FixtureID: id, Assertions: []ir.AssertionResult{}}
		a.reports[id] = r
		a.order = append(a.order, id)
	}
	return r
}

// Record appends a result to a fixture's report.
// Fails with *AggregatorError once the fixture is sealed.
func (a *Aggregator) Record(fixtureID string, result ir.AssertionResult) error {
	if result.FixtureID != "" && result.FixtureID != fixtureID {
		return &AggregatorError{FixtureID: fixtureID, Reason: ReasonMismatch}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.reportLocked(fixtureID)
	if r.Sealed {
		return &AggregatorError{FixtureID: fixtureID, Reason: ReasonSealed}
	}
	result.FixtureID = fixtureID
	r.Assertions = append(r.Assertions, result)
	return nil
}

// Seal marks a fixture's report as final. Sealing twice is a no-op.
func (a *Aggregator) Seal(fixtureID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reportLocked(fixtureID).Sealed = true
	return nil
}

// Sealed reports whether a fixture has been sealed.
func (a *Aggregator) Sealed(fixtureID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.reports[fixtureID]
	return ok && r.Sealed
}

// Summary returns a snapshot of the run so far.
// Complete is false while any known fixture is unsealed; such a summary is
// for progressive reporting only.
func (a *Aggregator) Summary() *ir.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &ir.RunSummary{
		Complete: true,
		Fixtures: make([]ir.FixtureReport, 0, len(a.order)),
	}
	for _, id := range a.order {
		r := a.reports[id]
		snapshot := ir.FixtureReport{
			FixtureID:  r.FixtureID,
			Sealed:     r.Sealed,
			Assertions: append([]ir.AssertionResult(nil), r.Assertions...),
		}
		if snapshot.Assertions == nil {
			snapshot.Assertions = []ir.AssertionResult{}
		}
		s.Fixtures = append(s.Fixtures, snapshot)

		s.Total += len(r.Assertions)
		s.Passed += snapshot.Passed()
		if !r.Sealed {
			s.Complete = false
		}
	}
	s.Failed = s.Total - s.Passed
	return s
}
