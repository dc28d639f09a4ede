package ir

import "golang.org/x/text/unicode/norm"

// LoadErrorName is the assertion name of the synthetic failure that stands
// in for a fixture that could not be evaluated.
const LoadErrorName = "<fixture-load-error>"

// FixturePath identifies one located fixture file.
// Created by the locator and never mutated afterwards.
type FixturePath struct {
	// Path is the absolute path of the fixture file.
	Path string `json:"path"`

	// ID is the slash-separated path relative to the search root.
	// It is the fixture identity used by reports.
	ID string `json:"id"`
}

// AssertionResult is the outcome of one declarative assertion in a fixture.
type AssertionResult struct {
	FixtureID string `json:"fixture_id"`
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message,omitempty"`

	// Synthetic marks a result injected for a fixture that could not run.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Pass builds a passing assertion result.
func Pass(fixtureID, name string) AssertionResult {
	return AssertionResult{FixtureID: fixtureID, Name: NormalizeName(name), Passed: true}
}

// Fail builds a failing assertion result.
func Fail(fixtureID, name, message string) AssertionResult {
	return AssertionResult{FixtureID: fixtureID, Name: NormalizeName(name), Message: message}
}

// LoadFailure builds the synthetic failing result for a fixture that could
// not be evaluated at all.
func LoadFailure(fixtureID string, err error) AssertionResult {
	return AssertionResult{
		FixtureID: fixtureID,
		Name:      LoadErrorName,
		Message:   err.Error(),
		Synthetic: true,
	}
}

// NormalizeName returns the NFC form of an assertion name so that
// uniqueness does not depend on how a fixture encoded its text.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// FixtureReport holds the results of one fixture in insertion order.
type FixtureReport struct {
	FixtureID  string            `json:"fixture_id"`
	Assertions []AssertionResult `json:"assertions"`
	Sealed     bool              `json:"sealed"`
}

// Passed returns the number of passing assertions.
func (r *FixtureReport) Passed() int {
	n := 0
	for _, a := range r.Assertions {
		if a.Passed {
			n++
		}
	}
	return n
}

// Failed returns the number of failing assertions.
func (r *FixtureReport) Failed() int {
	return len(r.Assertions) - r.Passed()
}

// OK reports whether every assertion in the fixture passed.
func (r *FixtureReport) OK() bool {
	return r.Failed() == 0
}

// RunSummary is the terminal artifact of one harness invocation.
type RunSummary struct {
	RunID  string `json:"run_id,omitempty"`
	Total  int    `json:"total"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`

	// Complete is false when the summary was taken before every known
	// fixture was sealed. Incomplete summaries must not decide exit codes.
	Complete bool `json:"complete"`

	Fixtures []FixtureReport `json:"fixtures"`
}

// OK reports whether the run had no failing assertions.
func (s *RunSummary) OK() bool {
	return s.Failed == 0
}

// Fixture returns the report for a fixture ID, or nil.
func (s *RunSummary) Fixture(id string) *FixtureReport {
	for i := range s.Fixtures {
		if s.Fixtures[i].FixtureID == id {
			return &s.Fixtures[i]
		}
	}
	return nil
}
