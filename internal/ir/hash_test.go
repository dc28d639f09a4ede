package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:    runID,
		Total:    2,
		Passed:   1,
		Failed:   1,
		Complete: true,
		Fixtures: []FixtureReport{
			{
				FixtureID: "a.test.yaml",
				Sealed:    true,
				Assertions: []AssertionResult{
					Pass("a.test.yaml", "adds"),
					Fail("a.test.yaml", "subtracts", "expected 1"),
				},
			},
		},
	}
}

func TestCanonicalSummary(t *testing.T) {
	data, err := CanonicalSummary(sampleSummary("run-1"))
	require.NoError(t, err)

	expected := `{"complete":true,"failed":1,"fixtures":[{"assertions":[` +
		`{"fixture_id":"a.test.yaml","name":"adds","passed":true},` +
		`{"fixture_id":"a.test.yaml","message":"expected 1","name":"subtracts","passed":false}],` +
		`"fixture_id":"a.test.yaml","sealed":true}],"passed":1,"total":2}`
	assert.Equal(t, expected, string(data))
}

func TestSummaryDigestIgnoresRunID(t *testing.T) {
	d1, err := SummaryDigest(sampleSummary("run-1"))
	require.NoError(t, err)
	d2, err := SummaryDigest(sampleSummary("run-2"))
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestSummaryDigestDetectsChange(t *testing.T) {
	a := sampleSummary("run")
	b := sampleSummary("run")
	b.Fixtures[0].Assertions[1].Message = "expected 2"

	d1, err := SummaryDigest(a)
	require.NoError(t, err)
	d2, err := SummaryDigest(b)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}
