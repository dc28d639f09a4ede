package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureReportCounts(t *testing.T) {
	r := FixtureReport{
		FixtureID: "a.test.scss",
		Assertions: []AssertionResult{
			Pass("a.test.scss", "one"),
			Fail("a.test.scss", "two", "boom"),
			Pass("a.test.scss", "three"),
		},
	}

	assert.Equal(t, 2, r.Passed())
	assert.Equal(t, 1, r.Failed())
	assert.False(t, r.OK())
}

func TestLoadFailure(t *testing.T) {
	res := LoadFailure("c.bad", errors.New("no checker"))

	assert.Equal(t, LoadErrorName, res.Name)
	assert.Equal(t, "c.bad", res.FixtureID)
	assert.Equal(t, "no checker", res.Message)
	assert.True(t, res.Synthetic)
	assert.False(t, res.Passed)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "caf\u00e9", NormalizeName("cafe\u0301"))
	assert.Equal(t, NormalizeName("caf\u00e9"), Pass("x", "cafe\u0301").Name)
}

func TestRunSummaryFixtureLookup(t *testing.T) {
	s := &RunSummary{
		Fixtures: []FixtureReport{{FixtureID: "a"}, {FixtureID: "b"}},
	}

	require.NotNil(t, s.Fixture("b"))
	assert.Equal(t, "b", s.Fixture("b").FixtureID)
	assert.Nil(t, s.Fixture("z"))
	assert.True(t, s.OK())
}
