package harness

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/checker/sasstrue"
	"github.com/roach88/fixrun/internal/ir"
	"github.com/roach88/fixrun/internal/locator"
	"github.com/roach88/fixrun/internal/report"
	"github.com/roach88/fixrun/internal/testutil"
)

const root = "/work"

// fakeSass returns canned True output keyed by fixture source.
func fakeSass(outputs map[string]string) sasstrue.Compiler {
	return sasstrue.CompilerFunc(func(_ context.Context, src []byte, _ []string) ([]byte, error) {
		css, ok := outputs[string(src)]
		if !ok {
			return nil, fmt.Errorf("Undefined mixin %q", string(src))
		}
		return []byte(css), nil
	})
}

const (
	passingCSS = `/* # Module: Math */
/* Test: Adds */
/*   ✔ adds numbers */
/* Test: Nests */
/*   ✔ nests */
`
	failingCSS = `/* # Module: Math */
/* Test: Subtracts */
/*   ✖ FAILED: [assert-equal] Subtracts numbers */
/*     - Output: [number] 1 */
/*     - Expected: [number] 2 */
`
)

// newScssDriver builds a driver over the three-fixture project used by the
// end-to-end tests.
func newScssDriver(t *testing.T, rep report.Reporter) *Driver {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.WriteFixtures(t, fs, root, map[string]string{
		"a.test.scss": "@include passing;",
		"b.test.scss": "@include failing;",
		"c.bad":       "???",
	})

	reg := checker.NewRegistry()
	require.NoError(t, reg.Register(sasstrue.New(fakeSass(map[string]string{
		"@include passing;": passingCSS,
		"@include failing;": failingCSS,
	})), sasstrue.Suffixes...))

	d := New(fs, reg, rep, nil)
	d.RunIDs = testutil.NewFixedRunIDs("run-1")
	return d
}

// newLineDriver builds a driver whose fixtures use the LineChecker format.
func newLineDriver(t *testing.T, rep report.Reporter, files map[string]string) (*Driver, *testutil.LineChecker) {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.WriteFixtures(t, fs, root, files)

	lc := testutil.NewLineChecker("line")
	reg := checker.NewRegistry()
	require.NoError(t, reg.Register(lc, ".test.line"))

	d := New(fs, reg, rep, nil)
	d.RunIDs = testutil.NewFixedRunIDs("run-1")
	return d, lc
}

var allFiles = []string{"**/*"}

func TestRun_EndToEnd(t *testing.T) {
	rec := &report.Recorder{}
	d := newScssDriver(t, rec)

	summary, err := d.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 2, summary.Failed)
	assert.True(t, summary.Complete)
	assert.False(t, summary.OK())
	require.Len(t, summary.Fixtures, 3)

	assert.Equal(t, []string{
		"describe a.test.scss",
		"it a.test.scss pass Math :: Adds",
		"it a.test.scss pass Math :: Nests",
		"end a.test.scss",
		"describe b.test.scss",
		"it b.test.scss fail Math :: Subtracts",
		"end b.test.scss",
		"describe c.bad",
		"it c.bad fail <fixture-load-error>",
		"end c.bad",
		"finish passed=2 failed=2 total=4",
	}, rec.Events())

	load := summary.Fixture("c.bad").Assertions[0]
	assert.True(t, load.Synthetic)
	assert.Equal(t, "no checker registered for fixture c.bad", load.Message)

	AssertGolden(t, "end_to_end", summary)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		content := fmt.Sprintf("ok first %d\nok second %d\n", i, i)
		if i%3 == 0 {
			content += fmt.Sprintf("fail third %d: mismatch\n", i)
		}
		if i%7 == 0 {
			content = "error cannot load"
		}
		files[fmt.Sprintf("dir%d/f%02d.test.line", i%4, i)] = content
	}

	seqRec := &report.Recorder{}
	seq, _ := newLineDriver(t, seqRec, files)
	seqSummary, err := seq.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	parRec := &report.Recorder{}
	par, _ := newLineDriver(t, parRec, files)
	par.Jobs = 8
	parSummary, err := par.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	assert.Equal(t, seqRec.Events(), parRec.Events())
	assert.Equal(t, seqSummary, parSummary)
	assert.Len(t, parSummary.Fixtures, 20)
}

func TestRun_EveryFixtureReportedOnce(t *testing.T) {
	d, lc := newLineDriver(t, nil, map[string]string{
		"a.test.line":     "ok a",
		"sub/b.test.line": "ok b",
	})

	// Overlapping patterns must not report a fixture twice.
	summary, err := d.Run(context.Background(), root, []string{"**/*.test.line", "**/*.line", "sub/*"})
	require.NoError(t, err)

	ids := []string{}
	for _, fr := range summary.Fixtures {
		ids = append(ids, fr.FixtureID)
	}
	assert.Equal(t, []string{"a.test.line", "sub/b.test.line"}, ids)
	assert.Equal(t, 2, lc.Calls())
}

func TestRun_FixtureIsolation(t *testing.T) {
	d, _ := newLineDriver(t, nil, map[string]string{
		"a.test.line": "ok before",
		"b.test.line": "ok partial\npanic checker exploded",
		"c.test.line": "error cannot parse",
		"d.test.line": "ok after",
	})

	summary, err := d.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	assert.True(t, summary.Fixture("a.test.line").OK())
	assert.True(t, summary.Fixture("d.test.line").OK())

	b := summary.Fixture("b.test.line").Assertions
	require.Len(t, b, 1)
	assert.Equal(t, ir.LoadErrorName, b[0].Name)
	assert.Contains(t, b[0].Message, "checker exploded")

	c := summary.Fixture("c.test.line").Assertions
	require.Len(t, c, 1)
	assert.Contains(t, c[0].Message, "cannot parse")

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Failed)
}

func TestRun_EmptyFixture(t *testing.T) {
	d, _ := newLineDriver(t, nil, map[string]string{"empty.test.line": "# nothing here\n"})

	summary, err := d.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	require.Len(t, summary.Fixtures, 1)
	assert.Empty(t, summary.Fixtures[0].Assertions)
	assert.True(t, summary.Fixtures[0].Sealed)
	assert.True(t, summary.OK())
}

func TestRun_NoFixtures(t *testing.T) {
	rec := &report.Recorder{}
	d, _ := newLineDriver(t, rec, map[string]string{"readme.md": "hi"})

	summary, err := d.Run(context.Background(), root, []string{"**/*.test.line"})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Total)
	assert.True(t, summary.Complete)
	assert.Equal(t, []string{"finish passed=0 failed=0 total=0"}, rec.Events())
}

func TestRun_Bail(t *testing.T) {
	files := map[string]string{
		"a.test.line": "ok a",
		"b.test.line": "fail b: broken",
		"c.test.line": "ok c",
		"d.test.line": "ok d",
	}

	for _, jobs := range []int{1, 4} {
		t.Run(fmt.Sprintf("jobs=%d", jobs), func(t *testing.T) {
			d, _ := newLineDriver(t, nil, files)
			d.Bail = true
			d.Jobs = jobs

			summary, err := d.Run(context.Background(), root, allFiles)
			require.NoError(t, err)

			require.Len(t, summary.Fixtures, 2)
			assert.Equal(t, "a.test.line", summary.Fixtures[0].FixtureID)
			assert.Equal(t, "b.test.line", summary.Fixtures[1].FixtureID)
			assert.True(t, summary.Complete)
			assert.Equal(t, 1, summary.Failed)
		})
	}
}

func TestRun_LocatorErrorAborts(t *testing.T) {
	rec := &report.Recorder{}
	d, _ := newLineDriver(t, rec, map[string]string{})

	summary, err := d.Run(context.Background(), "/does/not/exist", allFiles)

	var locErr *locator.LocatorError
	require.ErrorAs(t, err, &locErr)
	assert.Nil(t, summary)
	assert.Empty(t, rec.Events())
}

func TestRun_BadPatternAborts(t *testing.T) {
	d, _ := newLineDriver(t, nil, map[string]string{"a.test.line": "ok a"})

	_, err := d.Run(context.Background(), root, []string{"[a-"})

	var locErr *locator.LocatorError
	assert.ErrorAs(t, err, &locErr)
}

func TestRun_CancelledContext(t *testing.T) {
	rec := &report.Recorder{}
	d, lc := newLineDriver(t, rec, map[string]string{"a.test.line": "ok a", "b.test.line": "ok b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, jobs := range []int{1, 4} {
		d.Jobs = jobs
		_, err := d.Run(ctx, root, allFiles)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 0, lc.Calls())
	assert.NotContains(t, rec.Events(), "finish passed=0 failed=0 total=0")
}

func TestRun_CancelledMidFixtureReportsNoSyntheticFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFixtures(t, fs, root, map[string]string{"a.test.line": "ok a", "b.test.line": "ok b"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := checker.NewRegistry()
	require.NoError(t, reg.Register(checker.Func{Name: "line", Fn: func(ctx context.Context, _ checker.Source) ([]ir.AssertionResult, error) {
		cancel()
		return nil, ctx.Err()
	}}, ".test.line"))

	d := New(fs, reg, nil, nil)
	summary, err := d.Run(ctx, root, allFiles)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Fixtures, 1)
	assert.Equal(t, "a.test.line", summary.Fixtures[0].FixtureID)
	assert.Empty(t, summary.Fixtures[0].Assertions)
}

type finishFails struct {
	report.Nop
}

func (finishFails) Finish(*ir.RunSummary) error { return errors.New("disk full") }

func TestRun_ReportError(t *testing.T) {
	d, _ := newLineDriver(t, finishFails{}, map[string]string{"a.test.line": "ok a"})

	summary, err := d.Run(context.Background(), root, allFiles)

	var repErr *ReportError
	require.ErrorAs(t, err, &repErr)
	require.NotNil(t, summary)
	assert.True(t, summary.Complete)
	assert.Equal(t, 1, summary.Passed)
}

func TestRun_Idempotent(t *testing.T) {
	first, err := newScssDriver(t, nil).Run(context.Background(), root, allFiles)
	require.NoError(t, err)
	second, err := newScssDriver(t, nil).Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	d1, err := ir.SummaryDigest(first)
	require.NoError(t, err)
	d2, err := ir.SummaryDigest(second)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestRun_DefaultRunIDIsUUIDv7(t *testing.T) {
	d, _ := newLineDriver(t, nil, map[string]string{"a.test.line": "ok a"})
	d.RunIDs = nil

	summary, err := d.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	id, err := uuid.Parse(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRun_KindMarker(t *testing.T) {
	d, _ := newLineDriver(t, nil, map[string]string{
		"custom.txt": "# fixrun:kind=line\nok marked",
	})

	summary, err := d.Run(context.Background(), root, []string{"*.txt"})
	require.NoError(t, err)
	require.Len(t, summary.Fixtures, 1)
	assert.Equal(t, "marked", summary.Fixtures[0].Assertions[0].Name)
}

func TestRun_DuplicateNamesSuffixed(t *testing.T) {
	d, _ := newLineDriver(t, nil, map[string]string{"a.test.line": "ok same\nok same\nfail same: x"})

	summary, err := d.Run(context.Background(), root, allFiles)
	require.NoError(t, err)

	names := []string{}
	for _, a := range summary.Fixtures[0].Assertions {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"same", "same (2)", "same (3)"}, names)
}
