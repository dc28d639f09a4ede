package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/roach88/fixrun/internal/checker/sasstrue"
	"github.com/roach88/fixrun/internal/testutil"
)

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
	passingYAML = `description: arithmetic
vars:
  a: 1
tests:
  - name: adds
    expect: a + 1 == 2
`
)

// scssProject is the three-fixture project: a passes twice, b fails once
// and c has no checker.
var scssProject = map[string]string{
	"a.test.scss": "@include passing;",
	"b.test.scss": "@include failing;",
	"c.bad":       "???",
}

// scssPatterns select every fixture of scssProject.
var scssPatterns = []string{"--pattern", "**/*.test.scss", "--pattern", "**/*.bad"}

// fakeSass answers with canned True output keyed by fixture source.
var fakeSass = sasstrue.CompilerFunc(func(_ context.Context, src []byte, _ []string) ([]byte, error) {
	switch string(src) {
	case "@include passing;":
		return []byte(passingCSS), nil
	case "@include failing;":
		return []byte(failingCSS), nil
	}
	return nil, fmt.Errorf("Undefined mixin %q", string(src))
})

// project writes files into a fresh directory and makes it the working
// directory for the rest of the test.
func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFixtures(t, afero.NewOsFs(), dir, files)
	t.Chdir(dir)
	return dir
}

// execute runs the root command with test doubles for sass, run IDs and
// the clock.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	opts := &RootOptions{
		compiler: fakeSass,
		runIDs:   testutil.NewFixedRunIDs("run-1", "run-2"),
		now:      testutil.NewDeterministicClock(testutil.DefaultEpoch, time.Second).Now,
	}
	cmd := newRootCommand(opts)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
