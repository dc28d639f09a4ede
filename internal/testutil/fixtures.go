package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/ir"
)

// WriteFixtures writes files below root. Keys are slash-separated paths
// relative to root.
func WriteFixtures(t testing.TB, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// LineChecker is a fake plugin with a one-line-per-assertion format:
//
//	ok <name>
//	fail <name>: <message>
//	error <message>    the fixture cannot be evaluated
//	panic <message>    the checker panics
//
// Blank lines and lines starting with '#' are ignored.
type LineChecker struct {
	Name string

	calls atomic.Int64
}

// NewLineChecker creates a LineChecker for kind.
func NewLineChecker(kind string) *LineChecker {
	return &LineChecker{Name: kind}
}

// Calls returns how many fixtures were parsed.
func (c *LineChecker) Calls() int {
	return int(c.calls.Load())
}

// Kind implements checker.Plugin.
func (c *LineChecker) Kind() string { return c.Name }

// Parse implements checker.Plugin.
func (c *LineChecker) Parse(_ context.Context, src checker.Source) ([]ir.AssertionResult, error) {
	c.calls.Add(1)

	results := []ir.AssertionResult{}
	for i, line := range strings.Split(string(src.Content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		switch verb {
		case "ok":
			results = append(results, ir.Pass(src.ID, rest))
		case "fail":
			name, msg, _ := strings.Cut(rest, ":")
			results = append(results, ir.Fail(src.ID, strings.TrimSpace(name), strings.TrimSpace(msg)))
		case "error":
			return nil, fmt.Errorf("%s", rest)
		case "panic":
			panic(rest)
		default:
			return nil, fmt.Errorf("line %d: unknown verb %q", i+1, verb)
		}
	}
	return results, nil
}
