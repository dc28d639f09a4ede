// Package locator resolves glob patterns against a search root into an
// ordered list of fixture files.
//
// Patterns use gobwas/glob syntax with '/' as the separator:
//
//	*            any run of characters except '/'
//	**           any run of characters, including '/'
//	?            one character
//	[abc] [a-z]  character classes
//	{a,b}        alternatives
//
// A "**/" segment also matches zero directories, so "**/*.test.scss"
// finds "a.test.scss" at the root as well as "x/y/a.test.scss".
//
// Results are sorted by fixture ID regardless of directory enumeration
// order, so reports are stable across runs and file systems.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/roach88/fixrun/internal/ir"
)

// LocatorError is returned when fixtures cannot be located at all.
// It is fatal to a run: there is nothing to test.
type LocatorError struct {
	Root    string
	Pattern string
	Err     error
}

func (e *LocatorError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("locate %q in %s: %v", e.Pattern, e.Root, e.Err)
	}
	return fmt.Sprintf("locate in %s: %v", e.Root, e.Err)
}

func (e *LocatorError) Unwrap() error {
	return e.Err
}

// ErrNotDirectory is wrapped by a LocatorError when the root is a file.
var ErrNotDirectory = errors.New("not a directory")

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"node_modules": true,
}

// Locate resolves one pattern against rootDir.
// Returns an empty slice (not an error) when nothing matches.
func Locate(fs afero.Fs, rootDir, pattern string) ([]ir.FixturePath, error) {
	return LocateAll(fs, rootDir, []string{pattern})
}

// LocateAll resolves several patterns against rootDir and returns their
// union. A file matched by more than one pattern is listed once.
func LocateAll(fs afero.Fs, rootDir string, patterns []string) ([]ir.FixturePath, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, &LocatorError{Root: rootDir, Err: err}
	}

	info, err := fs.Stat(root)
	if err != nil {
		return nil, &LocatorError{Root: rootDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &LocatorError{Root: rootDir, Err: ErrNotDirectory}
	}

	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		compiled, err := compile(pattern)
		if err != nil {
			return nil, &LocatorError{Root: rootDir, Pattern: pattern, Err: err}
		}
		matchers = append(matchers, compiled...)
	}

	fixtures := []ir.FixturePath{}
	walkRoot := walkRootOf(fs, root)
	err = afero.Walk(fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != walkRoot && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)

		for _, m := range matchers {
			if m.Match(id) {
				fixtures = append(fixtures, ir.FixturePath{Path: path, ID: id})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, &LocatorError{Root: rootDir, Err: err}
	}

	sort.Slice(fixtures, func(i, j int) bool {
		return fixtures[i].ID < fixtures[j].ID
	})
	return fixtures, nil
}

// walkRootOf returns the path to walk for root. Walk lstats its root, so a
// symlinked root is walked through a trailing separator, which resolves
// the link while paths and IDs stay under root as given.
func walkRootOf(fs afero.Fs, root string) string {
	lst, ok := fs.(afero.Lstater)
	if !ok {
		return root
	}
	info, _, err := lst.LstatIfPossible(root)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return root
	}
	return root + string(filepath.Separator)
}

// skipDir reports whether a directory is excluded from traversal.
func skipDir(name string) bool {
	return skippedDirs[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// compile builds the matchers for one pattern, one per globstar expansion.
func compile(pattern string) ([]glob.Glob, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("empty pattern")
	}

	var out []glob.Glob
	for _, variant := range expandGlobstar(filepath.ToSlash(pattern)) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// expandGlobstar returns every variant of pattern in which each "**/"
// segment is either kept or removed, so globstars can match zero
// directories.
func expandGlobstar(pattern string) []string {
	idx := strings.Index(pattern, "**/")
	if idx < 0 || (idx > 0 && pattern[idx-1] != '/') {
		return []string{pattern}
	}

	head := pattern[:idx]
	var out []string
	for _, tail := range expandGlobstar(pattern[idx+3:]) {
		out = append(out, head+"**/"+tail, head+tail)
	}
	return out
}
