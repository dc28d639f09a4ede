// Package sasstrue checks SCSS fixtures written with the True unit testing
// library.
//
// A fixture is compiled with a Sass compiler and the CSS comments True emits
// are read back as results: one result per True test, named
// "<module> :: <test>", failing when any assertion of the test failed.
package sasstrue

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/ir"
)

// Kind is the fixture kind served by this checker.
const Kind = "scss"

// Suffixes are the filenames that declare Kind.
var Suffixes = []string{".test.scss", ".spec.scss"}

// Checker compiles SCSS fixtures and reads True's report from the output.
type Checker struct {
	Compiler Compiler

	// LoadPaths are searched for imports after the fixture's own directory.
	LoadPaths []string
}

// New creates a Checker.
func New(compiler Compiler, loadPaths ...string) *Checker {
	return &Checker{Compiler: compiler, LoadPaths: loadPaths}
}

// Kind implements checker.Plugin.
func (c *Checker) Kind() string { return Kind }

// Parse implements checker.Plugin.
func (c *Checker) Parse(ctx context.Context, src checker.Source) ([]ir.AssertionResult, error) {
	loadPaths := make([]string, 0, len(c.LoadPaths)+1)
	loadPaths = append(loadPaths, filepath.Dir(src.Path))
	loadPaths = append(loadPaths, c.LoadPaths...)

	css, err := c.Compiler.Compile(ctx, src.Content, loadPaths)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	results, err := ParseCSS(src.ID, string(css))
	if err != nil {
		return nil, err
	}
	return results, nil
}
