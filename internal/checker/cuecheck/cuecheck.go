// Package cuecheck checks CUE fixtures. Each field of the top-level tests
// struct is one assertion with a concrete value and a constraint:
//
//	tests: {
//		"adds":     {got: 1 + 1, want: 2}
//		"positive": {got: 3, want: >0}
//	}
//
// An assertion passes when got is concrete and unifying it with want leaves
// it unchanged.
package cuecheck

import (
	"context"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/ir"
)

// Kind is the fixture kind served by this checker.
const Kind = "cue"

// Suffixes are the filenames that declare Kind.
var Suffixes = []string{".test.cue", ".spec.cue"}

// Checker evaluates CUE fixtures.
type Checker struct{}

// New creates a Checker.
func New() *Checker {
	return &Checker{}
}

// Kind implements checker.Plugin.
func (c *Checker) Kind() string { return Kind }

// Parse implements checker.Plugin.
//
// A fixture that does not compile or has no tests struct is an error.
// Problems inside one test fail only that test.
func (c *Checker) Parse(ctx context.Context, src checker.Source) ([]ir.AssertionResult, error) {
	cctx := cuecontext.New()
	v := cctx.CompileBytes(src.Content, cue.Filename(src.Path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}

	tests := v.LookupPath(cue.ParsePath("tests"))
	if !tests.Exists() {
		return nil, fmt.Errorf("missing tests struct")
	}
	if tests.IncompleteKind() != cue.StructKind {
		return nil, fmt.Errorf("tests must be a struct, got %v", tests.IncompleteKind())
	}

	iter, err := tests.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate tests: %w", err)
	}

	results := []ir.AssertionResult{}
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, evaluate(src.ID, iter.Label(), iter.Value()))
	}
	return results, nil
}

func evaluate(fixtureID, name string, test cue.Value) ir.AssertionResult {
	got := test.LookupPath(cue.ParsePath("got"))
	want := test.LookupPath(cue.ParsePath("want"))
	if !got.Exists() {
		return ir.Fail(fixtureID, name, "missing got")
	}
	if !want.Exists() {
		return ir.Fail(fixtureID, name, "missing want")
	}

	if err := got.Validate(cue.Concrete(true)); err != nil {
		return ir.Fail(fixtureID, name, fmt.Sprintf("got is not concrete: %v", err))
	}

	unified := got.Unify(want)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return ir.Fail(fixtureID, name, fmt.Sprintf("got %v, want %v: %v", got, want, err))
	}
	if !unified.Equals(got) {
		return ir.Fail(fixtureID, name, fmt.Sprintf("got %v, want %v", got, want))
	}
	return ir.Pass(fixtureID, name)
}
