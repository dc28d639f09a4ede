// Package yamlcheck checks YAML fixtures whose assertions are boolean
// expr-lang expressions:
//
//	description: optional
//	vars: {a: 1}
//	tests:
//	  - name: adds
//	    expect: "a + 1 == 2"
//	    message: optional failure text
//
// Fixtures are validated against the schema reflected from Fixture before
// any expression runs. Expressions are compiled and run one at a time as
// the result stream is consumed.
package yamlcheck

import (
	"context"
	"fmt"
	"iter"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/ir"
)

// Kind is the fixture kind served by this checker.
const Kind = "yaml"

// Suffixes are the filenames that declare Kind.
var Suffixes = []string{".test.yaml", ".spec.yaml", ".test.yml", ".spec.yml"}

// Checker evaluates YAML fixtures.
type Checker struct{}

// New creates a Checker.
func New() *Checker {
	return &Checker{}
}

// Kind implements checker.Plugin.
func (c *Checker) Kind() string { return Kind }

// Parse implements checker.Plugin.
func (c *Checker) Parse(ctx context.Context, src checker.Source) ([]ir.AssertionResult, error) {
	results := []ir.AssertionResult{}
	for r, err := range c.Stream(ctx, src) {
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Stream implements checker.Streamer.
func (c *Checker) Stream(ctx context.Context, src checker.Source) iter.Seq2[ir.AssertionResult, error] {
	return func(yield func(ir.AssertionResult, error) bool) {
		fx, err := Load(src.Content)
		if err != nil {
			yield(ir.AssertionResult{}, err)
			return
		}

		env := fx.Vars
		if env == nil {
			env = map[string]any{}
		}

		for _, t := range fx.Tests {
			if err := ctx.Err(); err != nil {
				yield(ir.AssertionResult{}, err)
				return
			}
			if !yield(evaluate(src.ID, t, env), nil) {
				return
			}
		}
	}
}

// Load decodes and validates a fixture.
func Load(content []byte) (*Fixture, error) {
	var doc any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse yaml: empty document")
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var fx Fixture
	if err := yaml.Unmarshal(content, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

// evaluate runs one test. Expression errors fail the test, not the fixture.
func evaluate(fixtureID string, t Test, env map[string]any) ir.AssertionResult {
	program, err := expr.Compile(t.Expect, expr.Env(env), expr.AsBool())
	if err != nil {
		return ir.Fail(fixtureID, t.Name, fmt.Sprintf("compile %q: %v", t.Expect, err))
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return ir.Fail(fixtureID, t.Name, fmt.Sprintf("evaluate %q: %v", t.Expect, err))
	}

	if ok, _ := output.(bool); ok {
		return ir.Pass(fixtureID, t.Name)
	}
	msg := t.Message
	if msg == "" {
		msg = fmt.Sprintf("expected %s", t.Expect)
	}
	return ir.Fail(fixtureID, t.Name, msg)
}
