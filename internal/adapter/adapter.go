// Package adapter runs one fixture through its checker plugin and turns the
// outcome into a stream of assertion results.
//
// A fixture that cannot be evaluated never aborts a run: read failures,
// checker errors and checker panics are all reported as a single synthetic
// failing result named "<fixture-load-error>".
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/ir"
)

// AdapterError records why a fixture could not be evaluated.
type AdapterError struct {
	FixtureID string
	Cause     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("fixture %s: %v", e.FixtureID, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// errStopped signals that the consumer stopped ranging early.
var errStopped = errors.New("consumer stopped")

// Adapter executes fixtures. The zero value reads from the OS file system.
type Adapter struct {
	Fs  afero.Fs
	Log logrus.FieldLogger
}

// New creates an Adapter reading fixtures through fs.
func New(fs afero.Fs, log logrus.FieldLogger) *Adapter {
	return &Adapter{Fs: fs, Log: log}
}

func (a *Adapter) fs() afero.Fs {
	if a.Fs == nil {
		return afero.NewOsFs()
	}
	return a.Fs
}

func (a *Adapter) log() logrus.FieldLogger {
	if a.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return a.Log
}

// Head returns up to checker.MarkerWindow leading bytes of a fixture, for
// kind resolution.
func (a *Adapter) Head(fixture ir.FixturePath) ([]byte, error) {
	f, err := a.fs().Open(fixture.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, checker.MarkerWindow)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Execute returns the assertion results of one fixture as a lazy sequence.
//
// Results arrive in declaration order. The sequence is restartable: every
// range re-reads the fixture and re-invokes the checker, and yields the same
// results for the same file and checker. Duplicate assertion names are made
// unique by suffixing " (2)", " (3)", ... in encounter order.
func (a *Adapter) Execute(ctx context.Context, fixture ir.FixturePath, plugin checker.Plugin) iter.Seq[ir.AssertionResult] {
	return func(yield func(ir.AssertionResult) bool) {
		names := make(map[string]bool)
		stopped := false

		emit := func(r ir.AssertionResult) bool {
			r.FixtureID = fixture.ID
			r.Name = uniqueName(names, ir.NormalizeName(r.Name))
			if !yield(r) {
				stopped = true
				return false
			}
			return true
		}

		err := a.run(ctx, fixture, plugin, emit)
		if err == nil || stopped || cancelled(ctx, err) {
			return
		}

		a.log().WithFields(logrus.Fields{
			"fixture": fixture.ID,
			"kind":    plugin.Kind(),
		}).WithError(err).Warn("fixture could not be evaluated")

		yield(ir.LoadFailure(fixture.ID, err))
	}
}

// Collect runs a fixture to completion. The returned error is the
// *AdapterError behind a synthetic failure, if any; the synthetic result is
// included in the slice unless the error is ctx's cancellation.
func (a *Adapter) Collect(ctx context.Context, fixture ir.FixturePath, plugin checker.Plugin) ([]ir.AssertionResult, error) {
	var (
		results []ir.AssertionResult
		loadErr error
	)
	names := make(map[string]bool)
	emit := func(r ir.AssertionResult) bool {
		r.FixtureID = fixture.ID
		r.Name = uniqueName(names, ir.NormalizeName(r.Name))
		results = append(results, r)
		return true
	}
	if err := a.run(ctx, fixture, plugin, emit); err != nil {
		loadErr = err
		if !cancelled(ctx, err) {
			results = append(results, ir.LoadFailure(fixture.ID, err))
		}
	}
	return results, loadErr
}

// cancelled reports whether err is ctx's own cancellation. A cancelled
// fixture is not a broken one and gets no synthetic failure.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// run evaluates the fixture, passing each result to emit. A returned error
// is always an *AdapterError, or errStopped when emit asked to stop.
func (a *Adapter) run(ctx context.Context, fixture ir.FixturePath, plugin checker.Plugin, emit func(ir.AssertionResult) bool) (err error) {
	wrap := func(cause error) error {
		return &AdapterError{FixtureID: fixture.ID, Cause: cause}
	}

	if err := ctx.Err(); err != nil {
		return wrap(err)
	}

	content, err := afero.ReadFile(a.fs(), fixture.Path)
	if err != nil {
		return wrap(fmt.Errorf("read fixture: %w", err))
	}
	src := checker.Source{ID: fixture.ID, Path: fixture.Path, Content: content}

	a.log().WithFields(logrus.Fields{
		"fixture": fixture.ID,
		"kind":    plugin.Kind(),
		"bytes":   len(content),
	}).Debug("executing fixture")

	// A panic raised by the consumer while inside emit is not the
	// checker's fault and must propagate unchanged.
	inEmit := false
	defer func() {
		if r := recover(); r != nil {
			if inEmit {
				panic(r)
			}
			err = wrap(fmt.Errorf("checker %q panicked: %v", plugin.Kind(), r))
		}
	}()
	send := func(r ir.AssertionResult) bool {
		inEmit = true
		ok := emit(r)
		inEmit = false
		return ok
	}

	if s, ok := plugin.(checker.Streamer); ok {
		for r, serr := range s.Stream(ctx, src) {
			if serr != nil {
				return wrap(serr)
			}
			if !send(r) {
				return errStopped
			}
		}
		return nil
	}

	results, perr := plugin.Parse(ctx, src)
	if perr != nil {
		return wrap(perr)
	}
	for _, r := range results {
		if !send(r) {
			return errStopped
		}
	}
	return nil
}

// uniqueName returns name, or name with the smallest free " (n)" suffix
// when name was already used in this fixture.
func uniqueName(seen map[string]bool, name string) string {
	candidate := name
	for n := 2; seen[candidate]; n++ {
		candidate = name + " (" + strconv.Itoa(n) + ")"
	}
	seen[candidate] = true
	return candidate
}
