package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/fixrun/internal/adapter"
	"github.com/roach88/fixrun/internal/aggregator"
	"github.com/roach88/fixrun/internal/checker"
	"github.com/roach88/fixrun/internal/ir"
	"github.com/roach88/fixrun/internal/locator"
	"github.com/roach88/fixrun/internal/report"
)

// Driver runs fixtures. Fields must not change while Run is in progress.
type Driver struct {
	Fs       afero.Fs
	Registry *checker.Registry
	Reporter report.Reporter
	Log      logrus.FieldLogger

	// Jobs is the number of fixtures evaluated concurrently. Values below
	// 2 run sequentially, streaming results as the checker produces them.
	Jobs int

	// Bail stops the run after the first fixture with a failing result.
	// Fixtures after it are not reported.
	Bail bool

	// RunIDs defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
}

// New creates a sequential Driver.
func New(fs afero.Fs, registry *checker.Registry, reporter report.Reporter, log logrus.FieldLogger) *Driver {
	return &Driver{
		Fs:       fs,
		Registry: registry,
		Reporter: reporter,
		Log:      log,
		Jobs:     1,
	}
}

// ReportError wraps a failure of Reporter.Finish. The run itself completed
// and the summary returned alongside it is valid.
type ReportError struct {
	Err error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("finish report: %v", e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// Run executes every fixture under rootDir matching any of patterns.
//
// It returns the summary of the run. A *locator.LocatorError or
// *aggregator.AggregatorError aborts the run. A cancelled context stops
// scheduling further fixtures; the partial summary is returned with the
// context error. A failing Reporter.Finish returns the complete summary
// with a *ReportError.
func (d *Driver) Run(ctx context.Context, rootDir string, patterns []string) (*ir.RunSummary, error) {
	runID := d.runIDs().Generate()
	log := d.log().WithField("run_id", runID)

	fixtures, err := locator.LocateAll(d.fs(), rootDir, patterns)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"root":     rootDir,
		"patterns": patterns,
		"fixtures": len(fixtures),
		"jobs":     d.jobs(),
	}).Info("starting run")

	agg := aggregator.New()
	if d.jobs() > 1 && len(fixtures) > 1 {
		err = d.runParallel(ctx, log, agg, fixtures)
	} else {
		err = d.runSequential(ctx, log, agg, fixtures)
	}

	summary := agg.Summary()
	summary.RunID = runID
	if err != nil {
		return summary, err
	}

	log.WithFields(logrus.Fields{
		"total":  summary.Total,
		"passed": summary.Passed,
		"failed": summary.Failed,
	}).Info("run finished")

	if err := d.reporter().Finish(summary); err != nil {
		return summary, &ReportError{Err: err}
	}
	return summary, nil
}

func (d *Driver) runSequential(ctx context.Context, log logrus.FieldLogger, agg *aggregator.Aggregator, fixtures []ir.FixturePath) error {
	for _, fx := range fixtures {
		if err := ctx.Err(); err != nil {
			return err
		}
		failed, err := d.release(agg, fx, d.results(ctx, fx))
		if err != nil {
			return err
		}
		if failed && d.Bail {
			log.WithField("fixture", fx.ID).Info("bailing after failing fixture")
			return nil
		}
	}
	return nil
}

// outcome is the buffered result of one fixture evaluated in parallel.
type outcome struct {
	results []ir.AssertionResult
	done    chan struct{}
}

func (d *Driver) runParallel(ctx context.Context, log logrus.FieldLogger, agg *aggregator.Aggregator, fixtures []ir.FixturePath) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]*outcome, len(fixtures))
	for i := range outcomes {
		outcomes[i] = &outcome{done: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(d.jobs())

	scheduled := make(chan struct{})
	go func() {
		defer close(scheduled)
		for i, fx := range fixtures {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				defer close(outcomes[i].done)
				if gctx.Err() != nil {
					return nil
				}
				outcomes[i].results = slices.Collect(d.results(gctx, fx))
				return nil
			})
		}
	}()

	var runErr error
	for i, fx := range fixtures {
		select {
		case <-outcomes[i].done:
		case <-runCtx.Done():
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		failed, err := d.release(agg, fx, slices.Values(outcomes[i].results))
		if err != nil {
			runErr = err
			break
		}
		if failed && d.Bail {
			log.WithField("fixture", fx.ID).Info("bailing after failing fixture")
			break
		}
	}

	cancel()
	<-scheduled
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// release records a fixture's results and pushes them to the reporter.
// It reports whether any result failed.
func (d *Driver) release(agg *aggregator.Aggregator, fx ir.FixturePath, results iter.Seq[ir.AssertionResult]) (bool, error) {
	agg.Expect(fx.ID)
	group := d.reporter().Describe(fx)

	failed := false
	for r := range results {
		if err := agg.Record(fx.ID, r); err != nil {
			group.End()
			return failed, err
		}
		group.It(r)
		if !r.Passed {
			failed = true
		}
	}
	group.End()

	return failed, agg.Seal(fx.ID)
}

// results resolves the fixture's checker and returns its result stream.
// Resolution failures become a single synthetic failure.
func (d *Driver) results(ctx context.Context, fx ir.FixturePath) iter.Seq[ir.AssertionResult] {
	ad := adapter.New(d.fs(), d.log())

	head, err := ad.Head(fx)
	if err != nil {
		return d.loadFailure(fx, &adapter.AdapterError{FixtureID: fx.ID, Cause: fmt.Errorf("read fixture: %w", err)})
	}

	plugin, err := d.registry().Resolve(fx, head)
	if err != nil {
		return d.loadFailure(fx, err)
	}
	return ad.Execute(ctx, fx, plugin)
}

func (d *Driver) loadFailure(fx ir.FixturePath, err error) iter.Seq[ir.AssertionResult] {
	entry := d.log().WithField("fixture", fx.ID).WithError(err)
	var unknown *checker.UnknownKindError
	if errors.As(err, &unknown) {
		entry = entry.WithField("kind", unknown.Kind)
	}
	entry.Warn("fixture could not be evaluated")

	return slices.Values([]ir.AssertionResult{ir.LoadFailure(fx.ID, err)})
}

func (d *Driver) fs() afero.Fs {
	if d.Fs == nil {
		return afero.NewOsFs()
	}
	return d.Fs
}

func (d *Driver) registry() *checker.Registry {
	if d.Registry == nil {
		return checker.NewRegistry()
	}
	return d.Registry
}

func (d *Driver) reporter() report.Reporter {
	if d.Reporter == nil {
		return report.Nop{}
	}
	return d.Reporter
}

func (d *Driver) log() logrus.FieldLogger {
	if d.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return d.Log
}

func (d *Driver) runIDs() RunIDGenerator {
	if d.RunIDs == nil {
		return UUIDv7Generator{}
	}
	return d.RunIDs
}

func (d *Driver) jobs() int {
	if d.Jobs < 1 {
		return 1
	}
	return d.Jobs
}
