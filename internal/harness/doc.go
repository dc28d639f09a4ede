// Package harness drives a fixture run end to end.
//
// A run locates fixtures under a root directory, resolves each fixture's
// checker from its declared kind, executes it through the adapter, records
// every result in the aggregator and pushes it to the reporter, then seals
// the fixture. The terminal summary goes to Reporter.Finish and back to the
// caller.
//
// # Failure handling
//
// Only two errors abort a run:
//
//   - *locator.LocatorError: the root or a pattern is unusable.
//   - *aggregator.AggregatorError: the driver broke its own contract.
//
// Everything that goes wrong inside one fixture (unknown kind, unreadable
// file, checker error or panic) becomes a synthetic failing result named
// "<fixture-load-error>" and the run continues.
//
// # Ordering
//
// Fixtures are reported in locator order. With Jobs > 1 fixtures are
// evaluated concurrently, but each fixture's results are buffered and
// released in locator order, so reports are identical to a sequential run.
//
// # Example
//
//	d := harness.New(afero.NewOsFs(), registry, report.NewText(os.Stdout), log)
//	d.Jobs = 4
//	summary, err := d.Run(ctx, "./styles", []string{"**/*.test.scss"})
package harness
