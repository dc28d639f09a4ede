package report

import (
	"fmt"
	"sync"

	"github.com/roach88/fixrun/internal/ir"
)

// Recorder keeps every event it receives as a flat log line.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	events  []string
	Summary *ir.RunSummary
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// Describe implements Reporter.
func (r *Recorder) Describe(fixture ir.FixturePath) Group {
	r.add("describe %s", fixture.ID)
	return &recorderGroup{r: r, id: fixture.ID}
}

// Finish implements Reporter.
func (r *Recorder) Finish(summary *ir.RunSummary) error {
	r.add("finish passed=%d failed=%d total=%d", summary.Passed, summary.Failed, summary.Total)
	r.mu.Lock()
	r.Summary = summary
	r.mu.Unlock()
	return nil
}

type recorderGroup struct {
	r  *Recorder
	id string
}

func (g *recorderGroup) It(result ir.AssertionResult) {
	status := "pass"
	if !result.Passed {
		status = "fail"
	}
	g.r.add("it %s %s %s", g.id, status, result.Name)
}

func (g *recorderGroup) End() {
	g.r.add("end %s", g.id)
}
