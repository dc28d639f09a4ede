// Package checker defines the plugin boundary between the harness and the
// evaluators that understand one fixture kind each.
//
// A checker is selected by the fixture's declared kind. The kind is taken
// from an embedded marker near the top of the file,
//
//	// fixrun:kind=yaml
//
// or, when no marker is present, from the longest registered filename
// suffix (".test.scss", ".test.yaml", ...).
package checker

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/fixrun/internal/ir"
)

// MarkerWindow is how many leading bytes of a fixture are searched for an
// embedded kind marker.
const MarkerWindow = 512

// markerPattern matches "fixrun:kind=<kind>" anywhere in the marker window.
var markerPattern = regexp.MustCompile(`fixrun:kind=([A-Za-z0-9_-]+)`)

// Source is one fixture handed to a checker.
type Source struct {
	// ID is the fixture identity results must carry.
	ID string

	// Path is the absolute path of the fixture, for relative imports and
	// diagnostics. Checkers must not re-read it; Content is authoritative.
	Path string

	Content []byte
}

// Plugin evaluates fixtures of one kind.
//
// Parse returns results in the order the assertions are declared in the
// fixture. An error means the fixture could not be evaluated at all.
type Plugin interface {
	Kind() string
	Parse(ctx context.Context, src Source) ([]ir.AssertionResult, error)
}

// Streamer is implemented by plugins that can yield results while the
// fixture is still being evaluated. A non-nil error ends the stream.
type Streamer interface {
	Stream(ctx context.Context, src Source) iter.Seq2[ir.AssertionResult, error]
}

// UnknownKindError is returned when no plugin is registered for a fixture.
type UnknownKindError struct {
	FixtureID string
	Kind      string // empty when no kind could be determined
}

func (e *UnknownKindError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("no checker registered for fixture %s", e.FixtureID)
	}
	return fmt.Sprintf("no checker registered for kind %q (fixture %s)", e.Kind, e.FixtureID)
}

// Registry maps kinds to plugins and filename suffixes to kinds.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]Plugin
	suffixes map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]Plugin),
		suffixes: make(map[string]string),
	}
}

// Register adds a plugin and the filename suffixes that declare its kind.
// Registering a kind twice replaces the earlier plugin.
func (r *Registry) Register(p Plugin, suffixes ...string) error {
	kind := p.Kind()
	if kind == "" {
		return fmt.Errorf("register checker: kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range suffixes {
		if s == "" {
			return fmt.Errorf("register checker %q: empty suffix", kind)
		}
		if owner, ok := r.suffixes[s]; ok && owner != kind {
			return fmt.Errorf("register checker %q: suffix %q already claimed by %q", kind, s, owner)
		}
	}

	r.plugins[kind] = p
	for _, s := range suffixes {
		r.suffixes[s] = kind
	}
	return nil
}

// Lookup returns the plugin registered for kind.
func (r *Registry) Lookup(kind string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[kind]
	return p, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.plugins))
	for k := range r.plugins {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// KindOf determines the declared kind of a fixture from its leading bytes
// and filename. Returns "" when neither declares a kind.
func (r *Registry) KindOf(path string, head []byte) string {
	if len(head) > MarkerWindow {
		head = head[:MarkerWindow]
	}
	if m := markerPattern.FindSubmatch(head); m != nil {
		return string(bytes.TrimSpace(m[1]))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	kind := ""
	for suffix, k := range r.suffixes {
		if strings.HasSuffix(path, suffix) && len(suffix) > len(best) {
			best, kind = suffix, k
		}
	}
	return kind
}

// Resolve selects the plugin for a fixture.
// Returns *UnknownKindError when no plugin serves its declared kind.
func (r *Registry) Resolve(fixture ir.FixturePath, head []byte) (Plugin, error) {
	kind := r.KindOf(fixture.Path, head)
	if kind == "" {
		return nil, &UnknownKindError{FixtureID: fixture.ID}
	}
	p, ok := r.Lookup(kind)
	if !ok {
		return nil, &UnknownKindError{FixtureID: fixture.ID, Kind: kind}
	}
	return p, nil
}

// Func adapts a function to the Plugin interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context, src Source) ([]ir.AssertionResult, error)
}

// Kind implements Plugin.
func (f Func) Kind() string { return f.Name }

// Parse implements Plugin.
func (f Func) Parse(ctx context.Context, src Source) ([]ir.AssertionResult, error) {
	return f.Fn(ctx, src)
}
