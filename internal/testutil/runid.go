package testutil

import "sync"

// FixedRunIDs returns predetermined run IDs for testing.
//
// Tests can provide a known sequence of IDs and compare reports byte for
// byte. Once the sequence is exhausted the last ID repeats.
//
// Thread-safety: FixedRunIDs is safe for concurrent use via internal mutex.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator that returns ids in order.
// With no ids it always returns "test-run-default".
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	if len(ids) == 0 {
		ids = []string{"test-run-default"}
	}
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
