package route

import (
	"sync"

	"github.com/deavmi/twine/identity"
)

// Table is the destination -> Route map (exactly one route per
// destination at any time), protected by its own per-Router lock.
type Table struct {
	mu     sync.Mutex
	routes map[identity.NL]*Route
}

// NewTable builds an empty table and installs the self-route.
func NewTable(self identity.NL) *Table {
	t := &Table{routes: make(map[identity.NL]*Route)}
	t.routes[self] = NewSelfRoute(self)
	return t
}

// Install arbitrates a candidate route against the table: insert if
// absent, replace if strictly better, refresh if identical, otherwise
// drop. It reports whether the table changed.
func (t *Table) Install(candidate *Route) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.routes[candidate.Destination]
	if !ok {
		t.routes[candidate.Destination] = candidate
		return true
	}
	if candidate.Distance < existing.Distance {
		t.routes[candidate.Destination] = candidate
		return true
	}
	if candidate.Equal(existing) {
		existing.Refresh()
		return false
	}
	// Strictly worse or equal-but-different: dropped.
	return false
}

// Lookup returns the route to dest, if any.
func (t *Table) Lookup(dest identity.NL) (*Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.routes[dest]
	return r, ok
}

// Snapshot returns a copy of every route currently in the table.
func (t *Table) Snapshot() []*Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	return out
}

// Sweep removes every expired route (the self-route is exempt, see
// Route.HasExpired) and reports how many were removed.
func (t *Table) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for dest, r := range t.routes {
		if r.HasExpired() {
			delete(t.routes, dest)
			removed++
		}
	}
	return removed
}
