// Package linkmanager wraps a (receiver, set of links) pair so a Router can
// pass itself once and have its single receiver bound to every present and
// future link uniformly.
package linkmanager

import (
	"log/slog"
	"sync"

	"github.com/deavmi/twine/internal/xlog"
	"github.com/deavmi/twine/link"
)

// LinkManager serialises registration of links against a single shared
// receiver.
type LinkManager struct {
	mu       sync.Mutex
	receiver link.Receiver
	links    []link.Link
	log      *slog.Logger
}

// New creates a LinkManager that will attach r to every link it is given.
func New(r link.Receiver) *LinkManager {
	return &LinkManager{receiver: r, log: xlog.With("linkmanager")}
}

// AddLink records l and attaches the manager's receiver to it.
func (m *LinkManager) AddLink(l link.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, l)
	l.AttachReceiver(m.receiver)
	m.log.Info("link attached", "link_id", l.ID(), "address", l.Address())
}

// RemoveLink detaches the manager's receiver from l and forgets it.
func (m *LinkManager) RemoveLink(l link.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.links {
		if existing == l {
			m.links = append(m.links[:i], m.links[i+1:]...)
			break
		}
	}
	l.DetachReceiver(m.receiver)
	m.log.Info("link detached", "link_id", l.ID(), "address", l.Address())
}

// Links returns a snapshot copy of the currently managed links.
func (m *LinkManager) Links() []link.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]link.Link, len(m.links))
	copy(out, m.links)
	return out
}
