package link

import (
	"sync"

	"github.com/google/uuid"
)

// BaseLink implements the receiver-set bookkeeping and fan-out every
// concrete Link driver embeds. Drivers call Receive themselves when a frame
// arrives off the wire; BaseLink's FanOut takes care of invoking every
// attached Receiver safely.
//
// Fan-out invariant, critical: FanOut snapshots the receiver list under
// the lock, releases it, then calls each receiver's OnReceive without
// holding it. Receivers may re-enter link operations (e.g. a router's ADV
// handler transmitting on another link whose delivery thread holds a
// different lock); holding this lock across callbacks would permit
// cross-lock deadlocks.
type BaseLink struct {
	mu        sync.Mutex
	receivers []Receiver

	idOnce sync.Once
	id     uuid.UUID
}

// ID returns a process-local identifier for this link instance, generated
// lazily on first use. It has no meaning off the wire; it exists so logs
// and bookkeeping can tell two links with the same driver apart without
// leaning on their (possibly reused) link-layer address.
func (b *BaseLink) ID() uuid.UUID {
	b.idOnce.Do(func() {
		b.id = uuid.New()
	})
	return b.id
}

// AttachReceiver registers r for ingress, if it isn't already attached.
func (b *BaseLink) AttachReceiver(r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.receivers {
		if existing == r {
			return
		}
	}
	b.receivers = append(b.receivers, r)
}

// DetachReceiver reverses AttachReceiver.
func (b *BaseLink) DetachReceiver(r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.receivers {
		if existing == r {
			b.receivers = append(b.receivers[:i], b.receivers[i+1:]...)
			return
		}
	}
}

// FanOut snapshots the receiver list and invokes each one outside the
// lock. Every concrete driver calls this with itself as self once a frame
// has arrived: directly from Receive (udplink) or from its own delivery
// goroutine (DummyLink, whose Receive only queues the frame).
func (b *BaseLink) FanOut(self Link, data []byte, srcLL string) {
	b.mu.Lock()
	snapshot := make([]Receiver, len(b.receivers))
	copy(snapshot, b.receivers)
	b.mu.Unlock()

	for _, r := range snapshot {
		r.OnReceive(self, data, srcLL)
	}
}
