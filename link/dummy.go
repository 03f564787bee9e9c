package link

import (
	"fmt"
	"sync"
)

// DummyHub is the loopback/test-pipe driver's broadcast domain: a shared
// medium that any number of DummyLinks can join.
//
// It stands in for a concrete link driver: the core router never knows
// it isn't talking to a real IPv6 link-local multicast segment.
type DummyHub struct {
	mu      sync.Mutex
	members map[string]*DummyLink
}

// NewDummyHub creates an empty broadcast domain.
func NewDummyHub() *DummyHub {
	return &DummyHub{members: make(map[string]*DummyLink)}
}

// Join creates a new DummyLink with link-layer address addr attached to
// this hub.
func (h *DummyHub) Join(addr string) *DummyLink {
	l := newDummyLink(h, addr)
	h.mu.Lock()
	h.members[addr] = l
	h.mu.Unlock()
	return l
}

// NewDummyLinkPair is a convenience for the common back-to-back two-node
// topology: two DummyLinks on a fresh hub, addressed by the given strings.
func NewDummyLinkPair(addrA, addrB string) (*DummyLink, *DummyLink) {
	h := NewDummyHub()
	return h.Join(addrA), h.Join(addrB)
}

// inboundFrame is one frame waiting to be fanned out by a DummyLink's
// drain goroutine, in arrival order.
type inboundFrame struct {
	data  []byte
	srcLL string
}

// DummyLink is an in-memory Link implementation. Each DummyLink owns one
// dedicated drain goroutine reading off an inbox queue, the same way a
// real driver has exactly one receive thread; Transmit/Broadcast enqueue
// onto the destination's inbox rather than invoking its receivers
// directly, so frames arriving concurrently from several senders are
// still delivered to OnReceive one at a time, in the order they were
// enqueued. A full inbox blocks the sender, the same back-pressure a
// slow handler would apply to a real driver's read loop.
type DummyLink struct {
	BaseLink
	hub  *DummyHub
	addr string

	inbox chan inboundFrame
}

var _ Link = (*DummyLink)(nil)

func newDummyLink(hub *DummyHub, addr string) *DummyLink {
	d := &DummyLink{hub: hub, addr: addr, inbox: make(chan inboundFrame, 64)}
	go d.drain()
	return d
}

func (d *DummyLink) drain() {
	for frame := range d.inbox {
		d.FanOut(d, frame.data, frame.srcLL)
	}
}

func (d *DummyLink) Address() string {
	return d.addr
}

func (d *DummyLink) Transmit(b []byte, dstLL string) error {
	d.hub.mu.Lock()
	target, ok := d.hub.members[dstLL]
	d.hub.mu.Unlock()
	if !ok {
		return fmt.Errorf("link: no such peer %q on dummy hub", dstLL)
	}
	target.Receive(b, d.addr)
	return nil
}

func (d *DummyLink) Broadcast(b []byte) error {
	d.hub.mu.Lock()
	targets := make([]*DummyLink, 0, len(d.hub.members))
	for addr, member := range d.hub.members {
		if addr != d.addr {
			targets = append(targets, member)
		}
	}
	d.hub.mu.Unlock()
	for _, target := range targets {
		target.Receive(b, d.addr)
	}
	return nil
}

// Receive enqueues an inbound frame for this link's drain goroutine. It
// does not fan out directly, so that frames handed to Receive from
// multiple goroutines at once still reach OnReceive serially.
func (d *DummyLink) Receive(b []byte, srcLL string) {
	d.inbox <- inboundFrame{data: b, srcLL: srcLL}
}
