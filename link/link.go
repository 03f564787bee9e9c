// Package link defines the abstract driver contract every link-layer
// transport implements, plus the in-memory DummyLink used by tests and
// the link-local address predicate used by link-layer drivers.
//
// Concrete drivers (IPv6 link-local UDP multicast, TCP, loopback pipes)
// are external collaborators; this package only fixes the contract and
// the shared receiver fan-out behaviour every driver embeds.
package link

import "github.com/google/uuid"

// Receiver is any subscriber to a Link's ingress stream.
type Receiver interface {
	OnReceive(l Link, b []byte, srcLL string)
}

// Link is a driver abstraction providing unicast, broadcast and ingress
// fan-out. Registration (AttachReceiver/DetachReceiver) is set-like:
// attaching the same receiver twice is a no-op, compared by reference.
type Link interface {
	// Transmit unicasts b to dstLL. Best-effort, fire-and-forget.
	Transmit(b []byte, dstLL string) error
	// Broadcast delivers b to every peer on the driver's broadcast domain.
	Broadcast(b []byte) error
	// Address reports the driver's own link-layer address.
	Address() string
	// AttachReceiver registers interest in ingress.
	AttachReceiver(r Receiver)
	// DetachReceiver reverses AttachReceiver.
	DetachReceiver(r Receiver)
	// Receive is called by the driver when a frame arrives; it fans out
	// to every currently attached receiver.
	Receive(b []byte, srcLL string)
	// ID returns a process-local identifier for this link instance.
	ID() uuid.UUID
}
