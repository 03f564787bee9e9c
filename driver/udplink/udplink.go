// Package udplink is a concrete Link driver over IPv6 link-local UDP
// multicast: a real collaborator a deployable node needs even though the
// core router treats all links as opaque.
//
// It probes an interface's link-local address, sends the frames it is
// given unchanged (unicast, or to the multicast group for Broadcast), and
// treats every datagram it reads as ingress, joining the multicast group
// on a UDP socket via golang.org/x/net/ipv6.
package udplink

import (
	"fmt"
	"net"

	"github.com/deavmi/twine/link"
	"golang.org/x/net/ipv6"
)

// DefaultMulticastGroup is the link-local multicast address twine nodes on
// the same segment join to discover and talk to one another.
const DefaultMulticastGroup = "ff02::1:7769" // "wi" in ASCII, twine's discovery group

// Link is an IPv6 link-local UDP multicast Link implementation. Its
// link-layer address is the scoped "[addr%iface]:port" form.
type Link struct {
	link.BaseLink

	conn  *net.UDPConn
	pconn *ipv6.PacketConn
	iface *net.Interface
	addr  string
	group *net.UDPAddr

	closeCh chan struct{}
}

// New opens a UDP socket on iface, joins DefaultMulticastGroup, and starts
// a goroutine fanning ingress into the embedded BaseLink.
func New(iface *net.Interface, port int) (*Link, error) {
	llAddr, err := linkLocalAddr(iface)
	if err != nil {
		return nil, fmt.Errorf("udplink: %w", err)
	}

	laddr := &net.UDPAddr{IP: llAddr, Port: port, Zone: iface.Name}
	conn, err := net.ListenUDP("udp6", laddr)
	if err != nil {
		return nil, fmt.Errorf("udplink: listen: %w", err)
	}

	pconn := ipv6.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.ParseIP(DefaultMulticastGroup), Port: port, Zone: iface.Name}
	if err := pconn.JoinGroup(iface, group); err != nil {
		conn.Close()
		return nil, fmt.Errorf("udplink: join multicast group: %w", err)
	}

	l := &Link{
		conn:    conn,
		pconn:   pconn,
		iface:   iface,
		addr:    fmt.Sprintf("[%s%%%s]:%d", llAddr, iface.Name, port),
		group:   group,
		closeCh: make(chan struct{}),
	}
	go l.readLoop()
	return l, nil
}

var _ link.Link = (*Link)(nil)

func (l *Link) Address() string {
	return l.addr
}

// Transmit parses dstLL (the same scoped form Address returns) and
// unicasts b to it.
func (l *Link) Transmit(b []byte, dstLL string) error {
	addr, err := parseScopedAddr(dstLL)
	if err != nil {
		return fmt.Errorf("udplink: transmit: %w", err)
	}
	_, err = l.conn.WriteToUDP(b, addr)
	return err
}

// Broadcast sends b to the link-local multicast group every twine node on
// this segment has joined.
func (l *Link) Broadcast(b []byte) error {
	_, err := l.conn.WriteToUDP(b, l.group)
	return err
}

func (l *Link) readLoop() {
	buf := make([]byte, 65535)
	for {
		select {
		case <-l.closeCh:
			return
		default:
		}
		n, _, srcAddr, err := l.pconn.ReadFrom(buf)
		if err != nil {
			return
		}
		src, ok := srcAddr.(*net.UDPAddr)
		if !ok {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		srcLL := fmt.Sprintf("[%s%%%s]:%d", src.IP.String(), l.iface.Name, src.Port)
		l.Receive(frame, srcLL)
	}
}

// Receive fans out an inbound frame to attached receivers; called by the
// driver's own read loop.
func (l *Link) Receive(b []byte, srcLL string) {
	l.FanOut(l, b, srcLL)
}

// Close tears down the socket and stops the read loop.
func (l *Link) Close() error {
	close(l.closeCh)
	return l.conn.Close()
}
