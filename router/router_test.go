package router_test

import (
	"sync"
	"testing"
	"time"

	"github.com/deavmi/twine/identity"
	"github.com/deavmi/twine/link"
	"github.com/deavmi/twine/router"
	"github.com/deavmi/twine/wire"
	"github.com/stretchr/testify/require"
)

func fastConfig() router.Config {
	return router.Config{
		AdvInterval:      30 * time.Millisecond,
		ArpTimeout:       500 * time.Millisecond,
		ArpSweepInterval: time.Minute,
	}
}

type collector struct {
	mu   sync.Mutex
	pkts []router.UserDataPkt
}

func (c *collector) onData(p router.UserDataPkt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pkts = append(c.pkts, p)
}

func (c *collector) snapshot() []router.UserDataPkt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]router.UserDataPkt, len(c.pkts))
	copy(out, c.pkts)
	return out
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func newTestRouter(t *testing.T, c *collector) *router.Router {
	t.Helper()
	kp, err := identity.New()
	require.NoError(t, err)
	return router.New(kp, c.onData, fastConfig())
}

func newTestRouterWithConfig(t *testing.T, c *collector, cfg router.Config) *router.Router {
	t.Helper()
	kp, err := identity.New()
	require.NoError(t, err)
	return router.New(kp, c.onData, cfg)
}

func TestTwoNodeConvergence(t *testing.T) {
	c1, c2 := &collector{}, &collector{}
	r1 := newTestRouter(t, c1)
	r2 := newTestRouter(t, c2)

	l1, l2 := link.NewDummyLinkPair("link-r1", "link-r2")
	r1.LinkManager().AddLink(l1)
	r2.LinkManager().AddLink(l2)

	r1.Start()
	r2.Start()
	defer r1.Stop()
	defer r2.Stop()

	waitUntil(t, 2*time.Second, func() bool {
		return len(r1.Routes()) == 2 && len(r2.Routes()) == 2
	})

	var gotPeerRoute bool
	for _, rt := range r1.Routes() {
		if rt.Destination == r2.Self() {
			require.Equal(t, uint8(64), rt.Distance)
			require.Equal(t, r2.Self(), rt.Gateway)
			gotPeerRoute = true
		}
	}
	require.True(t, gotPeerRoute)

	for _, rt := range r2.Routes() {
		if rt.Destination == r1.Self() {
			require.Equal(t, uint8(64), rt.Distance)
		}
	}
}

// Line topology: R1 - R2, R1 - R3, R2 and R3 don't peer directly, so
// traffic between them must transit R1.
func TestLineTopologyForwarding(t *testing.T) {
	c1, c2, c3 := &collector{}, &collector{}, &collector{}
	r1 := newTestRouter(t, c1)
	r2 := newTestRouter(t, c2)
	r3 := newTestRouter(t, c3)

	linkA1, linkA2 := link.NewDummyLinkPair("r1-a", "r2-a")
	linkB1, linkB3 := link.NewDummyLinkPair("r1-b", "r3-b")

	r1.LinkManager().AddLink(linkA1)
	r1.LinkManager().AddLink(linkB1)
	r2.LinkManager().AddLink(linkA2)
	r3.LinkManager().AddLink(linkB3)

	r1.Start()
	r2.Start()
	r3.Start()
	defer r1.Stop()
	defer r2.Stop()
	defer r3.Stop()

	waitUntil(t, 3*time.Second, func() bool {
		return len(r3.Routes()) == 3
	})

	ok := r3.SendData([]byte("hello"), r2.Self())
	require.True(t, ok)

	waitUntil(t, 2*time.Second, func() bool {
		return len(c2.snapshot()) == 1
	})
	pkts := c2.snapshot()
	require.Equal(t, r3.Self(), pkts[0].Src)
	require.Equal(t, []byte("hello"), pkts[0].Payload)
}

// Same line topology as TestLineTopologyForwarding, but the middle hop
// has forwarding disabled: transit DATA must be logged and dropped
// rather than relayed.
func TestForwardingDisabledDropsTransitData(t *testing.T) {
	c1, c2, c3 := &collector{}, &collector{}, &collector{}
	disabled := false
	cfg1 := fastConfig()
	cfg1.ForwardingEnabled = &disabled
	r1 := newTestRouterWithConfig(t, c1, cfg1)
	r2 := newTestRouter(t, c2)
	r3 := newTestRouter(t, c3)

	linkA1, linkA2 := link.NewDummyLinkPair("r1-a", "r2-a")
	linkB1, linkB3 := link.NewDummyLinkPair("r1-b", "r3-b")

	r1.LinkManager().AddLink(linkA1)
	r1.LinkManager().AddLink(linkB1)
	r2.LinkManager().AddLink(linkA2)
	r3.LinkManager().AddLink(linkB3)

	r1.Start()
	r2.Start()
	r3.Start()
	defer r1.Stop()
	defer r2.Stop()
	defer r3.Stop()

	waitUntil(t, 3*time.Second, func() bool {
		return len(r3.Routes()) == 3
	})

	ok := r3.SendData([]byte("hello"), r2.Self())
	require.True(t, ok)

	time.Sleep(500 * time.Millisecond)
	require.Empty(t, c2.snapshot())
}

func TestSelfDelivery(t *testing.T) {
	c1 := &collector{}
	r1 := newTestRouter(t, c1)
	r1.Start()
	defer r1.Stop()

	ok := r1.SendData([]byte("x"), r1.Self())
	require.True(t, ok)

	waitUntil(t, time.Second, func() bool { return len(c1.snapshot()) == 1 })
	require.Equal(t, r1.Self(), c1.snapshot()[0].Src)
}

func TestSendDataReturnsFalseOnRouteMiss(t *testing.T) {
	c1 := &collector{}
	r1 := newTestRouter(t, c1)
	ok := r1.SendData([]byte("x"), identity.NL("nobody-knows-this-address"))
	require.False(t, ok)
}

func TestUnknownEnvelopeKindIsDropped(t *testing.T) {
	c1 := &collector{}
	r1 := newTestRouter(t, c1)
	l, _ := link.NewDummyLinkPair("a", "b")
	r1.LinkManager().AddLink(l)
	// OnReceive must not panic on garbage.
	r1.OnReceive(l, []byte{0xff, 0xff}, "peer")

	// A well-formed envelope of kind Unknown is dropped without delivery.
	raw, err := wire.EncodeEnvelope(wire.Envelope{Kind: wire.Unknown, Payload: []byte("x")})
	require.NoError(t, err)
	r1.OnReceive(l, raw, "peer")
	require.Empty(t, c1.snapshot())
}
