package linkmanager_test

import (
	"testing"
	"time"

	"github.com/deavmi/twine/link"
	"github.com/deavmi/twine/linkmanager"
	"github.com/stretchr/testify/require"
)

type noopReceiver struct{}

func (noopReceiver) OnReceive(l link.Link, b []byte, srcLL string) {}

// chanReceiver hands every frame it receives to the test over a channel.
type chanReceiver chan []byte

func (c chanReceiver) OnReceive(l link.Link, b []byte, srcLL string) { c <- b }

func TestAddLinkAttachesReceiver(t *testing.T) {
	r := make(chanReceiver, 1)
	mgr := linkmanager.New(r)
	a, _ := link.NewDummyLinkPair("a", "b")

	mgr.AddLink(a)
	require.Len(t, mgr.Links(), 1)

	a.Receive([]byte("x"), "peer")
	select {
	case got := <-r:
		require.Equal(t, []byte("x"), got)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver was not attached to the added link")
	}
}

func TestRemoveLinkDetaches(t *testing.T) {
	r := make(chanReceiver, 1)
	mgr := linkmanager.New(r)
	a, _ := link.NewDummyLinkPair("a", "b")

	mgr.AddLink(a)
	mgr.RemoveLink(a)
	require.Len(t, mgr.Links(), 0)

	a.Receive([]byte("x"), "peer")
	time.Sleep(20 * time.Millisecond)
	require.Len(t, r, 0, "receiver must be detached from the removed link")
}

func TestLinksReturnsSnapshot(t *testing.T) {
	r := noopReceiver{}
	mgr := linkmanager.New(r)
	a, b := link.NewDummyLinkPair("a", "b")
	mgr.AddLink(a)
	mgr.AddLink(b)

	snap := mgr.Links()
	require.Len(t, snap, 2)

	mgr.RemoveLink(a)
	require.Len(t, snap, 2, "earlier snapshot must not mutate")
	require.Len(t, mgr.Links(), 1)
}
