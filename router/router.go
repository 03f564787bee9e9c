// Package router implements the core of twine: the advertisement loop,
// ingress demultiplexer, route-table arbitration and the
// forwarding/local-delivery decision.
package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/deavmi/twine/arp"
	"github.com/deavmi/twine/identity"
	"github.com/deavmi/twine/internal/xlog"
	"github.com/deavmi/twine/link"
	"github.com/deavmi/twine/linkmanager"
	"github.com/deavmi/twine/route"
)

// HopPenalty is added to a received advertisement's distance before
// installation.
const HopPenalty uint8 = 64

// DefaultAdvInterval is how often the advertisement loop fires.
const DefaultAdvInterval = 5 * time.Second

// UserDataPkt is delivered to the on-data callback for every DATA packet
// addressed to us, whether received over a link or self-addressed via
// SendData.
type UserDataPkt struct {
	Src     identity.NL
	Payload []byte
}

// OnDataFunc is the user callback invoked on local delivery.
type OnDataFunc func(UserDataPkt)

// Config carries the router's tunables. Zero values fall back to the
// documented defaults.
type Config struct {
	AdvInterval       time.Duration
	ArpTimeout        time.Duration
	ArpSweepInterval  time.Duration
	RouteLifetime     time.Duration
	ForwardingEnabled *bool
}

func (c Config) advInterval() time.Duration {
	if c.AdvInterval <= 0 {
		return DefaultAdvInterval
	}
	return c.AdvInterval
}

func (c Config) routeLifetime() time.Duration {
	if c.RouteLifetime <= 0 {
		return route.DefaultLifetime
	}
	return c.RouteLifetime
}

func (c Config) forwardingEnabled() bool {
	if c.ForwardingEnabled == nil {
		return true
	}
	return *c.ForwardingEnabled
}

// Router is a single twine node: it owns an identity, a route table, an
// ARP resolver, and a LinkManager fanning every attached link's ingress
// into its own dispatcher.
type Router struct {
	id   identity.Keypair
	self identity.NL

	table    *route.Table
	resolver *arp.Resolver
	links    *linkmanager.LinkManager

	onData     OnDataFunc
	cfg        Config
	forwarding bool

	log *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Router. It does not start the advertisement loop; call
// Start for that.
func New(id identity.Keypair, onData OnDataFunc, cfg Config) *Router {
	self := id.PublicKey()
	r := &Router{
		id:         id,
		self:       self,
		table:      route.NewTable(self),
		resolver:   arp.New(cfg.ArpTimeout, cfg.ArpSweepInterval),
		onData:     onData,
		cfg:        cfg,
		forwarding: cfg.forwardingEnabled(),
		log:        xlog.With("router"),
	}
	r.links = linkmanager.New(r)
	return r
}

// Self returns this router's own NL address.
func (r *Router) Self() identity.NL {
	return r.self
}

// LinkManager returns the router's link manager, used by callers to attach
// concrete link drivers.
func (r *Router) LinkManager() *linkmanager.LinkManager {
	return r.links
}

// Routes returns a snapshot of the current route table.
func (r *Router) Routes() []*route.Route {
	return r.table.Snapshot()
}

// Start launches the advertisement loop on a dedicated goroutine.
func (r *Router) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.advertiseLoop(r.stop)
}

// Stop flips the running flag, joins the advertisement thread, and tears
// down the ARP resolver. Callers must tolerate a Stop concurrent with a
// SendData; the worst outcome is a late dropped frame.
func (r *Router) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stop)
	r.mu.Unlock()

	r.wg.Wait()
	r.resolver.Stop()
}

var _ link.Receiver = (*Router)(nil)
