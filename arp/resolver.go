// Package arp implements a request/reply ARP-style resolver: given a
// peer's NL address and a chosen Link, resolve the link-layer address to
// transmit to in order to reach that peer on that link.
//
// It's modelled on a mutex-protected map refreshed by a background
// request/response exchange, the same shape as a reachability handler
// keeping a cache warm under concurrent lookups.
package arp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deavmi/twine/identity"
	"github.com/deavmi/twine/internal/xlog"
	"github.com/deavmi/twine/link"
	"github.com/deavmi/twine/wire"
	"github.com/jellydator/ttlcache/v3"
)

const (
	// DefaultTimeout is how long a single resolve() call waits for a
	// RESPONSE before giving up.
	DefaultTimeout = 5 * time.Second
	// DefaultSweepInterval is how long a successful resolution stays
	// cached before the cache's background goroutine evicts it.
	DefaultSweepInterval = 60 * time.Second
	// wakeupInterval is the periodic duty-cycle the pending-map wait
	// uses to tolerate missed condition-variable notifications.
	wakeupInterval = 500 * time.Millisecond
	// failureCacheTTL is how briefly an empty (failed) resolution is
	// cached, throttling repeated failed resolutions of the same target
	// for that long.
	failureCacheTTL = 2 * time.Second
)

// Entry is a cached (or failed) ARP resolution. The empty entry (both
// fields "") represents resolution failure and is distinct from any valid
// mapping.
type Entry struct {
	NL identity.NL
	LL string
}

func (e Entry) empty() bool {
	return e.NL == "" && e.LL == ""
}

// target is the cache key: a resolution is scoped to a specific link,
// since resolving the same NL over different links are separate entries.
type target struct {
	nl   identity.NL
	link link.Link
}

// Resolver implements the resolution protocol and the ingress side that
// captures RESPONSE frames.
type Resolver struct {
	cache *ttlcache.Cache[target, Entry]

	mu            sync.Mutex
	cond          *sync.Cond
	pending       map[identity.NL]string
	attachedLinks map[link.Link]bool

	timeout       time.Duration
	sweepInterval time.Duration

	log *slog.Logger
}

// New creates a Resolver with the given timeout and sweep interval. Zero
// values fall back to DefaultTimeout / DefaultSweepInterval.
func New(timeout, sweepInterval time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	r := &Resolver{
		pending:       make(map[identity.NL]string),
		attachedLinks: make(map[link.Link]bool),
		timeout:       timeout,
		sweepInterval: sweepInterval,
		log:           xlog.With("arp"),
	}
	r.cond = sync.NewCond(&r.mu)
	r.cache = ttlcache.New[target, Entry](
		ttlcache.WithTTL[target, Entry](sweepInterval),
		ttlcache.WithLoader[target, Entry](ttlcache.LoaderFunc[target, Entry](
			func(c *ttlcache.Cache[target, Entry], key target) *ttlcache.Item[target, Entry] {
				entry := r.regenerate(key)
				ttl := sweepInterval
				if entry.empty() {
					ttl = failureCacheTTL
				}
				return c.Set(key, entry, ttl)
			},
		)),
	)
	go r.cache.Start()
	return r
}

// Stop tears down the background cache sweep. Any in-flight resolutions
// complete or time out on their own.
func (r *Resolver) Stop() {
	r.cache.Stop()
}

// Resolve consults the cache; on miss, the loader broadcasts an ARP
// REQUEST and waits (bounded by the resolver's timeout) for a matching
// RESPONSE to land in the pending map.
func (r *Resolver) Resolve(nl identity.NL, l link.Link) Entry {
	item := r.cache.Get(target{nl: nl, link: l})
	if item == nil {
		return Entry{}
	}
	return item.Value()
}

// regenerate is the cache's miss-handling callback.
func (r *Resolver) regenerate(key target) Entry {
	r.attach(key.link)

	req, err := wire.EncodePayload(string(key.nl))
	if err != nil {
		r.log.Error("arp: failed to encode request", "err", err)
		return Entry{}
	}
	env, err := wire.BuildEnvelope(wire.Arp, wire.ArpPayload{Type: wire.Request, Content: req})
	if err != nil {
		r.log.Error("arp: failed to build request envelope", "err", err)
		return Entry{}
	}
	raw, err := wire.EncodeEnvelope(env)
	if err != nil {
		r.log.Error("arp: failed to encode request envelope", "err", err)
		return Entry{}
	}
	if err := key.link.Broadcast(raw); err != nil {
		r.log.Warn("arp: broadcast failed", "err", err)
		return Entry{}
	}

	ll, ok := r.awaitReply(key.nl)
	if !ok {
		return Entry{}
	}
	return Entry{NL: key.nl, LL: ll}
}

// awaitReply waits on the condition variable, with a periodic wakeup, for
// an entry to appear in the pending map, tolerating missed notifications:
// a ticker goroutine broadcasts on the condition variable every
// wakeupInterval so the waiter periodically re-scans the pending map even
// if a notify was missed, bounded overall by r.timeout.
func (r *Resolver) awaitReply(nl identity.NL) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	stopTicker := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wakeupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.mu.Lock()
				r.cond.Broadcast()
				r.mu.Unlock()
			case <-ctx.Done():
				r.mu.Lock()
				r.cond.Broadcast()
				r.mu.Unlock()
				return
			case <-stopTicker:
				return
			}
		}
	}()
	defer close(stopTicker)

	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if ll, ok := r.pending[nl]; ok {
			delete(r.pending, nl)
			return ll, true
		}
		if ctx.Err() != nil {
			return "", false
		}
		r.cond.Wait()
	}
}

// attach registers the resolver itself as a receiver on l, at most once
// per link.
func (r *Resolver) attach(l link.Link) {
	r.mu.Lock()
	already := r.attachedLinks[l]
	if !already {
		r.attachedLinks[l] = true
	}
	r.mu.Unlock()
	if !already {
		l.AttachReceiver(r)
	}
}

// OnReceive is the resolver's ingress side: it only consumes ARP RESPONSE
// frames, handing them to waiting Resolve calls via the pending map.
// Requests are ignored here; the router answers ARP requests.
func (r *Resolver) OnReceive(l link.Link, b []byte, srcLL string) {
	env, err := wire.DecodeEnvelope(b)
	if err != nil {
		return
	}
	if env.Kind != wire.Arp {
		return
	}
	var payload wire.ArpPayload
	if err := wire.DecodeAs(env.Payload, &payload); err != nil {
		return
	}
	if payload.Type != wire.Response {
		return
	}
	var reply wire.ArpReply
	if err := wire.DecodeAs(payload.Content, &reply); err != nil {
		return
	}

	r.mu.Lock()
	r.pending[identity.NL(reply.L3)] = reply.L2
	r.cond.Broadcast()
	r.mu.Unlock()
}
