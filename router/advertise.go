package router

import (
	"time"

	"github.com/deavmi/twine/wire"
)

// advertiseLoop is the router's one dedicated thread: every configured
// interval it sweeps expired routes, then broadcasts the current table
// on every attached link.
func (r *Router) advertiseLoop(stop <-chan struct{}) {
	defer r.wg.Done()
	interval := r.cfg.advInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.routeSweep()
			r.broadcastAdvertisements()
		}
	}
}

// routeSweep removes expired routes under the table's own lock. The
// self-route is explicitly exempt (route.Route.HasExpired), so no
// special-casing is needed here.
func (r *Router) routeSweep() {
	removed := r.table.Sweep()
	if removed > 0 {
		r.log.Debug("route sweep removed expired routes", "count", removed)
	}
}

// broadcastAdvertisements emits one ADVERTISEMENT per known route on every
// currently attached link. Origin is always our own public key: this is
// not split-horizon, and short transient loops are an accepted
// limitation rather than something this loop tries to prevent.
func (r *Router) broadcastAdvertisements() {
	routes := r.table.Snapshot()
	links := r.links.Links()
	if len(links) == 0 {
		return
	}

	for _, rt := range routes {
		ra := wire.RouteAdvertisement{Address: string(rt.Destination), Distance: rt.Distance}
		content, err := wire.EncodePayload(ra)
		if err != nil {
			r.log.Error("failed to encode route advertisement", "err", err)
			continue
		}
		env, err := wire.BuildEnvelope(wire.Adv, wire.AdvPayload{
			Origin:  string(r.self),
			Type:    wire.Advertisement,
			Content: content,
		})
		if err != nil {
			r.log.Error("failed to build ADV envelope", "err", err)
			continue
		}
		raw, err := wire.EncodeEnvelope(env)
		if err != nil {
			r.log.Error("failed to encode ADV envelope", "err", err)
			continue
		}
		for _, l := range links {
			if err := l.Broadcast(raw); err != nil {
				r.log.Warn("broadcast failed", "err", err)
			}
		}
	}
}
