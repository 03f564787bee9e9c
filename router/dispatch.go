package router

import (
	"github.com/deavmi/twine/identity"
	"github.com/deavmi/twine/link"
	"github.com/deavmi/twine/route"
	"github.com/deavmi/twine/wire"
)

// OnReceive is the router's ingress demultiplexer: decode the envelope
// and dispatch by kind. Every branch is total: decode failures and
// unrecognised kinds are logged and dropped, never propagated.
func (r *Router) OnReceive(l link.Link, b []byte, srcLL string) {
	env, err := wire.DecodeEnvelope(b)
	if err != nil {
		r.log.Debug("dropping undecodable frame", "err", err, "src", srcLL)
		return
	}
	switch env.Kind {
	case wire.Adv:
		r.handleAdv(l, env.Payload)
	case wire.Arp:
		r.handleArp(l, env.Payload, srcLL)
	case wire.Data:
		r.handleData(env.Payload)
	default:
		r.log.Debug("dropping frame of unknown kind", "kind", env.Kind, "src", srcLL)
	}
}

// handleAdv handles an ADV payload: retractions are unsupported and
// logged; advertisements become a candidate route with the hop penalty
// applied, dropped if they would shadow our own self-route.
func (r *Router) handleAdv(l link.Link, payload []byte) {
	var adv wire.AdvPayload
	if err := wire.DecodeAs(payload, &adv); err != nil {
		r.log.Debug("dropping undecodable ADV", "err", err)
		return
	}
	if adv.Type == wire.Retraction {
		r.log.Debug("retraction received, unsupported, dropping", "origin", adv.Origin)
		return
	}

	var ra wire.RouteAdvertisement
	if err := wire.DecodeAs(adv.Content, &ra); err != nil {
		r.log.Debug("dropping undecodable route advertisement", "err", err)
		return
	}

	dest := identity.NL(ra.Address)
	if dest == r.self {
		return
	}

	distance := ra.Distance + HopPenalty
	if distance < ra.Distance {
		// Overflowed past 255: treat as unreachable rather than wrapping.
		distance = 255
	}

	candidate := route.NewWithLifetime(dest, l, identity.NL(adv.Origin), distance, r.cfg.routeLifetime())
	r.installRoute(candidate)
}

// installRoute delegates arbitration to the table, which owns the
// locking and tie-break rules.
func (r *Router) installRoute(candidate *route.Route) {
	r.table.Install(candidate)
}

// handleArp handles an ARP payload: we only answer requests for our own
// address (no proxy ARP); RESPONSE frames are consumed by the resolver's
// own receiver attachment and logged-and-dropped here.
func (r *Router) handleArp(l link.Link, payload []byte, srcLL string) {
	var arpPayload wire.ArpPayload
	if err := wire.DecodeAs(payload, &arpPayload); err != nil {
		r.log.Debug("dropping undecodable ARP", "err", err)
		return
	}

	switch arpPayload.Type {
	case wire.Request:
		var requested string
		if err := wire.DecodeAs(arpPayload.Content, &requested); err != nil {
			r.log.Debug("dropping undecodable ARP request", "err", err)
			return
		}
		if identity.NL(requested) != r.self {
			return
		}
		content, err := wire.EncodePayload(wire.ArpReply{L3: requested, L2: l.Address()})
		if err != nil {
			r.log.Error("failed to encode ARP reply", "err", err)
			return
		}
		env, err := wire.BuildEnvelope(wire.Arp, wire.ArpPayload{Type: wire.Response, Content: content})
		if err != nil {
			r.log.Error("failed to build ARP reply envelope", "err", err)
			return
		}
		raw, err := wire.EncodeEnvelope(env)
		if err != nil {
			r.log.Error("failed to encode ARP reply frame", "err", err)
			return
		}
		if err := l.Transmit(raw, srcLL); err != nil {
			r.log.Warn("failed to transmit ARP reply", "err", err)
		}
	case wire.Response:
		r.log.Debug("ARP response observed by router, ignoring (resolver owns it)")
	}
}

// handleData decrypts and delivers locally, forwards, or drops.
func (r *Router) handleData(payload []byte) {
	var data wire.DataPayload
	if err := wire.DecodeAs(payload, &data); err != nil {
		r.log.Debug("dropping undecodable DATA", "err", err)
		return
	}

	if identity.NL(data.Dst) == r.self {
		plaintext, err := r.id.Decrypt(data.Data)
		if err != nil {
			r.log.Debug("dropping DATA with undecryptable payload", "err", err)
			return
		}
		if r.onData != nil {
			r.onData(UserDataPkt{Src: identity.NL(data.Src), Payload: plaintext})
		}
		return
	}

	if !r.forwarding {
		r.log.Debug("forwarding disabled, dropping transit DATA", "dst", data.Dst)
		return
	}
	r.attemptForward(data)
}

// attemptForward looks up the route, resolves the next hop over that
// route's link, and retransmits the envelope unchanged.
func (r *Router) attemptForward(data wire.DataPayload) {
	dest := identity.NL(data.Dst)
	rt, ok := r.table.Lookup(dest)
	if !ok {
		r.log.Debug("no route, dropping transit DATA", "dst", data.Dst)
		return
	}

	entry := r.resolver.Resolve(rt.Gateway, rt.Link)
	if entry.LL == "" {
		r.log.Debug("ARP resolution failed, dropping transit DATA", "dst", data.Dst, "gateway", rt.Gateway)
		return
	}

	env, err := wire.BuildEnvelope(wire.Data, data)
	if err != nil {
		r.log.Error("failed to re-encode forwarded DATA", "err", err)
		return
	}
	raw, err := wire.EncodeEnvelope(env)
	if err != nil {
		r.log.Error("failed to re-encode forwarded DATA envelope", "err", err)
		return
	}
	if err := rt.Link.Transmit(raw, entry.LL); err != nil {
		r.log.Warn("transmit failed while forwarding", "err", err)
	}
}

// SendData encrypts under the destination's public key and either
// delivers locally (self-route) or resolves the gateway and transmits.
// Returns false on route miss or ARP failure.
func (r *Router) SendData(payload []byte, dst identity.NL) bool {
	rt, ok := r.table.Lookup(dst)
	if !ok {
		r.log.Debug("SendData: no route", "dst", dst)
		return false
	}

	ciphertext, err := identity.Encrypt(payload, dst)
	if err != nil {
		r.log.Error("SendData: encryption failed", "err", err)
		return false
	}

	if rt.IsSelfRoute() {
		// Deliberate: the self-path delivers ciphertext to the callback
		// without decrypting, matching encrypt-then-deliver on self-send.
		if r.onData != nil {
			r.onData(UserDataPkt{Src: r.self, Payload: ciphertext})
		}
		return true
	}

	data := wire.DataPayload{
		Ttl: wire.DefaultTTL,
		Data: ciphertext,
		Src: string(r.self),
		Dst: string(dst),
	}
	entry := r.resolver.Resolve(rt.Gateway, rt.Link)
	if entry.LL == "" {
		r.log.Debug("SendData: ARP resolution failed", "dst", dst, "gateway", rt.Gateway)
		return false
	}

	env, err := wire.BuildEnvelope(wire.Data, data)
	if err != nil {
		r.log.Error("SendData: encode failed", "err", err)
		return false
	}
	raw, err := wire.EncodeEnvelope(env)
	if err != nil {
		r.log.Error("SendData: envelope encode failed", "err", err)
		return false
	}
	if err := rt.Link.Transmit(raw, entry.LL); err != nil {
		r.log.Warn("SendData: transmit failed", "err", err)
		return false
	}
	return true
}
