// Package route implements the routing table and its tie-break/expiry
// semantics.
package route

import (
	"time"

	"github.com/deavmi/twine/identity"
	"github.com/deavmi/twine/link"
)

// DefaultLifetime is how long a learned route survives without a refresh
// before the sweep reclaims it.
const DefaultLifetime = 60 * time.Second

// Route is a single routing-table entry: a path to Destination via Link,
// reached through Gateway, at the given hop Distance.
type Route struct {
	Destination identity.NL
	// Link is nil for the self-route.
	Link     link.Link
	Gateway  identity.NL
	Distance uint8
	birth    time.Time
	lifetime time.Duration
}

// NewSelfRoute builds the distance-0 route to self, installed once at
// router construction and never replaced.
func NewSelfRoute(self identity.NL) *Route {
	return &Route{
		Destination: self,
		Link:        nil,
		Gateway:     self,
		Distance:    0,
		birth:       time.Now(),
		lifetime:    DefaultLifetime,
	}
}

// New builds a learned route with the default lifetime, birth set to now.
func New(dest identity.NL, l link.Link, gateway identity.NL, distance uint8) *Route {
	return &Route{
		Destination: dest,
		Link:        l,
		Gateway:     gateway,
		Distance:    distance,
		birth:       time.Now(),
		lifetime:    DefaultLifetime,
	}
}

// NewWithLifetime is New with an explicit lifetime: the router builds
// learned routes with its configured route lifetime, and tests exercising
// the sweep use a shorter one.
func NewWithLifetime(dest identity.NL, l link.Link, gateway identity.NL, distance uint8, lifetime time.Duration) *Route {
	r := New(dest, l, gateway, distance)
	r.lifetime = lifetime
	return r
}

// IsDirect reports whether this route's gateway is the destination itself.
func (r *Route) IsDirect() bool {
	return r.Gateway == r.Destination
}

// IsSelfRoute reports whether this is the distance-0 route installed for
// our own NL address.
func (r *Route) IsSelfRoute() bool {
	return r.Link == nil
}

// HasExpired reports whether this route's lifetime has elapsed. The
// self-route is explicitly exempt from expiry rather than relying on its
// birth time never being compared.
func (r *Route) HasExpired() bool {
	if r.IsSelfRoute() {
		return false
	}
	return time.Since(r.birth) > r.lifetime
}

// Refresh resets the route's birth time, as happens when an identical ADV
// is re-received.
func (r *Route) Refresh() {
	r.birth = time.Now()
}

// Equal reports whether two routes match on all four equality-relevant
// fields: destination, gateway, distance and link.
func (r *Route) Equal(other *Route) bool {
	if other == nil {
		return false
	}
	return r.Destination == other.Destination &&
		r.Gateway == other.Gateway &&
		r.Distance == other.Distance &&
		r.Link == other.Link
}
