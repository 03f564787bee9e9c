package udplink

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	twinelink "github.com/deavmi/twine/link"
)

// linkLocalAddr finds iface's link-local IPv6 address.
func linkLocalAddr(iface *net.Interface) (net.IP, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("listing addresses on %s: %w", iface.Name, err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip16 := ipNet.IP.To16()
		if ip16 == nil || ipNet.IP.To4() != nil {
			continue
		}
		if twinelink.IsLinkLocal(ip16) {
			return ip16, nil
		}
	}
	return nil, fmt.Errorf("no link-local address on %s", iface.Name)
}

// parseScopedAddr parses the "[addr%iface]:port" link-layer address form
// back into a *net.UDPAddr.
func parseScopedAddr(ll string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(ll)
	if err != nil {
		return nil, fmt.Errorf("malformed link-layer address %q: %w", ll, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("malformed port in %q: %w", ll, err)
	}
	ip := host
	zone := ""
	if idx := strings.IndexByte(host, '%'); idx >= 0 {
		ip = host[:idx]
		zone = host[idx+1:]
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("malformed address in %q", ll)
	}
	return &net.UDPAddr{IP: parsed, Port: port, Zone: zone}, nil
}
