package addr

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// DefaultPort is used when a listen token carries no port number.
const DefaultPort = 6969

// Disable is the token that turns listening off for a transport protocol.
const Disable = "-"

// Defaults returns the wildcard endpoints used when no address was specified
// for a transport: unspecified IPv6 and unspecified IPv4 on the default port.
func Defaults() []netip.AddrPort {
	return []netip.AddrPort{
		netip.AddrPortFrom(netip.IPv6Unspecified(), DefaultPort),
		netip.AddrPortFrom(netip.IPv4Unspecified(), DefaultPort),
	}
}

// Resolve turns the listen tokens for one transport protocol into a
// de-duplicated, order-preserving endpoint list.
//
// An empty token list means the transport was never specified and yields
// Defaults(). Disable tokens are dropped, so a list consisting only of "-"
// resolves to an empty result, meaning the transport is disabled. Hostname
// tokens may resolve to several endpoints; all of them are kept.
func Resolve(ctx context.Context, tokens []string) ([]netip.AddrPort, error) {
	if len(tokens) == 0 {
		return Defaults(), nil
	}

	out := make([]netip.AddrPort, 0, len(tokens))
	seen := make(map[netip.AddrPort]bool)
	for _, token := range tokens {
		if token == Disable {
			continue
		}

		resolved, err := resolveToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("invalid socket address %q: %w", token, err)
		}

		for _, ap := range resolved {
			if !seen[ap] {
				seen[ap] = true
				out = append(out, ap)
			}
		}
	}

	return out, nil
}

// resolveToken resolves a single token, which may be an IP, an ip:port pair,
// or a hostname with an optional port.
func resolveToken(ctx context.Context, token string) ([]netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(token); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())}, nil
	}
	if a, err := netip.ParseAddr(token); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(a.Unmap(), DefaultPort)}, nil
	}

	// Not a literal address; split off an explicit port if there is one and
	// resolve the rest as a hostname.
	host := token
	port := uint16(DefaultPort)
	if h, p, err := net.SplitHostPort(token); err == nil {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		host = h
		port = uint16(n)
	}

	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}

	out := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		out = append(out, netip.AddrPortFrom(ip.Unmap(), port))
	}
	return out, nil
}
