package utilities

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver derives the caller address of a request. Forwarding
// headers are honored only when the connection comes from a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses the trusted proxy list. Entries are CIDRs or
// single addresses.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			resolver.trusted = append(resolver.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		resolver.trusted = append(resolver.trusted, network)
	}

	return resolver, nil
}

// ClientIP returns the connection's remote address unless it is a trusted
// proxy. Behind a trusted proxy it returns the right-most X-Forwarded-For
// entry that is not itself trusted, falling back to X-Real-IP.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !c.isTrusted(net.ParseIP(peer)) {
		return peer
	}

	if value := r.Header.Get("X-Forwarded-For"); value != "" {
		hops := strings.Split(value, ",")
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				// Anything left of a malformed hop was written by the client.
				return client
			}
			client = ip.String()
			if !c.isTrusted(ip) {
				return client
			}
		}
		return client
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	return peer
}

func (c *ClientIPResolver) isTrusted(ip net.IP) bool {
	if c == nil || ip == nil {
		return false
	}
	for _, network := range c.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
