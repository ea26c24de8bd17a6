package utilities

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	for i, spoofed := range []string{"10.9.9.1", "10.9.9.2", "198.51.100.1, 10.0.0.1"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.50:4444"
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", "192.0.2.1")

		require.Equal(t, "203.0.113.50", resolver.ClientIP(req), "attempt %d", i)
	}
}

func TestClientIPWithoutTrustedProxiesUsesRemoteAddr(t *testing.T) {
	resolver, err := NewClientIPResolver(nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	require.Equal(t, "10.0.0.9", resolver.ClientIP(req))
}

func TestClientIPHonorsTrustedProxy(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	cases := []struct {
		name      string
		forwarded string
		realIP    string
		want      string
	}{
		{"single hop", "198.51.100.1", "", "198.51.100.1"},
		{"client spoofs left-most entry", "1.2.3.4, 198.51.100.1", "", "198.51.100.1"},
		{"skips trusted hops", "198.51.100.1, 192.0.2.10, 10.1.1.1", "", "198.51.100.1"},
		{"malformed hop stops the walk", "198.51.100.1, garbage, 10.1.1.1", "", "10.1.1.1"},
		{"all hops trusted", "10.2.2.2, 10.1.1.1", "", "10.2.2.2"},
		{"real ip fallback", "", "198.51.100.7", "198.51.100.7"},
		{"no headers", "", "", "10.0.0.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "10.0.0.9:5555"
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}

			require.Equal(t, tc.want, resolver.ClientIP(req))
		})
	}
}

func TestNewClientIPResolverRejectsInvalidEntries(t *testing.T) {
	_, err := NewClientIPResolver([]string{"not-an-ip"})
	require.Error(t, err)

	_, err = NewClientIPResolver([]string{"10.0.0.0/99"})
	require.Error(t, err)

	resolver, err := NewClientIPResolver([]string{" ", "::1"})
	require.NoError(t, err)
	require.True(t, resolver.isTrusted(net.IPv6loopback))
}
