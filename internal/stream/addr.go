package stream

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// remoteIP resolves the address the per-IP connection table keys on.
//
// With TrustProxy set, the leftmost X-Forwarded-For hop names the original
// client, with X-Real-IP as the fallback. A forwarded value that does not
// parse as an IP address is ignored rather than trusted, so a spoofed header
// cannot mint unlimited limiter keys. Without TrustProxy only the socket
// address counts.
func (c Config) remoteIP(r *http.Request) string {
	if c.TrustProxy {
		hop, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
			return addr.String()
		}
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return addr.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
