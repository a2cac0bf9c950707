package security

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver extracts the client address of a request.
//
// Proxy headers are only honoured with TrustProxy set. X-Forwarded-For is
// read as "client, proxy1, proxy2"; the rightmost TrustedProxyCount entries
// are our own proxies, and the entry just left of them is the client.
type ClientIPResolver struct {
	TrustProxy        bool
	TrustedProxyCount int // default: 1
}

// Resolve returns the client IP of r
func (c ClientIPResolver) Resolve(r *http.Request) string {
	if c.TrustProxy {
		if ip := c.fromForwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return remoteHost(r.RemoteAddr)
}

func (c ClientIPResolver) fromForwardedFor(xff string) string {
	if xff == "" {
		return ""
	}
	hops := strings.Split(xff, ",")

	proxies := c.TrustedProxyCount
	if proxies <= 0 {
		proxies = 1
	}
	idx := len(hops) - proxies - 1
	if idx < 0 {
		idx = 0
	}

	ip := strings.TrimSpace(hops[idx])
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
