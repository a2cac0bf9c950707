package security

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		resolver   ClientIPResolver
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{
			name:       "remote addr without proxy trust",
			remoteAddr: "192.0.2.10:5555",
			xff:        "203.0.113.1",
			want:       "192.0.2.10",
		},
		{
			name:       "single trusted proxy",
			resolver:   ClientIPResolver{TrustProxy: true},
			remoteAddr: "10.0.0.1:443",
			xff:        "203.0.113.1, 10.0.0.1",
			want:       "203.0.113.1",
		},
		{
			name:       "spoofed leftmost entry ignored",
			resolver:   ClientIPResolver{TrustProxy: true, TrustedProxyCount: 1},
			remoteAddr: "10.0.0.1:443",
			xff:        "6.6.6.6, 203.0.113.1, 10.0.0.1",
			want:       "203.0.113.1",
		},
		{
			name:       "two trusted proxies",
			resolver:   ClientIPResolver{TrustProxy: true, TrustedProxyCount: 2},
			remoteAddr: "10.0.0.2:443",
			xff:        "203.0.113.1, 10.0.0.1, 10.0.0.2",
			want:       "203.0.113.1",
		},
		{
			name:       "fewer hops than proxies uses first",
			resolver:   ClientIPResolver{TrustProxy: true, TrustedProxyCount: 5},
			remoteAddr: "10.0.0.1:443",
			xff:        "203.0.113.1",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded value falls back to X-Real-IP",
			resolver:   ClientIPResolver{TrustProxy: true},
			remoteAddr: "10.0.0.1:443",
			xff:        "not-an-ip, 10.0.0.1",
			xRealIP:    "198.51.100.4",
			want:       "198.51.100.4",
		},
		{
			name:       "no headers falls back to remote addr",
			resolver:   ClientIPResolver{TrustProxy: true},
			remoteAddr: "192.0.2.10:5555",
			want:       "192.0.2.10",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.10",
			want:       "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/token", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}

			if got := tt.resolver.Resolve(r); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
