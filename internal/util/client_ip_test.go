package util

import (
	"net/http/httptest"
	"testing"
)

func TestNewTrustedProxies(t *testing.T) {
	if p, err := NewTrustedProxies(nil); err != nil || p != nil {
		t.Fatalf("empty list should yield nil allowlist, got %v err=%v", p, err)
	}
	if _, err := NewTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", ""}); err != nil {
		t.Fatalf("valid entries rejected: %v", err)
	}
	if _, err := NewTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected error for garbage entry")
	}
	if _, err := NewTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Fatal("expected error for bad CIDR")
	}
}

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("allowlist: %v", err)
	}

	cases := []struct {
		name    string
		remote  string
		headers map[string]string
		trusted *TrustedProxies
		want    string
	}{
		{
			name:    "untrusted peer keeps socket address",
			remote:  "198.51.100.10:4444",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.6"},
			want:    "198.51.100.10",
		},
		{
			name:    "trusted peer honors forwarded-for",
			remote:  "10.0.0.20:4444",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5"},
			trusted: trusted,
			want:    "203.0.113.5",
		},
		{
			name:    "walks chain past trusted hops",
			remote:  "10.0.0.20:4444",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.9"},
			trusted: trusted,
			want:    "203.0.113.5",
		},
		{
			name:    "fully trusted chain yields origin hop",
			remote:  "10.0.0.20:4444",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.5, 10.0.0.9"},
			trusted: trusted,
			want:    "10.0.0.5",
		},
		{
			name:    "real-ip fallback when forwarded-for unusable",
			remote:  "10.0.0.20:4444",
			headers: map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "203.0.113.7"},
			trusted: trusted,
			want:    "203.0.113.7",
		},
		{
			name:    "trusted peer with no headers",
			remote:  "10.0.0.20:4444",
			trusted: trusted,
			want:    "10.0.0.20",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://portal.test/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
