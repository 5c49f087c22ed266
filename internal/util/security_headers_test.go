package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithSecurityHeaders(t *testing.T, mutate func(*http.Request)) http.Header {
	t.Helper()
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Header()
}

func TestWithSecurityHeadersPlainHTTP(t *testing.T) {
	headers := serveWithSecurityHeaders(t, nil)

	for name, want := range apiSecurityHeaders {
		if got := headers.Get(name); got != want {
			t.Fatalf("%s = %q, want %q", name, got, want)
		}
	}
	if got := headers.Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS must not appear on plain http, got %q", got)
	}
}

func TestWithSecurityHeadersForwardedHTTPS(t *testing.T) {
	headers := serveWithSecurityHeaders(t, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "HTTPS")
	})
	if headers.Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS when the proxy reports https")
	}
}
