package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	emailprovider "github.com/example/contact-relay/internal/providers/email"
	"github.com/example/contact-relay/internal/server"
)

func passthrough() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.SecurityHeaders(passthrough()).ServeHTTP(rec, req)

	expect := map[string]string{
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains; preload",
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "1; mode=block",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
	}
	for name, want := range expect {
		if got := rec.Header().Get(name); got != want {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestHTTPSRedirect(t *testing.T) {
	cases := []struct {
		label  string
		path   string
		proto  string
		status int
	}{
		{"http page redirects", "/about", "http", http.StatusMovedPermanently},
		{"https page passes", "/about", "https", http.StatusOK},
		{"api exempt", "/api/contact", "http", http.StatusOK},
		{"direct traffic passes", "/about", "", http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Host = "example.com"
		if tc.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tc.proto)
		}
		rec := httptest.NewRecorder()
		server.HTTPSRedirect(passthrough()).ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Fatalf("%s: got %d, want %d", tc.label, rec.Code, tc.status)
		}
		if tc.status == http.StatusMovedPermanently {
			loc := rec.Header().Get("Location")
			if loc != "https://example.com/about" {
				t.Fatalf("%s: unexpected redirect target %q", tc.label, loc)
			}
		}
	}
}

func TestRateLimitKeyedByForwardedFor(t *testing.T) {
	cfg := baseConfig("development")
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	mux := newTestMux(t, cfg, emailprovider.NewMockProvider(noopLogger()), nil)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(validBody()))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", addr)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first client request should pass, got %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("same client should be limited, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("distinct client should pass, got %d", code)
	}
}
