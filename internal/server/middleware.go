package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/contact-relay/internal/config"
)

// SecurityHeaders applies the site-wide response headers: HSTS, MIME
// sniffing and clickjacking protection, and a conservative referrer policy.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// HTTPSRedirect issues a permanent redirect for plain-HTTP requests arriving
// behind a TLS-terminating proxy. API routes are exempt so programmatic
// clients get a proper response rather than a redirect. Requests without the
// forwarded-proto header (direct local traffic) pass through untouched.
func HTTPSRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proto := r.Header.Get("X-Forwarded-Proto")
		if proto != "" && !strings.EqualFold(proto, "https") && !strings.HasPrefix(r.URL.Path, "/api/") {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientLimiter applies a per-client token bucket to the submission
// endpoint. Entries idle for more than the eviction window are pruned on the
// next access to keep the map bounded.
type clientLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	clients  map[string]*clientBucket
	lastScan time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const clientEviction = 10 * time.Minute

func newClientLimiter(cfg config.RateLimitConfig) *clientLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return &clientLimiter{}
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		clients: map[string]*clientBucket{},
	}
}

func (l *clientLimiter) allow(key string) bool {
	if l.clients == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastScan) > clientEviction {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) > clientEviction {
				delete(l.clients, k)
			}
		}
		l.lastScan = now
	}

	bucket, ok := l.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.Allow()
}

// clientKey identifies the caller for rate limiting, preferring the first
// forwarded address when running behind a proxy.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
