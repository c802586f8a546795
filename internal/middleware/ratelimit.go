package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"adoptify-web/internal/metrics"
	"adoptify-web/pkg/apierror"
)

// Bucket names, also used as metric labels.
const (
	bucketPages       = "pages"
	bucketCredentials = "credentials"
)

const (
	visitorIdleAfter = 10 * time.Minute
	visitorGCAt      = 1000
)

type bucketLimit struct {
	every rate.Limit
	burst int
}

// perMinute turns a requests-per-minute setting into a bucket. Non-positive
// means unlimited.
func perMinute(rpm int) bucketLimit {
	if rpm <= 0 {
		return bucketLimit{every: rate.Inf}
	}
	return bucketLimit{every: rate.Every(time.Minute / time.Duration(rpm)), burst: rpm}
}

type visitor struct {
	pages       *rate.Limiter
	credentials *rate.Limiter
	lastSeen    time.Time
}

// RateLimitMiddleware throttles each client IP. Login and signup posts draw
// from their own smaller bucket so password guessing slows down without
// blocking browsing.
type RateLimitMiddleware struct {
	pages       bucketLimit
	credentials bucketLimit

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimitMiddleware builds the limiter. A non-positive pagesRPM turns
// the page bucket off; credentialsRPM falls back to 20 per minute.
func NewRateLimitMiddleware(pagesRPM int, credentialsRPM int) *RateLimitMiddleware {
	if credentialsRPM <= 0 {
		credentialsRPM = 20
	}

	return &RateLimitMiddleware{
		pages:       perMinute(pagesRPM),
		credentials: perMinute(credentialsRPM),
		visitors:    make(map[string]*visitor),
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.ToLower(strings.TrimSuffix(r.URL.Path, "/"))
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		v := m.visitor(extractClientIP(r))

		bucket, limiter := bucketPages, v.pages
		if r.Method == http.MethodPost && (path == "/login" || path == "/signup") {
			bucket, limiter = bucketCredentials, v.credentials
		}

		if wait, ok := take(limiter); !ok {
			metrics.RateLimitedTotal.WithLabelValues(bucket).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			writeJSONError(w, http.StatusTooManyRequests, apierror.CodeRateLimited, "Too many requests, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token. When none is available it reports how many whole
// seconds until one is.
func take(limiter *rate.Limiter) (int, bool) {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return 60, false
	}

	delay := reservation.Delay()
	if delay == 0 {
		return 0, true
	}

	reservation.Cancel()
	return max(1, int(math.Ceil(delay.Seconds()))), false
}

func (m *RateLimitMiddleware) visitor(ip string) *visitor {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	v, ok := m.visitors[ip]
	if !ok {
		if len(m.visitors) >= visitorGCAt {
			m.forgetIdleLocked(now)
		}
		v = &visitor{
			pages:       rate.NewLimiter(m.pages.every, m.pages.burst),
			credentials: rate.NewLimiter(m.credentials.every, m.credentials.burst),
		}
		m.visitors[ip] = v
	}
	v.lastSeen = now
	return v
}

func (m *RateLimitMiddleware) forgetIdleLocked(now time.Time) {
	for ip, v := range m.visitors {
		if now.Sub(v.lastSeen) > visitorIdleAfter {
			delete(m.visitors, ip)
		}
	}
}

// extractClientIP prefers the first proxy hop, then X-Real-IP, then the
// socket peer.
func extractClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}
