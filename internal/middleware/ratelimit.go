package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dzaakk/playtime-gateway/internal/limiter"
	"github.com/Dzaakk/playtime-gateway/internal/metrics"
)

const RateLimitReason = "Rate limit exceeded. Please try again later."

// KeyFunc resolves the caller's address. An empty result lands the caller
// in the shared unknown bucket.
type KeyFunc func(r *http.Request) string

// ClientAddr uses the first X-Forwarded-For hop when trustXFF is set and
// falls back to the connection's remote host.
func ClientAddr(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		return strings.TrimSpace(r.RemoteAddr)
	}
}

type RateLimitMiddleware struct {
	limiter    *limiter.Limiter
	logger     *slog.Logger
	clientAddr KeyFunc
	metrics    *metrics.Metrics
	// routed filters out platforms the handler will reject anyway so
	// arbitrary path segments never become store identities.
	routed func(platform string) bool
}

func NewRateLimitMiddleware(l *limiter.Limiter, logger *slog.Logger, clientAddr KeyFunc) *RateLimitMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	if clientAddr == nil {
		clientAddr = ClientAddr(false)
	}
	return &RateLimitMiddleware{
		limiter:    l,
		logger:     logger,
		clientAddr: clientAddr,
	}
}

func (m *RateLimitMiddleware) WithMetrics(mt *metrics.Metrics) *RateLimitMiddleware {
	m.metrics = mt
	return m
}

func (m *RateLimitMiddleware) OnlyRouted(routed func(platform string) bool) *RateLimitMiddleware {
	m.routed = routed
	return m
}

// Handler throttles per platform and client address. The platform comes
// from the {platform} path wildcard, so next must be mounted on a pattern
// that defines it.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		platform := r.PathValue("platform")
		if r.Method == http.MethodOptions || (m.routed != nil && !m.routed(platform)) {
			next.ServeHTTP(w, r)
			return
		}

		identity := limiter.Identity(platform, m.clientAddr(r))
		res := m.limiter.Check(r.Context(), identity)
		m.metrics.RateLimitDecision(platform, res.Allowed)

		m.setRateLimitHeaders(w, res)

		if !res.Allowed {
			m.logger.Warn("rate limit exceeded",
				"identity", identity,
				"path", r.URL.Path,
				"request_id", RequestIDFromContext(r.Context()),
			)
			m.sendRateLimitError(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) setRateLimitHeaders(w http.ResponseWriter, res limiter.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	if res.Remaining >= 0 {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	}
}

func (m *RateLimitMiddleware) sendRateLimitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"reason":  RateLimitReason,
	})
}
