package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/relayroom/relayroom/common/httputil"
	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/gateway/internal/metrics"
	"github.com/relayroom/relayroom/gateway/internal/ratelimit"
)

// Rules maps route classes to bucket shapes. Auth covers login and
// registration, Write covers mutating methods, Read covers everything else.
type Rules struct {
	Auth  ratelimit.Rule
	Write ratelimit.Rule
	Read  ratelimit.Rule
}

// RateLimit checks the route class bucket before forwarding. Authenticated
// requests are keyed by user ID, anonymous ones by remote IP. When Redis is
// unreachable requests pass through rather than failing the edge closed.
func RateLimit(limiter ratelimit.Limiter, rules Rules, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule := rules.ruleFor(r)
			key := clientKey(r)

			d, err := limiter.Check(r.Context(), rule, key)
			if err != nil {
				logger.ErrorContext(r.Context(), "rate limit check failed",
					logging.Error(err), logging.Path(r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				metrics.RateLimitHits.WithLabelValues(rule.Name).Inc()
				logger.WarnContext(r.Context(), "rate limit exceeded",
					logging.Method(r.Method),
					logging.Path(r.URL.Path),
					logging.UserID(GetUserID(r.Context())),
					"rule", rule.Name,
				)
				retryAfter := int(d.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rules Rules) ruleFor(r *http.Request) ratelimit.Rule {
	if strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
		return rules.Auth
	}
	switch r.Method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return rules.Write
	}
	return rules.Read
}

func clientKey(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return id
	}
	ip := httputil.GetClientIP(r)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
