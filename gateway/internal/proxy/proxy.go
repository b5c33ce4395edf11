// Package proxy forwards API traffic to the chat service, promoting browser
// cookies to bearer tokens and injecting the authenticated identity as
// headers for the upstream.
package proxy

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/relayroom/relayroom/gateway/internal/metrics"
	"github.com/relayroom/relayroom/gateway/internal/middleware"
)

type Proxy struct {
	targetURL  string
	httpClient *http.Client
}

func NewProxy(targetURL string) *Proxy {
	return &Proxy{
		targetURL: strings.TrimRight(targetURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *Proxy) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		targetURL := p.targetURL + r.URL.Path
		if r.URL.RawQuery != "" {
			targetURL += "?" + r.URL.RawQuery
		}

		proxyReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, r.Body)
		if err != nil {
			log.Printf("Proxy request creation error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		for key, values := range r.Header {
			for _, value := range values {
				proxyReq.Header.Add(key, value)
			}
		}

		// Inject Authorization header from access_token cookie if not present
		if proxyReq.Header.Get("Authorization") == "" {
			if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
				proxyReq.Header.Set("Authorization", "Bearer "+c.Value)
			}
		}

		if userID := middleware.GetUserID(r.Context()); userID != "" {
			proxyReq.Header.Set("X-User-ID", userID)
		}
		if roles := middleware.GetRoles(r.Context()); len(roles) > 0 {
			proxyReq.Header.Set("X-User-Roles", strings.Join(roles, ","))
		}

		resp, err := p.httpClient.Do(proxyReq)
		if err != nil {
			log.Printf("Proxy request error: %v", err)
			metrics.UpstreamErrors.Inc()
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)

		metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()
		metrics.RequestDuration.Observe(time.Since(start).Seconds())
	})
}
