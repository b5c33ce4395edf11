package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayroom/relayroom/common/logging"
	commonmw "github.com/relayroom/relayroom/common/middleware"
	"github.com/relayroom/relayroom/gateway/internal/config"
	"github.com/relayroom/relayroom/gateway/internal/middleware"
	"github.com/relayroom/relayroom/gateway/internal/proxy"
	"github.com/relayroom/relayroom/gateway/internal/ratelimit"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	var limiter ratelimit.Limiter = ratelimit.AllowAll{}
	if !cfg.RateLimit.Disabled {
		limiter, err = ratelimit.New(cfg.RateLimit.RedisURL)
		if err != nil {
			log.Fatalf("Failed to initialize rate limiter: %v", err)
		}
	}
	defer limiter.Close()

	rules := middleware.Rules{
		Auth:  ratelimit.Rule{Name: "auth", PerMinute: cfg.RateLimit.Auth.PerMinute, Burst: cfg.RateLimit.Auth.Burst},
		Write: ratelimit.Rule{Name: "write", PerMinute: cfg.RateLimit.Write.PerMinute, Burst: cfg.RateLimit.Write.Burst},
		Read:  ratelimit.Rule{Name: "read", PerMinute: cfg.RateLimit.Read.PerMinute, Burst: cfg.RateLimit.Read.Burst},
	}

	authenticator := middleware.NewAuthenticator(cfg.Auth.AccessSecret)
	upstream := proxy.NewProxy(cfg.Upstream.ChatURL)

	apiHandler := authenticator.Authenticate(
		middleware.RateLimit(limiter, rules, logger)(upstream.Handler()))

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	corsCfg := commonmw.DefaultCORSConfig(cfg.CORS.AllowedOrigins)
	corsCfg.MaxAge = cfg.CORS.MaxAge

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      commonmw.RequestID(commonmw.CORS(corsCfg)(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("gateway stopped gracefully")
}
