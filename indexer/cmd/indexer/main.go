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
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayroom/relayroom/common/httputil"
	"github.com/relayroom/relayroom/common/logging"
	"github.com/relayroom/relayroom/common/messaging"
	natsclient "github.com/relayroom/relayroom/common/messaging/nats"
	"github.com/relayroom/relayroom/indexer/internal/client"
	"github.com/relayroom/relayroom/indexer/internal/config"
	"github.com/relayroom/relayroom/indexer/internal/indexer"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	// Connect to OpenSearch
	osClient, err := client.NewOpenSearchClient(cfg.OpenSearch)
	if err != nil {
		logger.Error("failed to connect to opensearch", "error", err)
		os.Exit(1)
	}
	if err := osClient.EnsureIndex(context.Background(), cfg.Indexer.Index); err != nil {
		logger.Error("failed to ensure index", "index", cfg.Indexer.Index, "error", err)
		os.Exit(1)
	}
	logger.Info("connected to opensearch", "url", cfg.OpenSearch.URL, "index", cfg.Indexer.Index)

	// Connect to NATS
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = "relayroom-indexer"
	nc, err := natsclient.NewClient(natsCfg)
	if err != nil {
		logger.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	logger.Info("connected to nats", "url", cfg.NATS.URL)

	ix := indexer.New(cfg.Indexer, indexer.NewOpenSearchWriter(osClient.Client()), logger)
	if err := ix.Start(nc); err != nil {
		logger.Error("failed to start indexer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := messaging.CheckClientHealth(r.Context(), nc)
		status := http.StatusOK
		if !health.Connected {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, health)
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}
	go func() {
		logger.Info("metrics server listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down indexer")

	if err := ix.Stop(); err != nil {
		logger.Error("failed to flush pending batch", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	logger.Info("indexer stopped")
}
