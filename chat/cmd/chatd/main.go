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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/relayroom/relayroom/chat/internal/config"
	"github.com/relayroom/relayroom/chat/internal/handlers"
	authmw "github.com/relayroom/relayroom/chat/internal/middleware"
	"github.com/relayroom/relayroom/chat/internal/repository"
	"github.com/relayroom/relayroom/chat/internal/server"
	"github.com/relayroom/relayroom/chat/internal/service"
	"github.com/relayroom/relayroom/chat/internal/sessions"
	"github.com/relayroom/relayroom/chat/pkg/tokens"
	"github.com/relayroom/relayroom/common/events"
	"github.com/relayroom/relayroom/common/logging"
	natsclient "github.com/relayroom/relayroom/common/messaging/nats"
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

	connString := cfg.Database.ConnString()

	// Run database migrations
	logger.Info("running database migrations")
	m, err := migrate.New("file://"+cfg.Database.MigrationsDir, connString)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository
	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	// Initialize session store
	sessionTokens := tokens.NewTokenGenerator(cfg.Auth.AccessSecret)
	sessionStore, err := sessions.NewStore(cfg.Redis.URL, sessionTokens.RefreshTTL())
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer sessionStore.Close()

	// Connect to the broker and build the event publisher
	transport, closeTransport, err := buildTransport(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer closeTransport()

	publisher, err := events.NewAdaptivePublisher(publisherConfig(cfg), transport, logger)
	if err != nil {
		log.Fatalf("Failed to build event publisher: %v", err)
	}
	defer publisher.Close()

	// Wire services and handlers
	authService := service.NewAuthService(repo, sessionTokens, sessionStore, publisher, logger)
	chatService := service.NewChatService(repo, publisher, logger)

	router := server.NewRouter(
		handlers.NewAuthHandler(authService),
		handlers.NewRoomHandler(chatService),
		handlers.NewMessageHandler(chatService),
		handlers.NewAdminHandler(publisher),
		authmw.NewAuthMiddleware(authService),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("chat service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Publisher drains its queue in Close before the transport goes away.
	logger.Info("server stopped gracefully")
}

// buildTransport returns the broker transport for the publisher. With
// JetStream enabled, publishes are durable and broker-acknowledged.
func buildTransport(cfg *config.Config) (events.Transport, func(), error) {
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = "relayroom-chat"

	if cfg.NATS.JetStream {
		js, err := natsclient.NewJetStreamClient(natsCfg)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), natsCfg.Timeout)
		defer cancel()
		for _, stream := range []natsclient.StreamConfig{natsclient.ChatEventsStream, natsclient.AccountEventsStream} {
			if _, err := js.CreateOrUpdateStream(ctx, stream); err != nil {
				js.Close()
				return nil, nil, err
			}
		}
		return natsclient.NewDurableTransport(js), func() { js.Close() }, nil
	}

	client, err := natsclient.NewClient(natsCfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Close() }, nil
}

func publisherConfig(cfg *config.Config) events.Config {
	pc := events.DefaultConfig()
	if cfg.Publisher.QueueCapacity > 0 {
		pc.QueueCapacity = cfg.Publisher.QueueCapacity
	}
	if cfg.Publisher.Workers > 0 {
		pc.Workers = cfg.Publisher.Workers
	}
	if cfg.Publisher.MaxInflight > 0 {
		pc.MaxInflight = cfg.Publisher.MaxInflight
	}
	if cfg.Publisher.EnqueueTimeout > 0 {
		pc.EnqueueTimeout = cfg.Publisher.EnqueueTimeout
	}
	if cfg.Publisher.PublishTimeout > 0 {
		pc.PublishTimeout = cfg.Publisher.PublishTimeout
	}
	pc.DropLowPriority = cfg.Publisher.DropLowPriority

	switch cfg.Publisher.InitialBackend {
	case "high_performance":
		b := events.BackendHighPerformance
		pc.InitialOverride = &b
	case "legacy":
		b := events.BackendLegacy
		pc.InitialOverride = &b
	}
	return pc
}
