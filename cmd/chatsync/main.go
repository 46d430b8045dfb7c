package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatsync/internal/config"
	"chatsync/internal/constants"
	"chatsync/internal/retry"
	"chatsync/internal/service"
	"chatsync/internal/tracing"
	"chatsync/pkg/delivery"
	"chatsync/pkg/feed"
	"chatsync/pkg/location"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("chatsync %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting chatsync")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	feedClient := feed.NewClientWithLogger(feed.ClientConfig{
		WSURL:            cfg.Feed.WSURL,
		AuthToken:        cfg.Feed.AuthToken,
		HandshakeTimeout: time.Duration(cfg.Feed.HandshakeTimeoutSec) * time.Second,
		ReconnectEnabled: cfg.Feed.ReconnectEnabled,
		Backoff: retry.BackoffConfig{
			InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:   2.0,
			MaxAttempts:  cfg.Retry.MaxAttempts,
			Jitter:       true,
		},
	}, logger)

	deliveryHTTPClient := &http.Client{
		Timeout: time.Duration(cfg.Delivery.TimeoutSec) * time.Second,
	}
	deliveryClient := delivery.NewClientWithLogger(cfg.Delivery.BaseURL, cfg.Delivery.APIKey, deliveryHTTPClient, logger)

	locationProvider := location.NewProviderWithLogger(cfg.Location.BaseURL, nil, logger)
	gate := service.NewLocationGate(
		locationProvider,
		time.Duration(cfg.Location.PermissionTimeoutSec)*time.Second,
		time.Duration(cfg.Location.PositionTimeoutSec)*time.Second,
		logger,
	)

	// One store instance is shared by the subscription manager and the send
	// pipeline; they communicate only through it.
	store := service.NewConversationStore()
	projector := service.NewProjector(cfg.Conversation.UserID)

	subscriptionManager := service.NewSubscriptionManager(feedClient, projector, store, logger)
	subscription, err := subscriptionManager.Subscribe(ctx, cfg.Conversation.Key())
	if err != nil {
		return fmt.Errorf("failed to subscribe to conversation feed: %w", err)
	}
	defer subscription.Unsubscribe()

	pipeline := service.NewSendPipeline(gate, store, deliveryClient, cfg.Conversation.UserID, logger)

	server := NewServer(cfg, store, pipeline, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
