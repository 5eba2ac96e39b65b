// Package main is the entry point for the commitlens service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/internal/events"
	"github.com/commitlens/commitlens/internal/llm"
	"github.com/commitlens/commitlens/internal/server"
	"github.com/commitlens/commitlens/internal/store"
)

func main() {
	// Logger
	logLevel := slog.LevelInfo
	if os.Getenv("COMMITLENS_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Provider chain: local Ollama first, hosted OpenAI only when configured
	providers := []llm.Provider{
		llm.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaEmbedModel, cfg.OllamaChatModel),
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel, cfg.OpenAIChatModel))
	}
	chain := llm.NewChain(logger, providers...)
	logger.Info("provider chain initialized", "backends", len(providers))

	// NATS is optional; the service runs without an event bus.
	var natsClient *events.Client
	if cfg.NatsURL != "" {
		natsClient, err = events.NewClient(cfg.NatsURL, logger)
		if err != nil {
			logger.Warn("failed to connect to NATS, running without event bus", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			logger.Info("connected to NATS", "url", cfg.NatsURL)
		}
	}

	// Server
	srv := server.New(cfg, db, natsClient, chain, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down gracefully...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("commitlens starting", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("commitlens stopped")
}
