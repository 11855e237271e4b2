package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/datachat/datachat/internal/api"
	"github.com/datachat/datachat/internal/config"
	"github.com/datachat/datachat/internal/genai"
	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/pipeline"
	"github.com/datachat/datachat/internal/storage"
	s3store "github.com/datachat/datachat/internal/storage/s3"
	"github.com/datachat/datachat/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("datachat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	dataStore := store.New(cfg.Database.Path, cfg.History.TTL)
	if err := dataStore.EnsureSchema(context.Background()); err != nil {
		logger.Error("failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := genai.NewGemini(genai.GeminiConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize generator", slog.Any("error", err))
		os.Exit(1)
	}

	var archive storage.ObjectStore
	if cfg.Archive.Enabled {
		archive, err = s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize upload archive", slog.Any("error", err))
			os.Exit(1)
		}
	}

	questionService := &pipeline.Service{
		Store:          dataStore,
		Generator:      generator,
		Logger:         logger,
		CurrencySymbol: cfg.Format.CurrencySymbol,
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Readiness:         dataStore.Ping,
		DependencyTimeout: time.Second,
		Tables:            dataStore,
		Conversations:     dataStore,
		Pipeline:          questionService,
		Archive:           archive,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
