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

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/api"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cache"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cleanup"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/config"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/index"
)

func main() {
	// Ensure environment variables are loaded (absent .env is normal in Lambda)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load env vars", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Configure the global logger
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// Clients live for the whole process and are shared by every invocation
	clients := newStores(cfg)
	defer clients.Close()

	handler := api.NewHandler(cleanup.NewService(clients.cache, clients.index, slog.Default()))

	if cfg.ListenAddr == "" {
		lambda.Start(handler.HandleEvent)
		return
	}

	if err := serve(cfg.ListenAddr, handler); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	cache *cache.RedisStore
	index *index.PineconeRegistry
}

func newStores(cfg *config.Config) *stores {
	return &stores{
		cache: cache.NewRedisStore(cache.RedisConfig{
			URL:      cfg.RedisURL,
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		index: index.NewPineconeRegistry(index.PineconeConfig{
			APIKey:      cfg.PineconeAPIKey,
			Environment: cfg.PineconeEnvironment,
		}),
	}
}

func (s *stores) Close() {
	if err := s.cache.Close(); err != nil {
		slog.Warn("failed to close redis client", "error", err)
	}
}

// serve runs the HTTP surface for local runs until SIGINT or SIGTERM.
func serve(addr string, handler *api.Handler) error {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}
