package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cache"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cleanup"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/config"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/exitcode"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/index"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/model"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/storage"
)

func main() {
	// Configure the global logger (level is reset once config is loaded)
	slog.SetDefault(newLogger(os.Stdout, slog.LevelInfo))

	// Parse CLI flags
	deleteOrphans := flag.Bool("delete", false, "Delete orphaned projects (default only reports them)")
	grace := flag.Duration("grace", 15*time.Minute, "How long an orphan must stay without its output before deletion")
	exclude := flag.String("exclude", "", "Comma-separated index names the sweep must never touch")
	runIDStr := flag.String("run-id", "", "Run identifier (UUIDv7, generated when empty)")
	flag.Parse()

	runID := model.RunID(*runIDStr)
	if runID == "" {
		runID = model.RunID(model.NewInvocationID())
	}
	if err := runID.Validate(); err != nil {
		slog.Error("invalid run-id", "error", err)
		fmt.Fprintf(os.Stderr, "Usage: run-id must be a UUIDv7\n")
		os.Exit(exitcode.ConfigError)
	}

	// Ensure environment variables are loaded
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load env vars", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitcode.ConfigError)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.LogLevel))

	if err := cfg.RequireBucket(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitcode.ConfigError)
	}

	// Create a cancellable context (for graceful shutdown)
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bucket, err := storage.NewMinIOClient(ctx, storage.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
	if err != nil {
		slog.Error("failed to initialize minio client", "error", err)
		os.Exit(exitcode.StorageError)
	}

	redisStore := cache.NewRedisStore(cache.RedisConfig{
		URL:      cfg.RedisURL,
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	registry := index.NewPineconeRegistry(index.PineconeConfig{
		APIKey:      cfg.PineconeAPIKey,
		Environment: cfg.PineconeEnvironment,
	})

	logger := slog.Default().With("run_id", runID.String())
	svc := cleanup.NewService(redisStore, registry, logger)

	opts := cleanup.SweepOptions{
		Delete:  *deleteOrphans,
		Grace:   *grace,
		Exclude: splitList(*exclude),
	}
	code := run(ctx, cleanup.NewSweeper(svc, registry, bucket, opts))
	if err := redisStore.Close(); err != nil {
		logger.Warn("failed to close redis client", "error", err)
	}
	os.Exit(code)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// sweeper is satisfied by *cleanup.Sweeper.
type sweeper interface {
	Sweep(ctx context.Context) (cleanup.SweepReport, error)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, s sweeper) int {
	report, err := s.Sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "sweep failed", "error", err)
		return exitcode.StorageError
	}
	if report.Failures() > 0 {
		slog.WarnContext(ctx, "sweep finished with failures", "failures", report.Failures())
		return exitcode.PartialFailure
	}
	return exitcode.Success
}
