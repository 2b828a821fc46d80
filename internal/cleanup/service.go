package cleanup

import (
	"context"
	"log/slog"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/event"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/storage"
)

// CacheStore removes cached project data by key.
type CacheStore interface {
	DeleteKey(ctx context.Context, key string) Result
}

// IndexRegistry removes a named vector index.
type IndexRegistry interface {
	DeleteIndex(ctx context.Context, name string) Result
}

// Report summarises one pass over a batch.
type Report struct {
	Records       int
	Skipped       int
	CacheDeleted  int
	CacheNotFound int
	CacheFailed   int
	IndexDeleted  int
	IndexNotFound int
	IndexFailed   int
}

// AllSkipped reports whether the batch had records and none of them matched.
func (r Report) AllSkipped() bool {
	return r.Records > 0 && r.Skipped == r.Records
}

// Service deletes the cache entry and vector index that belong to an
// expired output file.
type Service struct {
	cache  CacheStore
	index  IndexRegistry
	logger *slog.Logger
}

func NewService(cache CacheStore, index IndexRegistry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, index: index, logger: logger}
}

// WithLogger returns a copy of the service that logs through l.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	c := *s
	c.logger = l
	return &c
}

// Process handles every target in order. Store failures are logged and
// counted but never stop the batch.
func (s *Service) Process(ctx context.Context, targets []event.Target) Report {
	report := Report{Records: len(targets)}

	for _, target := range targets {
		if target.Key == "" {
			s.logger.WarnContext(ctx, "skipping record without object key", "bucket", target.Bucket, "event_name", target.EventName)
			report.Skipped++
			continue
		}

		key, ok := storage.ParseOutputKey(target.Key)
		if !ok {
			s.logger.InfoContext(ctx, "skipping unrecognized file format", "key", target.Key, "bucket", target.Bucket)
			report.Skipped++
			continue
		}

		s.Clean(ctx, key, &report)
	}

	s.logger.InfoContext(ctx, "cleanup pass complete",
		"records", report.Records,
		"skipped", report.Skipped,
		"cache_failed", report.CacheFailed,
		"index_failed", report.IndexFailed,
	)
	return report
}

// Clean removes both resources for a single output key.
func (s *Service) Clean(ctx context.Context, key storage.OutputKey, report *Report) {
	id := key.ResourceID()
	s.logger.DebugContext(ctx, "processing output", "key", key.Key(), "id", id)

	res := s.cache.DeleteKey(ctx, id)
	switch res.Outcome {
	case Deleted:
		report.CacheDeleted++
		s.logger.InfoContext(ctx, "deleted cache key", "store", "redis", "id", id)
	case NotFound:
		report.CacheNotFound++
		s.logger.InfoContext(ctx, "cache key not found", "store", "redis", "id", id)
	default:
		report.CacheFailed++
		s.logger.ErrorContext(ctx, "failed to delete cache key", "store", "redis", "id", id, "error", res.Err)
	}

	res = s.index.DeleteIndex(ctx, id)
	switch res.Outcome {
	case Deleted:
		report.IndexDeleted++
		s.logger.InfoContext(ctx, "deleted index", "store", "pinecone", "id", id)
	case NotFound:
		report.IndexNotFound++
		s.logger.InfoContext(ctx, "index not found", "store", "pinecone", "id", id)
	default:
		report.IndexFailed++
		s.logger.ErrorContext(ctx, "failed to delete index", "store", "pinecone", "id", id, "error", res.Err)
	}
}
