package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cleanup"
)

// PineconeConfig holds Pinecone control plane settings.
type PineconeConfig struct {
	APIKey string
	// Environment is only meaningful for legacy pod-based projects and is
	// not needed by the serverless control plane.
	Environment string
}

// indexAPI is the subset of *pinecone.Client the registry uses.
type indexAPI interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	DeleteIndex(ctx context.Context, idxName string) error
}

// PineconeRegistry deletes project indexes from Pinecone.
type PineconeRegistry struct {
	api     indexAPI
	initErr error
}

// NewPineconeRegistry never fails: client construction errors surface on
// first use.
func NewPineconeRegistry(cfg PineconeConfig) *PineconeRegistry {
	if cfg.Environment != "" {
		slog.Debug("pinecone environment is ignored by the serverless control plane", "environment", cfg.Environment)
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return &PineconeRegistry{initErr: fmt.Errorf("create pinecone client: %w", err)}
	}
	return &PineconeRegistry{api: client}
}

func newRegistry(api indexAPI) *PineconeRegistry {
	return &PineconeRegistry{api: api}
}

// ListNames returns the set of index names in the project.
func (r *PineconeRegistry) ListNames(ctx context.Context) (map[string]struct{}, error) {
	if r.initErr != nil {
		return nil, r.initErr
	}

	indexes, err := r.api.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	names := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		if idx == nil || idx.Name == "" {
			continue
		}
		names[idx.Name] = struct{}{}
	}
	return names, nil
}

// DeleteIndex implements cleanup.IndexRegistry. No delete call is issued
// for a name that is not listed.
func (r *PineconeRegistry) DeleteIndex(ctx context.Context, name string) cleanup.Result {
	names, err := r.ListNames(ctx)
	if err != nil {
		return cleanup.FailedResult(err)
	}
	if _, ok := names[name]; !ok {
		return cleanup.NotFoundResult()
	}

	if err := r.api.DeleteIndex(ctx, name); err != nil {
		// Another invocation may have removed it between list and delete.
		if names, listErr := r.ListNames(ctx); listErr == nil {
			if _, still := names[name]; !still {
				return cleanup.NotFoundResult()
			}
		}
		return cleanup.FailedResult(fmt.Errorf("delete index %q: %w", name, err))
	}
	return cleanup.DeletedResult()
}
