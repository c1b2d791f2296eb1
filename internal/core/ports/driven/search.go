package driven

import (
	"context"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

// SearchIndex writes documents into named indices.
// Request-level failures are wrapped in domain.ErrConnection; per-document
// rejections are reported in the results, never as the returned error.
type SearchIndex interface {
	// EnsureIndex creates the index with the mapping for kind if it is absent.
	EnsureIndex(ctx context.Context, name string, kind domain.EntityKind) (created bool, err error)

	// Bulk upserts docs in one request and returns one result per document.
	// Empty input is a no-op.
	Bulk(ctx context.Context, name string, docs []domain.Document) ([]domain.BulkItemResult, error)

	// Close releases resources.
	Close() error
}
