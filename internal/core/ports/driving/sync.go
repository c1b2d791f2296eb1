package driving

import (
	"context"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

// SyncOrchestrator runs synchronisation passes from the relational source
// into the search index.
type SyncOrchestrator interface {
	// RunPass runs one pass. Completed and abandoned passes return a nil
	// error; checkpoint failures and invariant violations do not.
	RunPass(ctx context.Context) (*domain.PassReport, error)

	// EnsureIndices creates the movie, genre and person indices if absent.
	EnsureIndices(ctx context.Context) error

	// LastReport returns the report of the most recent pass, or nil.
	LastReport() *domain.PassReport
}

// StatusProvider exposes sync progress to the status server.
type StatusProvider interface {
	LastReport() *domain.PassReport
	Watermarks(ctx context.Context) (domain.Watermarks, error)
}
