package driven

import (
	"context"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

// CheckpointStore persists per-kind watermarks across restarts.
type CheckpointStore interface {
	// Read returns the stored watermarks. An empty or missing backing
	// resource yields an empty map, not an error.
	Read(ctx context.Context) (domain.Watermarks, error)

	// Write replaces the whole mapping. Readers never observe a partial write.
	Write(ctx context.Context, marks domain.Watermarks) error
}
