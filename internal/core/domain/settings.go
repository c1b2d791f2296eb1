package domain

import "time"

// Defaults for a synchronisation pass.
const (
	DefaultBatchSize      = 100
	DefaultGenreBatchSize = 5
	DefaultBulkSize       = 500

	DefaultMoviesIndex  = "movies"
	DefaultGenresIndex  = "genres"
	DefaultPersonsIndex = "persons"
)

// IndexNames maps document kinds to search index names.
type IndexNames struct {
	Movies  string
	Genres  string
	Persons string
}

// For returns the index holding documents of kind.
func (n IndexNames) For(kind EntityKind) string {
	switch kind {
	case KindPerson:
		return n.Persons
	case KindGenre:
		return n.Genres
	default:
		return n.Movies
	}
}

// RetryPolicy bounds the exponential backoff around a pass.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	JitterPercent   uint64
}

// SyncConfig carries the settings a pass needs.
// It is built once at startup and passed by value into the orchestrator.
type SyncConfig struct {
	// BatchSize bounds person and movie change scans.
	BatchSize int

	// GenreBatchSize bounds genre change scans. Kept small since one genre
	// change fans out to many films.
	GenreBatchSize int

	// BulkSize caps the documents sent in one bulk request.
	BulkSize int

	// ConcurrentExtract runs the three change scans in parallel.
	ConcurrentExtract bool

	Indices IndexNames
	Retry   RetryPolicy
}

// DefaultSyncConfig returns the stock settings.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		BatchSize:      DefaultBatchSize,
		GenreBatchSize: DefaultGenreBatchSize,
		BulkSize:       DefaultBulkSize,
		Indices: IndexNames{
			Movies:  DefaultMoviesIndex,
			Genres:  DefaultGenresIndex,
			Persons: DefaultPersonsIndex,
		},
		Retry: RetryPolicy{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			MaxElapsed:      10 * time.Second,
			JitterPercent:   10,
		},
	}
}

// BatchSizeFor returns the change-scan limit for kind.
func (c SyncConfig) BatchSizeFor(kind EntityKind) int {
	if kind == KindGenre {
		return c.GenreBatchSize
	}
	return c.BatchSize
}

// DefaultPollInterval is the sleep between passes.
const DefaultPollInterval = 10 * time.Second

// SchedulerConfig controls the outer loop that runs passes.
type SchedulerConfig struct {
	// PollInterval is the sleep between the end of one pass and the next.
	PollInterval time.Duration

	// Jitter adds a random delay in [0, Jitter) to each sleep.
	Jitter time.Duration
}
