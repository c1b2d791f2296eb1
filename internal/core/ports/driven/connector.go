package driven

import (
	"context"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

// SourceConnector acquires a handle on the relational source.
// Each pass connects once and closes the handle when it ends.
type SourceConnector interface {
	Connect(ctx context.Context) (ContentSource, error)
}

// ContentSource reads movies, persons and genres from the relational store.
// Transport failures are returned wrapped in domain.ErrConnection.
type ContentSource interface {
	// Changes returns up to limit rows of kind updated strictly after since,
	// ordered by (updated_at, id).
	Changes(ctx context.Context, kind domain.EntityKind, since time.Time, limit int) ([]domain.Change, error)

	// ChangesAt returns every row of kind updated exactly at ts whose id
	// sorts after afterID, ordered by id.
	ChangesAt(ctx context.Context, kind domain.EntityKind, ts time.Time, afterID string) ([]domain.Change, error)

	// FilmIDsFor resolves person or genre ids to the distinct films they are
	// linked to. Movie ids are returned as given. Empty input yields no ids.
	FilmIDsFor(ctx context.Context, kind domain.EntityKind, ids []string) ([]string, error)

	// FilmRows returns the joined rows of the given films.
	FilmRows(ctx context.Context, filmIDs []string) ([]domain.FilmRow, error)

	// Persons loads person documents by id.
	Persons(ctx context.Context, ids []string) ([]domain.Person, error)

	// Genres loads genre documents by id.
	Genres(ctx context.Context, ids []string) ([]domain.Genre, error)

	// Close releases the handle.
	Close() error
}
