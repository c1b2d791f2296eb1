package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.ContentSource = (*Source)(nil)

// Source reads the movie catalogue through one connection pool.
type Source struct {
	db     *sql.DB
	q      queries
	maxIDs int
}

// Close releases the pool.
func (s *Source) Close() error {
	return s.db.Close()
}

// Changes returns up to limit rows of kind updated after since.
func (s *Source) Changes(
	ctx context.Context,
	kind domain.EntityKind,
	since time.Time,
	limit int,
) ([]domain.Change, error) {
	query, ok := s.q.changes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, kind)
	}
	return s.scanChanges(ctx, "scan "+string(kind)+" changes", query, since.UTC(), limit)
}

// ChangesAt returns the rows of kind updated exactly at ts with ids after
// afterID.
func (s *Source) ChangesAt(
	ctx context.Context,
	kind domain.EntityKind,
	ts time.Time,
	afterID string,
) ([]domain.Change, error) {
	query, ok := s.q.changesAt[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, kind)
	}
	return s.scanChanges(ctx, "scan "+string(kind)+" ties", query, ts.UTC(), afterID)
}

func (s *Source) scanChanges(ctx context.Context, op, query string, args ...any) ([]domain.Change, error) {
	var out []domain.Change
	err := s.each(ctx, op, query, args, func(rows *sql.Rows) error {
		var c domain.Change
		if err := rows.Scan(&c.ID, &c.UpdatedAt); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FilmIDsFor resolves person or genre ids to the films linked to them.
func (s *Source) FilmIDsFor(ctx context.Context, kind domain.EntityKind, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var tmpl string
	switch kind {
	case domain.KindMovie:
		return domain.NewIDSet(ids...).Sorted(), nil
	case domain.KindPerson:
		tmpl = s.q.filmsByPerson
	case domain.KindGenre:
		tmpl = s.q.filmsByGenre
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, kind)
	}

	films := domain.NewIDSet()
	for _, part := range chunk(ids, s.maxIDs) {
		query, args := bindIn(tmpl, part)
		err := s.each(ctx, "resolve "+string(kind)+" films", query, args, func(rows *sql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			films.Add(id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return films.Sorted(), nil
}

// FilmRows returns one row per (film, related entity) pair, and a single
// relation-less row for films without people.
func (s *Source) FilmRows(ctx context.Context, filmIDs []string) ([]domain.FilmRow, error) {
	var out []domain.FilmRow
	for _, part := range chunk(filmIDs, s.maxIDs) {
		if len(part) == 0 {
			continue
		}
		query, args := bindIn(s.q.filmRows, part)
		err := s.each(ctx, "fetch films", query, args, func(rows *sql.Rows) error {
			var (
				row                            domain.FilmRow
				desc, relation, relID, relName sql.NullString
				rating                         sql.NullFloat64
			)
			if err := rows.Scan(&row.FilmID, &row.Title, &desc, &rating, &relation, &relID, &relName); err != nil {
				return err
			}
			if desc.Valid {
				row.Description = &desc.String
			}
			if rating.Valid {
				row.Rating = &rating.Float64
			}
			if relation.Valid && relID.Valid {
				row.Relation = domain.Relation(relation.String)
				row.RelatedID = relID.String
				row.RelatedName = relName.String
			}
			out = append(out, row)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Persons loads person documents by id.
func (s *Source) Persons(ctx context.Context, ids []string) ([]domain.Person, error) {
	var out []domain.Person
	for _, part := range chunk(ids, s.maxIDs) {
		if len(part) == 0 {
			continue
		}
		query, args := bindIn(s.q.persons, part)
		err := s.each(ctx, "load persons", query, args, func(rows *sql.Rows) error {
			var (
				p    domain.Person
				born sql.NullTime
			)
			if err := rows.Scan(&p.ID, &p.FullName, &born); err != nil {
				return err
			}
			if born.Valid {
				p.BirthDate = &born.Time
			}
			out = append(out, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Genres loads genre documents by id.
func (s *Source) Genres(ctx context.Context, ids []string) ([]domain.Genre, error) {
	var out []domain.Genre
	for _, part := range chunk(ids, s.maxIDs) {
		if len(part) == 0 {
			continue
		}
		query, args := bindIn(s.q.genres, part)
		err := s.each(ctx, "load genres", query, args, func(rows *sql.Rows) error {
			var (
				g    domain.Genre
				desc sql.NullString
			)
			if err := rows.Scan(&g.ID, &g.Name, &desc); err != nil {
				return err
			}
			if desc.Valid {
				g.Description = &desc.String
			}
			out = append(out, g)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// each runs query and calls fn for every row.
func (s *Source) each(ctx context.Context, op, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return classify(ctx, op, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return classify(ctx, op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return classify(ctx, op, err)
	}
	return nil
}
