package services

import "github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"

// TransformFilms merges joined rows into one Film per film id.
//
// Films are emitted in order of first appearance and nested refs in order of
// first appearance within each relation. A related entity appears at most
// once per relation. Later non-null scalars overwrite earlier ones. A film
// whose rows carry no relation still yields a document with empty lists.
func TransformFilms(rows []domain.FilmRow) []domain.Film {
	var order []string
	byID := make(map[string]*filmBuilder)

	for _, row := range rows {
		b, ok := byID[row.FilmID]
		if !ok {
			b = newFilmBuilder(row.FilmID)
			byID[row.FilmID] = b
			order = append(order, row.FilmID)
		}
		b.merge(row)
	}

	films := make([]domain.Film, 0, len(order))
	for _, id := range order {
		films = append(films, byID[id].film)
	}
	return films
}

type filmBuilder struct {
	film domain.Film
	seen map[domain.Relation]map[string]struct{}
}

func newFilmBuilder(id string) *filmBuilder {
	return &filmBuilder{
		film: domain.Film{ID: id},
		seen: make(map[domain.Relation]map[string]struct{}),
	}
}

func (b *filmBuilder) merge(row domain.FilmRow) {
	if row.Title != "" {
		b.film.Title = row.Title
	}
	if row.Description != nil {
		b.film.Description = row.Description
	}
	if row.Rating != nil {
		b.film.IMDbRating = row.Rating
	}
	if !row.HasRelation() {
		return
	}

	var list *[]domain.Ref
	switch row.Relation {
	case domain.RelationActor:
		list = &b.film.Actors
	case domain.RelationWriter:
		list = &b.film.Writers
	case domain.RelationDirector:
		list = &b.film.Directors
	case domain.RelationGenre:
		list = &b.film.Genres
	default:
		return
	}

	seen, ok := b.seen[row.Relation]
	if !ok {
		seen = make(map[string]struct{})
		b.seen[row.Relation] = seen
	}
	if _, dup := seen[row.RelatedID]; dup {
		return
	}
	seen[row.RelatedID] = struct{}{}
	*list = append(*list, domain.Ref{ID: row.RelatedID, Name: row.RelatedName})
}
