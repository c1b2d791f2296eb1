package domain

// Relation tags how a related entity is attached to a film.
type Relation string

// Relations produced by the aggregate join.
const (
	RelationActor    Relation = "actor"
	RelationWriter   Relation = "writer"
	RelationDirector Relation = "director"
	RelationGenre    Relation = "genre"
)

// FilmRow is one row of the film aggregate join: a film plus at most one
// related entity. Films with no relations yield a single row with an empty
// Relation. Several rows share a FilmID and are merged by the transformer.
type FilmRow struct {
	// FilmID is the film_work identifier.
	FilmID string

	// Title is the film title.
	Title string

	// Description is nil when the column is null.
	Description *string

	// Rating is nil when the column is null.
	Rating *float64

	// Relation is empty when the join matched nothing.
	Relation Relation

	// RelatedID identifies the person or genre.
	RelatedID string

	// RelatedName is the person's full name or the genre's name.
	RelatedName string
}

// HasRelation reports whether the row carries a related entity.
func (r FilmRow) HasRelation() bool {
	return r.Relation != "" && r.RelatedID != ""
}
