package domain

import (
	"encoding/json"
	"time"
)

// Document is the unit written to the search index.
// Writing a document replaces any previous version with the same ID.
type Document interface {
	DocumentID() string
}

// Ref is a nested {id, name} entry on a film.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Film is the denormalised movie document.
// The genre and *_names lists are derived from the nested refs when the
// document is serialised.
type Film struct {
	ID          string
	Title       string
	Description *string
	IMDbRating  *float64
	Genres      []Ref
	Actors      []Ref
	Writers     []Ref
	Directors   []Ref
}

// DocumentID implements Document.
func (f Film) DocumentID() string { return f.ID }

type filmJSON struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	IMDbRating     *float64 `json:"imdb_rating"`
	Genre          []string `json:"genre"`
	Genres         []Ref    `json:"genres"`
	Actors         []Ref    `json:"actors"`
	Writers        []Ref    `json:"writers"`
	Directors      []Ref    `json:"directors"`
	ActorsNames    []string `json:"actors_names"`
	WritersNames   []string `json:"writers_names"`
	DirectorsNames []string `json:"directors_names"`
}

// MarshalJSON writes the field names the read side deserialises.
func (f Film) MarshalJSON() ([]byte, error) {
	return json.Marshal(filmJSON{
		ID:             f.ID,
		Title:          f.Title,
		Description:    f.Description,
		IMDbRating:     f.IMDbRating,
		Genre:          names(f.Genres),
		Genres:         refs(f.Genres),
		Actors:         refs(f.Actors),
		Writers:        refs(f.Writers),
		Directors:      refs(f.Directors),
		ActorsNames:    names(f.Actors),
		WritersNames:   names(f.Writers),
		DirectorsNames: names(f.Directors),
	})
}

func refs(in []Ref) []Ref {
	if in == nil {
		return []Ref{}
	}
	return in
}

func names(in []Ref) []string {
	out := make([]string, len(in))
	for i, r := range in {
		out[i] = r.Name
	}
	return out
}

// Genre is the standalone genre document.
type Genre struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// DocumentID implements Document.
func (g Genre) DocumentID() string { return g.ID }

// BirthDateLayout is the wire format of Person.BirthDate.
const BirthDateLayout = "2006-01-02"

// Person is the standalone person document.
type Person struct {
	ID        string
	FullName  string
	BirthDate *time.Time
}

// DocumentID implements Document.
func (p Person) DocumentID() string { return p.ID }

// MarshalJSON writes birth_date as a calendar date, omitted when unknown.
func (p Person) MarshalJSON() ([]byte, error) {
	out := struct {
		ID        string `json:"id"`
		FullName  string `json:"full_name"`
		BirthDate string `json:"birth_date,omitempty"`
	}{ID: p.ID, FullName: p.FullName}
	if p.BirthDate != nil {
		out.BirthDate = p.BirthDate.Format(BirthDateLayout)
	}
	return json.Marshal(out)
}

// BulkItemResult is the index's verdict on one submitted document.
// Err is nil when the document was accepted.
type BulkItemResult struct {
	ID  string
	Err error
}

// BulkReport aggregates the results of one or more bulk requests.
type BulkReport struct {
	Indexed  int
	Rejected int
	Results  []BulkItemResult
}

// Add records results into the report.
func (r *BulkReport) Add(results ...BulkItemResult) {
	for _, res := range results {
		if res.Err != nil {
			r.Rejected++
		} else {
			r.Indexed++
		}
		r.Results = append(r.Results, res)
	}
}

// Merge folds other into r.
func (r *BulkReport) Merge(other BulkReport) {
	r.Indexed += other.Indexed
	r.Rejected += other.Rejected
	r.Results = append(r.Results, other.Results...)
}
