package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// --- Fake relational source for pipeline testing ---

var base = time.Date(2021, 6, 16, 20, 14, 9, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

type fakeFilm struct {
	title   string
	rating  *float64
	updated time.Time
}

type fakeEntity struct {
	name    string
	updated time.Time
}

type fakeLink struct {
	film     string
	related  string
	relation domain.Relation
}

// fakeDB implements driven.SourceConnector and driven.ContentSource.
type fakeDB struct {
	mu      sync.Mutex
	films   map[string]fakeFilm
	persons map[string]fakeEntity
	genres  map[string]fakeEntity
	links   []fakeLink

	failOn   string
	failures int

	connects int
	closes   int
	rowCalls int
	tieCalls int
}

var (
	_ driven.SourceConnector = (*fakeDB)(nil)
	_ driven.ContentSource   = (*fakeDB)(nil)
)

func newFakeDB() *fakeDB {
	return &fakeDB{
		films:   make(map[string]fakeFilm),
		persons: make(map[string]fakeEntity),
		genres:  make(map[string]fakeEntity),
	}
}

func (f *fakeDB) addFilm(id, title string, updated time.Time) {
	f.films[id] = fakeFilm{title: title, updated: updated}
}

func (f *fakeDB) addPerson(id, name string, updated time.Time) {
	f.persons[id] = fakeEntity{name: name, updated: updated}
}

func (f *fakeDB) addGenre(id, name string, updated time.Time) {
	f.genres[id] = fakeEntity{name: name, updated: updated}
}

func (f *fakeDB) link(film, related string, rel domain.Relation) {
	f.links = append(f.links, fakeLink{film: film, related: related, relation: rel})
}

// failNext makes the next n calls of method return a connection failure.
func (f *fakeDB) failNext(method string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn, f.failures = method, n
}

func (f *fakeDB) fail(method string) error {
	if f.failOn == method && f.failures > 0 {
		f.failures--
		return domain.ConnectionError(method, errors.New("connection refused"))
	}
	return nil
}

func (f *fakeDB) Connect(_ context.Context) (driven.ContentSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("connect"); err != nil {
		return nil, err
	}
	f.connects++
	return f, nil
}

func (f *fakeDB) Changes(_ context.Context, kind domain.EntityKind, since time.Time, limit int) ([]domain.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("changes"); err != nil {
		return nil, err
	}

	var out []domain.Change
	add := func(id string, ts time.Time) {
		if ts.After(since) {
			out = append(out, domain.Change{ID: id, UpdatedAt: ts})
		}
	}
	switch kind {
	case domain.KindMovie:
		for id, m := range f.films {
			add(id, m.updated)
		}
	case domain.KindPerson:
		for id, p := range f.persons {
			add(id, p.updated)
		}
	case domain.KindGenre:
		for id, g := range f.genres {
			add(id, g.updated)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDB) ChangesAt(_ context.Context, kind domain.EntityKind, ts time.Time, afterID string) ([]domain.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tieCalls++
	if err := f.fail("changesat"); err != nil {
		return nil, err
	}

	entities := map[string]time.Time{}
	switch kind {
	case domain.KindMovie:
		for id, m := range f.films {
			entities[id] = m.updated
		}
	case domain.KindPerson:
		for id, p := range f.persons {
			entities[id] = p.updated
		}
	case domain.KindGenre:
		for id, g := range f.genres {
			entities[id] = g.updated
		}
	}

	var out []domain.Change
	for id, updated := range entities {
		if updated.Equal(ts) && id > afterID {
			out = append(out, domain.Change{ID: id, UpdatedAt: updated})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) FilmIDsFor(_ context.Context, kind domain.EntityKind, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("filmids"); err != nil {
		return nil, err
	}

	want := domain.NewIDSet(ids...)
	found := domain.NewIDSet()
	for _, l := range f.links {
		isGenre := l.relation == domain.RelationGenre
		if isGenre != (kind == domain.KindGenre) {
			continue
		}
		if want.Has(l.related) {
			found.Add(l.film)
		}
	}
	return found.Sorted(), nil
}

func (f *fakeDB) FilmRows(_ context.Context, ids []string) ([]domain.FilmRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowCalls++
	if err := f.fail("filmrows"); err != nil {
		return nil, err
	}

	var rows []domain.FilmRow
	for _, id := range ids {
		film, ok := f.films[id]
		if !ok {
			continue
		}
		row := domain.FilmRow{FilmID: id, Title: film.title, Rating: film.rating}
		matched := false
		for _, l := range f.links {
			if l.film != id {
				continue
			}
			matched = true
			r := row
			r.Relation, r.RelatedID = l.relation, l.related
			if l.relation == domain.RelationGenre {
				r.RelatedName = f.genres[l.related].name
			} else {
				r.RelatedName = f.persons[l.related].name
			}
			rows = append(rows, r)
		}
		if !matched {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeDB) Persons(_ context.Context, ids []string) ([]domain.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("persons"); err != nil {
		return nil, err
	}
	var out []domain.Person
	for _, id := range ids {
		if p, ok := f.persons[id]; ok {
			out = append(out, domain.Person{ID: id, FullName: p.name})
		}
	}
	return out, nil
}

func (f *fakeDB) Genres(_ context.Context, ids []string) ([]domain.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("genres"); err != nil {
		return nil, err
	}
	var out []domain.Genre
	for _, id := range ids {
		if g, ok := f.genres[id]; ok {
			out = append(out, domain.Genre{ID: id, Name: g.name})
		}
	}
	return out, nil
}

func (f *fakeDB) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// failingCheckpoints wraps a store and fails writes after the first n.
type failingCheckpoints struct {
	driven.CheckpointStore
	allowWrites int
	readErr     error
}

func (f *failingCheckpoints) Read(ctx context.Context) (domain.Watermarks, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.CheckpointStore.Read(ctx)
}

func (f *failingCheckpoints) Write(ctx context.Context, marks domain.Watermarks) error {
	if f.allowWrites <= 0 {
		return errors.New("disk full")
	}
	f.allowWrites--
	return f.CheckpointStore.Write(ctx, marks)
}

func testSyncConfig() domain.SyncConfig {
	cfg := domain.DefaultSyncConfig()
	cfg.Retry = domain.RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      50 * time.Millisecond,
	}
	return cfg
}
