package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// Ensure SearchIndex implements the interface.
var _ driven.SearchIndex = (*SearchIndex)(nil)

// Validator decides whether a document is accepted. A non-nil error
// rejects that document only.
type Validator func(index string, doc domain.Document) error

// SearchIndex is an in-memory implementation of driven.SearchIndex.
// Documents are upserted by id per index.
type SearchIndex struct {
	mu        sync.RWMutex
	indices   map[string]map[string]domain.Document
	kinds     map[string]domain.EntityKind
	validator Validator
	requests  int
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{
		indices: make(map[string]map[string]domain.Document),
		kinds:   make(map[string]domain.EntityKind),
	}
}

// SetValidator installs a per-document acceptance check.
func (s *SearchIndex) SetValidator(v Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validator = v
}

// EnsureIndex creates the index if it does not exist.
func (s *SearchIndex) EnsureIndex(_ context.Context, name string, kind domain.EntityKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; ok {
		return false, nil
	}
	s.indices[name] = make(map[string]domain.Document)
	s.kinds[name] = kind
	return true, nil
}

// Bulk upserts docs. Missing indices are created on first write.
func (s *SearchIndex) Bulk(_ context.Context, name string, docs []domain.Document) ([]domain.BulkItemResult, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	idx, ok := s.indices[name]
	if !ok {
		idx = make(map[string]domain.Document)
		s.indices[name] = idx
	}

	results := make([]domain.BulkItemResult, len(docs))
	for i, doc := range docs {
		results[i].ID = doc.DocumentID()
		if s.validator != nil {
			if err := s.validator(name, doc); err != nil {
				results[i].Err = err
				continue
			}
		}
		idx[doc.DocumentID()] = doc
	}
	return results, nil
}

// Get returns the document stored under id.
func (s *SearchIndex) Get(name, id string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.indices[name][id]
	return doc, ok
}

// Count returns the number of documents in the index.
func (s *SearchIndex) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indices[name])
}

// IDs returns the sorted ids stored in the index.
func (s *SearchIndex) IDs(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.indices[name]))
	for id := range s.indices[name] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Requests returns the number of non-empty Bulk calls served.
func (s *SearchIndex) Requests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

// Close is a no-op.
func (s *SearchIndex) Close() error { return nil }
