// Package file provides a CheckpointStore persisted as a JSON object in a
// single file: {"person": "<RFC3339Nano>", "genre": ..., "movie": ...}.
//
// Writes go to a temporary file in the same directory which is synced and
// renamed over the target, so a reader sees either the old or the new
// mapping, never a partial one.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CheckpointStore = (*Store)(nil)

// legacyLayouts are accepted when reading values written by older tools.
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Store keeps watermarks in a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by path. The file is created on first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Read parses the file. A missing or empty file yields an empty mapping.
// Unknown keys are ignored.
func (s *Store) Read(_ context.Context) (domain.Watermarks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Watermarks{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Watermarks{}, nil
	}

	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding checkpoint file %s: %w", s.path, err)
	}

	marks := make(domain.Watermarks, len(raw))
	for key, value := range raw {
		kind := domain.EntityKind(key)
		if !kind.IsValid() || value == nil {
			continue
		}
		ts, err := parseTimestamp(*value)
		if err != nil {
			return nil, fmt.Errorf("decoding %s watermark: %w", key, err)
		}
		marks[kind] = ts
	}
	return marks, nil
}

// Write replaces the file contents atomically.
func (s *Store) Write(_ context.Context, marks domain.Watermarks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(marks)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing checkpoint file: %w", err)
	}
	return nil
}

func encode(marks domain.Watermarks) ([]byte, error) {
	kinds := make([]string, 0, len(marks))
	for k := range marks {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	out := make(map[string]string, len(marks))
	for _, k := range kinds {
		out[k] = marks[domain.EntityKind(k)].UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding watermarks: %w", err)
	}
	return append(data, '\n'), nil
}

func parseTimestamp(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range legacyLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
