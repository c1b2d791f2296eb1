package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

func TestStore_ReadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	marks, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestStore_ReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	marks, err := NewStore(path).Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewStore(path)
	want := domain.Watermarks{
		domain.KindPerson: time.Date(2021, 6, 16, 20, 14, 9, 532000000, time.UTC),
		domain.KindGenre:  domain.MinTimestamp,
		domain.KindMovie:  time.Date(2021, 6, 16, 20, 14, 9, 0, time.UTC),
	}

	require.NoError(t, store.Write(ctx, want))

	got, err := NewStore(path).Read(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for k, ts := range want {
		assert.True(t, ts.Equal(got[k]), k)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"person": "2021-06-16T20:14:09.532Z"`)
}

func TestStore_ReadLegacyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	legacy := `{
		"person": "2021-06-16 20:14:09.532000+00:00",
		"genre": "0001-01-01 00:00:00",
		"movie": null,
		"film_work": "2021-06-16 20:14:09"
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	marks, err := NewStore(path).Read(context.Background())
	require.NoError(t, err)

	assert.True(t, time.Date(2021, 6, 16, 20, 14, 9, 532000000, time.UTC).Equal(marks[domain.KindPerson]))
	assert.True(t, marks[domain.KindGenre].IsZero())
	_, ok := marks[domain.KindMovie]
	assert.False(t, ok, "null is treated as absent")
	assert.Len(t, marks, 2)
}

func TestStore_ReadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path).Read(context.Background())
	assert.Error(t, err)
}

func TestStore_ReadBadTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"movie": "yesterday"}`), 0o644))

	_, err := NewStore(path).Read(context.Background())
	assert.Error(t, err)
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Write(context.Background(), domain.Watermarks{domain.KindMovie: time.Unix(int64(i), 0)}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestStore_ConcurrentReadersSeeWholeMappings(t *testing.T) {
	ctx := context.Background()
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, store.Write(ctx, domain.Watermarks{
		domain.KindPerson: time.Unix(0, 0), domain.KindGenre: time.Unix(0, 0), domain.KindMovie: time.Unix(0, 0),
	}))

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(2)
		go func(n int64) {
			defer wg.Done()
			ts := time.Unix(n, 0)
			assert.NoError(t, store.Write(ctx, domain.Watermarks{
				domain.KindPerson: ts, domain.KindGenre: ts, domain.KindMovie: ts,
			}))
		}(int64(i))
		go func() {
			defer wg.Done()
			marks, err := store.Read(ctx)
			assert.NoError(t, err)
			assert.Len(t, marks, 3)
		}()
	}
	wg.Wait()
}
