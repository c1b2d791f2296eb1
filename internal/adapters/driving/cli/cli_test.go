package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/config/file"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/relational"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/storage/memory"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

var seedTime = time.Date(2021, 6, 16, 20, 14, 9, 0, time.UTC)

// cliEnv is a wired test environment: a seeded sqlite catalogue, a file
// checkpoint store in a temp dir and an in-memory search index.
type cliEnv struct {
	cfg       *file.Config
	db        *sql.DB
	index     *memory.SearchIndex
	statePath string
}

func setupCLITest(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	catalogue := filepath.Join(dir, "catalogue.db")
	db, err := sql.Open(relational.DriverSQLite, catalogue)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "driven", "relational", "testdata", "schema.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	seedCatalogue(t, db)

	c := file.Default()
	c.Database.Driver = relational.DriverSQLite
	c.Database.DSN = catalogue
	c.Database.Schema = "main"
	c.Checkpoint.Path = filepath.Join(dir, "state.json")
	c.Sync.PollInterval = file.Duration(time.Hour)
	c.Retry = file.RetryConfig{
		InitialInterval: file.Duration(time.Millisecond),
		MaxInterval:     file.Duration(2 * time.Millisecond),
		MaxElapsed:      file.Duration(20 * time.Millisecond),
	}

	env := &cliEnv{cfg: c, db: db, index: memory.NewSearchIndex(), statePath: c.Checkpoint.Path}

	oldLoad, oldIndex := loadConfig, openSearchIndex
	loadConfig = func(string) (*file.Config, error) { return env.cfg, nil }
	openSearchIndex = func(*file.Config) (driven.SearchIndex, error) { return env.index, nil }

	t.Cleanup(func() {
		loadConfig, openSearchIndex = oldLoad, oldIndex
		cfg = nil
		syncDryRun, syncJSON, checkpointJSON = false, false, false
		runAddr = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

// seedCatalogue creates two films: "Star Wars" with an actor and a genre,
// and "Alien" with no relations.
func seedCatalogue(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO film_work VALUES (?, ?, ?, ?, ?)", []any{"f1", "Star Wars", "space", 8.6, seedTime}},
		{"INSERT INTO film_work VALUES (?, ?, ?, ?, ?)", []any{"f2", "Alien", nil, nil, seedTime.Add(time.Second)}},
		{"INSERT INTO person VALUES (?, ?, ?, ?)", []any{"p1", "Mark Hamill", "1951-09-25", seedTime}},
		{"INSERT INTO genre VALUES (?, ?, ?, ?)", []any{"g1", "Sci-Fi", nil, seedTime}},
		{"INSERT INTO person_film_work VALUES (?, ?, ?)", []any{"f1", "p1", "actor"}},
		{"INSERT INTO genre_film_work VALUES (?, ?)", []any{"f1", "g1"}},
	}
	for _, s := range stmts {
		_, err := db.Exec(s.query, s.args...)
		require.NoError(t, err)
	}
}

// execute runs the root command and returns stdout and stderr.
func execute(ctx context.Context, args ...string) (string, string, error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// downIndex refuses every request as if the cluster were unreachable.
type downIndex struct{}

var _ driven.SearchIndex = downIndex{}

func (downIndex) EnsureIndex(context.Context, string, domain.EntityKind) (bool, error) {
	return false, domain.ConnectionError("ensure index", context.DeadlineExceeded)
}

func (downIndex) Bulk(context.Context, string, []domain.Document) ([]domain.BulkItemResult, error) {
	return nil, domain.ConnectionError("bulk", context.DeadlineExceeded)
}

func (downIndex) Close() error { return nil }

// bulkDownIndex creates indices but fails every bulk request.
type bulkDownIndex struct{ *memory.SearchIndex }

func (bulkDownIndex) Bulk(context.Context, string, []domain.Document) ([]domain.BulkItemResult, error) {
	return nil, domain.ConnectionError("bulk", context.DeadlineExceeded)
}

// recordingIndex records the kinds passed to EnsureIndex.
type recordingIndex struct {
	*memory.SearchIndex
	ensured []domain.EntityKind
}

func (r *recordingIndex) EnsureIndex(ctx context.Context, name string, kind domain.EntityKind) (bool, error) {
	r.ensured = append(r.ensured, kind)
	return r.SearchIndex.EnsureIndex(ctx, name, kind)
}
