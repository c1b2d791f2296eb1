package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/storage/memory"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

type syncFixture struct {
	db          *fakeDB
	index       *memory.SearchIndex
	checkpoints *memory.CheckpointStore
	orch        *SyncOrchestrator
}

func newSyncFixture(t *testing.T, opts ...func(*domain.SyncConfig)) *syncFixture {
	t.Helper()
	cfg := testSyncConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	f := &syncFixture{
		db:          newFakeDB(),
		index:       memory.NewSearchIndex(),
		checkpoints: memory.NewCheckpointStore(nil),
	}
	f.orch = NewSyncOrchestrator(cfg, f.checkpoints, f.db, f.index)
	return f
}

func (f *syncFixture) marks(t *testing.T) domain.Watermarks {
	t.Helper()
	marks, err := f.checkpoints.Read(context.Background())
	require.NoError(t, err)
	return marks
}

// seedCatalog creates films A, B, C; person P acts in A and directs B.
func (f *syncFixture) seedCatalog() {
	f.db.addFilm("fA", "Alpha", at(1))
	f.db.addFilm("fB", "Beta", at(2))
	f.db.addFilm("fC", "Gamma", at(3))
	f.db.addPerson("pP", "Pat", at(1))
	f.db.addPerson("pQ", "Quinn", at(1))
	f.db.addGenre("gD", "Drama", at(1))
	f.db.link("fA", "pP", domain.RelationActor)
	f.db.link("fB", "pP", domain.RelationDirector)
	f.db.link("fC", "pQ", domain.RelationActor)
	f.db.link("fA", "gD", domain.RelationGenre)
}

func TestRunPass_FirstPassInitialisesAndFullySyncs(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()

	report, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.PassCompleted, report.Status)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, 3, report.FilmsAffected)
	assert.Equal(t, []string{"fA", "fB", "fC"}, f.index.IDs("movies"))
	assert.Equal(t, []string{"pP", "pQ"}, f.index.IDs("persons"))
	assert.Equal(t, []string{"gD"}, f.index.IDs("genres"))
	assert.Equal(t, 2, f.checkpoints.Writes(), "initialisation and advancement")

	marks := f.marks(t)
	assert.Equal(t, at(1), marks[domain.KindPerson])
	assert.Equal(t, at(1), marks[domain.KindGenre])
	assert.Equal(t, at(3), marks[domain.KindMovie])

	assert.Equal(t, []domain.Stage{
		domain.StageReadWatermarks,
		domain.StageExtractPerson,
		domain.StageExtractGenre,
		domain.StageExtractMovie,
		domain.StageResolveUnion,
		domain.StageFetchAggregates,
		domain.StageTransform,
		domain.StageBulkIndex,
		domain.StageAdvanceWatermarks,
	}, report.Stages)

	doc, ok := f.index.Get("movies", "fA")
	require.True(t, ok)
	film := doc.(domain.Film)
	assert.Equal(t, []domain.Ref{{ID: "pP", Name: "Pat"}}, film.Actors)
	assert.Equal(t, []domain.Ref{{ID: "gD", Name: "Drama"}}, film.Genres)
}

func TestRunPass_NoChangesKeepsWatermarks(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	ctx := context.Background()

	_, err := f.orch.RunPass(ctx)
	require.NoError(t, err)
	before := f.marks(t)
	rowCalls := f.db.rowCalls

	report, err := f.orch.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PassCompleted, report.Status)
	assert.Zero(t, report.FilmsAffected)
	assert.Equal(t, before, f.marks(t))
	assert.Equal(t, rowCalls, f.db.rowCalls, "no fetch for an empty union")
	assert.NotContains(t, report.Stages, domain.StageFetchAggregates)
}

func TestRunPass_PersonUpdateReindexesLinkedFilmsOnly(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	ctx := context.Background()
	_, err := f.orch.RunPass(ctx)
	require.NoError(t, err)

	// Rename P after the first pass.
	f.db.addPerson("pP", "Patricia", at(10))
	_, err = f.index.Bulk(ctx, "movies", []domain.Document{domain.Film{ID: "fC", Title: "sentinel"}})
	require.NoError(t, err)

	report, err := f.orch.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilmsAffected)
	assert.Equal(t, 1, report.Changes[domain.KindPerson])

	a, _ := f.index.Get("movies", "fA")
	assert.Equal(t, []domain.Ref{{ID: "pP", Name: "Patricia"}}, a.(domain.Film).Actors)
	b, _ := f.index.Get("movies", "fB")
	assert.Equal(t, []domain.Ref{{ID: "pP", Name: "Patricia"}}, b.(domain.Film).Directors)
	assert.Empty(t, b.(domain.Film).Actors)
	c, _ := f.index.Get("movies", "fC")
	assert.Equal(t, "sentinel", c.(domain.Film).Title, "unrelated film untouched")

	assert.Equal(t, at(10), f.marks(t)[domain.KindPerson])
}

func TestRunPass_GenreBacklogDrainsInTwoPasses(t *testing.T) {
	f := newSyncFixture(t)
	for i := 1; i <= 7; i++ {
		f.db.addGenre(fmt.Sprintf("g%d", i), "Genre", at(i))
	}
	ctx := context.Background()

	report, err := f.orch.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Changes[domain.KindGenre])
	assert.Equal(t, at(5), f.marks(t)[domain.KindGenre])

	report, err = f.orch.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Changes[domain.KindGenre])
	assert.Equal(t, at(7), f.marks(t)[domain.KindGenre])

	assert.Equal(t, 7, f.index.Count("genres"))
}

func TestRunPass_ConnectionFailureDuringFetchIsAbandoned(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.db.failNext("filmrows", 1000)

	report, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.PassAbandoned, report.Status)
	assert.Greater(t, report.Attempts, 1)
	assert.NotEmpty(t, report.Error)
	assert.Zero(t, f.index.Count("movies"))

	// Only the initial minimum-timestamp write happened.
	assert.Equal(t, 1, f.checkpoints.Writes())
	for _, ts := range f.marks(t) {
		assert.True(t, ts.IsZero())
	}
	assert.Equal(t, f.db.connects, f.db.closes, "every handle released")
}

func TestRunPass_TransientFailureIsRetried(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.db.failNext("connect", 2)

	report, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.PassCompleted, report.Status)
	assert.Equal(t, 3, report.Attempts)
	assert.Equal(t, 3, f.index.Count("movies"))
}

func TestRunPass_RejectionsStillAdvanceWatermarks(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.index.SetValidator(func(_ string, doc domain.Document) error {
		return &domain.RejectionError{ID: doc.DocumentID(), Type: "mapper_parsing_exception", Reason: "strict"}
	})

	report, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.PassCompleted, report.Status)
	assert.Zero(t, report.Indexed)
	assert.Equal(t, 6, report.Rejected)

	marks := f.marks(t)
	assert.Equal(t, at(1), marks[domain.KindPerson])
	assert.Equal(t, at(1), marks[domain.KindGenre])
	assert.Equal(t, at(3), marks[domain.KindMovie])
}

func TestRunPass_CountsCombineAcrossIndices(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.index.SetValidator(func(name string, doc domain.Document) error {
		if name != "movies" {
			return nil
		}
		return &domain.RejectionError{ID: doc.DocumentID(), Reason: "strict"}
	})

	report, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)

	// pP, pQ and gD accepted; the three films refused.
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 3, report.Rejected)
}

func TestRunPass_CheckpointWriteFailure(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	store := &failingCheckpoints{CheckpointStore: f.checkpoints, allowWrites: 1}
	orch := NewSyncOrchestrator(testSyncConfig(), store, f.db, f.index)

	report, err := orch.RunPass(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCheckpoint))
	assert.Equal(t, domain.PassFailed, report.Status)
	assert.Equal(t, 1, report.Attempts, "checkpoint failures are not retried")
	assert.Equal(t, domain.StageAdvanceWatermarks, report.Stages[len(report.Stages)-1])
}

func TestRunPass_CheckpointReadFailure(t *testing.T) {
	f := newSyncFixture(t)
	store := &failingCheckpoints{CheckpointStore: f.checkpoints, readErr: errors.New("corrupt")}
	orch := NewSyncOrchestrator(testSyncConfig(), store, f.db, f.index)

	report, err := orch.RunPass(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCheckpoint))
	assert.Equal(t, domain.PassFailed, report.Status)
	assert.Zero(t, f.db.connects)
}

func TestRunPass_InvariantViolationFails(t *testing.T) {
	f := newSyncFixture(t)
	orch := NewSyncOrchestrator(testSyncConfig(), f.checkpoints, connectorFunc(func() driven.ContentSource {
		return unorderedSource{f.db}
	}), f.index)

	report, err := orch.RunPass(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInvariant))
	assert.Equal(t, domain.PassFailed, report.Status)
}

func TestRunPass_ConcurrentExtractMatchesSequential(t *testing.T) {
	seq := newSyncFixture(t)
	seq.seedCatalog()
	conc := newSyncFixture(t, func(c *domain.SyncConfig) { c.ConcurrentExtract = true })
	conc.seedCatalog()
	ctx := context.Background()

	r1, err := seq.orch.RunPass(ctx)
	require.NoError(t, err)
	r2, err := conc.orch.RunPass(ctx)
	require.NoError(t, err)

	assert.Equal(t, r1.Candidates, r2.Candidates)
	assert.Equal(t, r1.Stages, r2.Stages)
	assert.Equal(t, seq.index.IDs("movies"), conc.index.IDs("movies"))
	assert.Equal(t, seq.marks(t), conc.marks(t))
}

func TestRunPass_BulkSizeSplitsRequests(t *testing.T) {
	f := newSyncFixture(t, func(c *domain.SyncConfig) { c.BulkSize = 1 })
	f.seedCatalog()

	_, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)
	// 2 persons + 1 genre + 3 films, one document per request.
	assert.Equal(t, 6, f.index.Requests())
}

func TestRunPass_CancelledContext(t *testing.T) {
	f := newSyncFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.orch.RunPass(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, domain.PassAbandoned, report.Status)
}

func TestLastReportAndWatermarks(t *testing.T) {
	f := newSyncFixture(t)
	assert.Nil(t, f.orch.LastReport())

	report, err := f.orch.RunPass(context.Background())
	require.NoError(t, err)
	assert.Same(t, report, f.orch.LastReport())

	marks, err := f.orch.Watermarks(context.Background())
	require.NoError(t, err)
	assert.Len(t, marks, 3)
}

func TestEnsureIndices(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	require.NoError(t, f.orch.EnsureIndices(ctx))
	for _, name := range []string{"movies", "genres", "persons"} {
		created, err := f.index.EnsureIndex(ctx, name, domain.KindMovie)
		require.NoError(t, err)
		assert.False(t, created, name)
	}
}

// connectorFunc adapts a constructor into a driven.SourceConnector.
type connectorFunc func() driven.ContentSource

func (fn connectorFunc) Connect(context.Context) (driven.ContentSource, error) { return fn(), nil }
