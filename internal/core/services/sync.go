package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driving"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// Ensure SyncOrchestrator implements the interfaces.
var (
	_ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)
	_ driving.StatusProvider   = (*SyncOrchestrator)(nil)
)

// SyncOrchestrator runs one synchronisation pass at a time.
type SyncOrchestrator struct {
	cfg         domain.SyncConfig
	checkpoints driven.CheckpointStore
	connector   driven.SourceConnector
	index       driven.SearchIndex
	now         func() time.Time

	mu   sync.RWMutex
	last *domain.PassReport
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	cfg domain.SyncConfig,
	checkpoints driven.CheckpointStore,
	connector driven.SourceConnector,
	index driven.SearchIndex,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		cfg:         cfg,
		checkpoints: checkpoints,
		connector:   connector,
		index:       index,
		now:         time.Now,
	}
}

// RunPass reads watermarks, extracts person, genre and movie changes,
// reindexes the union of affected films and advances the watermarks.
//
// Connection failures restart the pass under exponential backoff. When the
// backoff is exhausted the pass is abandoned with no watermark moved and a
// nil error. Checkpoint failures and invariant violations end the pass with
// an error.
func (o *SyncOrchestrator) RunPass(ctx context.Context) (*domain.PassReport, error) {
	report := &domain.PassReport{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
		Changes:   make(map[domain.EntityKind]int),
	}
	log := logger.With("pass_id", report.ID)
	log.Info("pass started")

	err := withBackoff(ctx, o.cfg.Retry, func(ctx context.Context) error {
		report.Attempts++
		err := o.attempt(ctx, report, log)
		if domain.IsConnectionFailure(err) {
			log.Warn("pass attempt failed", "attempt", report.Attempts, "error", err)
		}
		return err
	})
	report.EndedAt = o.now()

	switch {
	case err == nil:
		report.Status = domain.PassCompleted
		log.Info("pass completed",
			"films", report.FilmsAffected, "indexed", report.Indexed,
			"rejected", report.Rejected, "duration", report.Duration())
	case domain.IsConnectionFailure(err):
		report.Status = domain.PassAbandoned
		report.Error = err.Error()
		log.Warn("pass abandoned", "attempts", report.Attempts, "error", err)
		err = nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		report.Status = domain.PassAbandoned
		report.Error = err.Error()
		log.Warn("pass cancelled", "error", err)
	default:
		report.Status = domain.PassFailed
		report.Error = err.Error()
		log.Error("pass failed", "stage", lastStage(report), "error", err)
	}

	o.mu.Lock()
	o.last = report
	o.mu.Unlock()
	return report, err
}

// attempt runs the stages once. report counters are reset on every attempt
// so that a retried pass reports only its final try.
func (o *SyncOrchestrator) attempt(ctx context.Context, report *domain.PassReport, log *slog.Logger) error {
	report.Stages = report.Stages[:0]
	report.Candidates = nil
	report.FilmsAffected, report.Indexed, report.Rejected = 0, 0, 0
	clear(report.Changes)

	report.Stages = append(report.Stages, domain.StageReadWatermarks)
	marks, err := o.readWatermarks(ctx, log)
	if err != nil {
		return err
	}
	report.Watermarks = marks.Clone()

	src, err := o.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("close source", "error", err)
		}
	}()

	indexer := NewBulkIndexer(o.index, o.cfg.BulkSize, log)
	extractor := NewChangeExtractor(src, indexer, o.cfg, log)

	results, err := o.extractAll(ctx, extractor, marks, report)
	if err != nil {
		return err
	}

	report.Stages = append(report.Stages, domain.StageResolveUnion)
	affected := domain.NewIDSet()
	candidates := make(domain.Watermarks, len(results))
	var written domain.BulkReport
	for _, res := range results {
		affected.Union(res.Films)
		candidates[res.Kind] = res.Candidate
		report.Changes[res.Kind] = len(res.Batch)
		written.Merge(res.Entities)
	}
	report.Indexed, report.Rejected = written.Indexed, written.Rejected
	report.Candidates = candidates
	report.FilmsAffected = affected.Len()

	if affected.Len() > 0 {
		report.Stages = append(report.Stages, domain.StageFetchAggregates)
		rows, err := src.FilmRows(ctx, affected.Sorted())
		if err != nil {
			return fmt.Errorf("fetch films: %w", err)
		}

		report.Stages = append(report.Stages, domain.StageTransform)
		films := TransformFilms(rows)

		report.Stages = append(report.Stages, domain.StageBulkIndex)
		movies, err := indexer.Index(ctx, o.cfg.Indices.Movies, asDocuments(films))
		if err != nil {
			return err
		}
		written.Merge(movies)
		report.Indexed, report.Rejected = written.Indexed, written.Rejected
	}

	report.Stages = append(report.Stages, domain.StageAdvanceWatermarks)
	next := marks.Clone()
	for kind, ts := range candidates {
		next[kind] = ts
	}
	if err := o.checkpoints.Write(ctx, next); err != nil {
		return fmt.Errorf("%w: advance watermarks: %w", domain.ErrCheckpoint, err)
	}
	report.Watermarks = next
	return nil
}

// readWatermarks loads the stored watermarks and persists the minimum
// timestamp for any kind seen for the first time.
func (o *SyncOrchestrator) readWatermarks(ctx context.Context, log *slog.Logger) (domain.Watermarks, error) {
	marks, err := o.checkpoints.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read watermarks: %w", domain.ErrCheckpoint, err)
	}
	if marks == nil {
		marks = make(domain.Watermarks)
	}

	missing := marks.Missing()
	if len(missing) == 0 {
		return marks, nil
	}
	for _, kind := range missing {
		marks[kind] = domain.MinTimestamp
	}
	if err := o.checkpoints.Write(ctx, marks); err != nil {
		return nil, fmt.Errorf("%w: initialise watermarks: %w", domain.ErrCheckpoint, err)
	}
	log.Info("initialised watermarks", "kinds", missing)
	return marks, nil
}

// extractAll runs the three per-kind extractions, concurrently when
// configured. Results are returned in extraction order.
func (o *SyncOrchestrator) extractAll(
	ctx context.Context,
	extractor *ChangeExtractor,
	marks domain.Watermarks,
	report *domain.PassReport,
) ([]KindResult, error) {
	kinds := domain.AllKinds()
	results := make([]KindResult, len(kinds))

	if !o.cfg.ConcurrentExtract {
		for i, kind := range kinds {
			report.Stages = append(report.Stages, domain.ExtractStage(kind))
			res, err := extractor.Extract(ctx, kind, marks[kind])
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		report.Stages = append(report.Stages, domain.ExtractStage(kind))
		g.Go(func() error {
			res, err := extractor.Extract(gctx, kind, marks[kind])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EnsureIndices creates the movie, genre and person indices when absent.
func (o *SyncOrchestrator) EnsureIndices(ctx context.Context) error {
	return withBackoff(ctx, o.cfg.Retry, func(ctx context.Context) error {
		for _, kind := range domain.AllKinds() {
			name := o.cfg.Indices.For(kind)
			created, err := o.index.EnsureIndex(ctx, name, kind)
			if err != nil {
				return fmt.Errorf("ensure index %s: %w", name, err)
			}
			if created {
				logger.Info("index created", "index", name, "kind", kind)
			}
		}
		return nil
	})
}

// LastReport returns the report of the most recent pass, or nil.
func (o *SyncOrchestrator) LastReport() *domain.PassReport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Watermarks returns the currently persisted watermarks.
func (o *SyncOrchestrator) Watermarks(ctx context.Context) (domain.Watermarks, error) {
	marks, err := o.checkpoints.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read watermarks: %w", domain.ErrCheckpoint, err)
	}
	return marks, nil
}

func lastStage(r *domain.PassReport) domain.Stage {
	if len(r.Stages) == 0 {
		return domain.StageReadWatermarks
	}
	return r.Stages[len(r.Stages)-1]
}
