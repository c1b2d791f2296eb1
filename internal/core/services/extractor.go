package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// KindResult is the outcome of extracting one entity kind.
type KindResult struct {
	Kind domain.EntityKind

	// Since is the watermark the scan started from.
	Since time.Time

	// Candidate is the watermark to persist once the pass has indexed.
	Candidate time.Time

	Batch domain.ChangeBatch

	// Films are the films affected by the batch.
	Films domain.IDSet

	// Entities reports the standalone person or genre documents indexed.
	Entities domain.BulkReport
}

// ChangeExtractor finds changed rows of a kind and the films they affect.
// It is scoped to one pass and its source handle.
type ChangeExtractor struct {
	src     driven.ContentSource
	indexer *BulkIndexer
	cfg     domain.SyncConfig
	log     *slog.Logger
}

// NewChangeExtractor creates an extractor reading from src.
func NewChangeExtractor(
	src driven.ContentSource,
	indexer *BulkIndexer,
	cfg domain.SyncConfig,
	log *slog.Logger,
) *ChangeExtractor {
	return &ChangeExtractor{src: src, indexer: indexer, cfg: cfg, log: log}
}

// ExtractChanges returns the rows of kind updated after since, truncated to
// the kind's batch size, and the watermark candidate they imply. A full
// batch is extended with the remaining rows sharing its last timestamp, so
// the next scan from the candidate cannot skip them. No changes yields
// since and an empty batch.
func (e *ChangeExtractor) ExtractChanges(
	ctx context.Context,
	kind domain.EntityKind,
	since time.Time,
) (time.Time, domain.ChangeBatch, error) {
	limit := e.cfg.BatchSizeFor(kind)
	changes, err := e.src.Changes(ctx, kind, since, limit)
	if err != nil {
		return since, nil, fmt.Errorf("scan %s changes: %w", kind, err)
	}

	if limit > 0 && len(changes) >= limit {
		last := changes[len(changes)-1]
		ties, err := e.src.ChangesAt(ctx, kind, last.UpdatedAt, last.ID)
		if err != nil {
			return since, nil, fmt.Errorf("scan %s changes: %w", kind, err)
		}
		if len(ties) > 0 {
			e.log.Debug("batch extended with tied rows",
				"kind", kind, "ties", len(ties), "updated_at", last.UpdatedAt)
			changes = append(changes, ties...)
		}
	}

	batch := domain.ChangeBatch(changes)
	if err := batch.Validate(since); err != nil {
		return since, nil, fmt.Errorf("scan %s changes: %w", kind, err)
	}
	return batch.Candidate(since), batch, nil
}

// ResolveAffectedFilms maps changed ids of kind to the films they touch.
// Movie ids are already films. Empty input yields an empty set.
func (e *ChangeExtractor) ResolveAffectedFilms(
	ctx context.Context,
	kind domain.EntityKind,
	ids []string,
) (domain.IDSet, error) {
	if len(ids) == 0 {
		return domain.NewIDSet(), nil
	}
	if kind == domain.KindMovie {
		return domain.NewIDSet(ids...), nil
	}

	filmIDs, err := e.src.FilmIDsFor(ctx, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve %s films: %w", kind, err)
	}
	return domain.NewIDSet(filmIDs...), nil
}

// IndexEntities writes the standalone person or genre documents for ids
// into their own index. Movies are indexed later as aggregates.
func (e *ChangeExtractor) IndexEntities(
	ctx context.Context,
	kind domain.EntityKind,
	ids []string,
) (domain.BulkReport, error) {
	if len(ids) == 0 {
		return domain.BulkReport{}, nil
	}

	var docs []domain.Document
	switch kind {
	case domain.KindPerson:
		persons, err := e.src.Persons(ctx, ids)
		if err != nil {
			return domain.BulkReport{}, fmt.Errorf("load persons: %w", err)
		}
		docs = asDocuments(persons)
	case domain.KindGenre:
		genres, err := e.src.Genres(ctx, ids)
		if err != nil {
			return domain.BulkReport{}, fmt.Errorf("load genres: %w", err)
		}
		docs = asDocuments(genres)
	default:
		return domain.BulkReport{}, nil
	}

	return e.indexer.Index(ctx, e.cfg.Indices.For(kind), docs)
}

// Extract scans kind, indexes its standalone documents and resolves the
// films it affects.
func (e *ChangeExtractor) Extract(ctx context.Context, kind domain.EntityKind, since time.Time) (KindResult, error) {
	res := KindResult{Kind: kind, Since: since, Candidate: since}

	candidate, batch, err := e.ExtractChanges(ctx, kind, since)
	if err != nil {
		return res, err
	}
	res.Candidate, res.Batch = candidate, batch

	ids := batch.IDs()
	if res.Entities, err = e.IndexEntities(ctx, kind, ids); err != nil {
		return res, err
	}
	if res.Films, err = e.ResolveAffectedFilms(ctx, kind, ids); err != nil {
		return res, err
	}

	e.log.Debug("extracted changes",
		"kind", kind, "changes", len(batch), "films", res.Films.Len(), "candidate", candidate)
	return res, nil
}
