package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// BulkIndexer splits documents into bulk requests and logs rejections.
// A rejected document never fails the batch.
type BulkIndexer struct {
	index    driven.SearchIndex
	bulkSize int
	log      *slog.Logger
}

// NewBulkIndexer creates an indexer sending at most bulkSize documents per
// request. A non-positive bulkSize sends everything in one request.
func NewBulkIndexer(index driven.SearchIndex, bulkSize int, log *slog.Logger) *BulkIndexer {
	return &BulkIndexer{index: index, bulkSize: bulkSize, log: log}
}

// Index upserts docs into the named index.
func (b *BulkIndexer) Index(ctx context.Context, name string, docs []domain.Document) (domain.BulkReport, error) {
	var report domain.BulkReport
	if len(docs) == 0 {
		return report, nil
	}

	size := b.bulkSize
	if size <= 0 {
		size = len(docs)
	}
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		results, err := b.index.Bulk(ctx, name, docs[start:end])
		if err != nil {
			return report, fmt.Errorf("bulk index %s: %w", name, err)
		}
		for _, res := range results {
			if res.Err != nil {
				b.logRejection(name, res)
			}
		}
		report.Add(results...)
	}

	b.log.Debug("bulk indexed", "index", name, "indexed", report.Indexed, "rejected", report.Rejected)
	return report, nil
}

func (b *BulkIndexer) logRejection(index string, res domain.BulkItemResult) {
	var rej *domain.RejectionError
	if errors.As(res.Err, &rej) {
		b.log.Warn("document rejected",
			"index", index, "id", res.ID, "error_type", rej.Type, "reason", rej.Reason)
		return
	}
	b.log.Warn("document rejected", "index", index, "id", res.ID, "error", res.Err)
}

func asDocuments[T domain.Document](in []T) []domain.Document {
	out := make([]domain.Document, len(in))
	for i, d := range in {
		out[i] = d
	}
	return out
}
