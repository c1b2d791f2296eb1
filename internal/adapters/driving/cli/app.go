package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/config/file"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/relational"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/search/elastic"
	filestore "github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/storage/file"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/storage/memory"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/storage/sqlite"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/services"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// Adapter constructors. Tests replace them with in-memory fakes.
var (
	openConnector = func(c *file.Config) (driven.SourceConnector, error) {
		return relational.Open(c.RelationalConfig())
	}

	openSearchIndex = func(c *file.Config) (driven.SearchIndex, error) {
		return elastic.NewIndex(c.SearchConfig())
	}

	openCheckpointStore = func(c *file.Config) (driven.CheckpointStore, func() error, error) {
		path, err := c.CheckpointPath()
		if err != nil {
			return nil, nil, err
		}
		switch c.Checkpoint.Backend {
		case file.BackendSQLite:
			store, err := sqlite.NewStore(path)
			if err != nil {
				return nil, nil, err
			}
			return store, store.Close, nil
		default:
			return filestore.NewStore(path), func() error { return nil }, nil
		}
	}
)

// app holds the wired components for one command invocation.
type app struct {
	orch        *services.SyncOrchestrator
	checkpoints driven.CheckpointStore
	index       driven.SearchIndex
	closers     []func() error
}

type appOptions struct {
	// dryRun swaps the search index and the checkpoint store for in-memory
	// copies so nothing outside the process is modified.
	dryRun bool
}

func newApp(ctx context.Context, c *file.Config, opts appOptions) (*app, error) {
	a := &app{}

	checkpoints, closeStore, err := openCheckpointStore(c)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	a.closers = append(a.closers, closeStore)
	a.checkpoints = checkpoints

	connector, err := openConnector(c)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("opening source: %w", err)
	}

	if opts.dryRun {
		a.index = memory.NewSearchIndex()
		marks, err := checkpoints.Read(ctx)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("reading watermarks: %w", err)
		}
		a.checkpoints = memory.NewCheckpointStore(marks)
		logger.Debug("dry run: using in-memory index and checkpoints")
	} else {
		a.index, err = openSearchIndex(c)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("opening search index: %w", err)
		}
	}
	a.closers = append(a.closers, a.index.Close)

	a.orch = services.NewSyncOrchestrator(c.SyncConfig(), a.checkpoints, connector, a.index)
	return a, nil
}

// Close releases every opened adapter.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
