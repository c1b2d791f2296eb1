package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driving/httpapi"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/services"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

var runAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Synchronise continuously",
	Long: `Creates any missing indices, then runs a pass immediately and again
after every poll interval until interrupted. Abandoned passes are retried on
the next tick. When an address is configured a status server exposes
/healthz and /status.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runAddr, "addr", "", "status server address (overrides http.addr)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.EnsureIndices(ctx); err != nil {
		return fmt.Errorf("ensuring indices: %w", err)
	}

	addr := cfg.HTTP.Addr
	if runAddr != "" {
		addr = runAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		srv := httpapi.NewServer(addr, httpapi.NewHandler(a.orch, version))
		g.Go(func() error { return srv.Serve(gctx) })
	}

	scheduler := services.NewScheduler(cfg.SchedulerConfig(), a.orch)
	g.Go(func() error {
		err := scheduler.Start(gctx)
		if errors.Is(err, gctx.Err()) {
			return nil
		}
		return err
	})

	logger.Info("moviesync running", "poll_interval", cfg.SchedulerConfig().PollInterval, "status_addr", addr)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("run stopped: %w", err)
	}
	logger.Info("moviesync stopped")
	return nil
}
