package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

var (
	syncDryRun bool
	syncJSON   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronisation pass",
	Long: `Runs a single pass: reads the watermarks, extracts person, genre and
movie changes, reindexes every affected film and advances the watermarks.

With --dry-run the pass writes into an in-memory index and an in-memory
copy of the watermarks, so neither Elasticsearch nor the checkpoint file
is modified. The command exits non-zero unless the pass completed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "do not write to the index or the checkpoint store")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "print the pass report as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, appOptions{dryRun: syncDryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.EnsureIndices(ctx); err != nil {
		return fmt.Errorf("ensuring indices: %w", err)
	}

	report, err := a.orch.RunPass(ctx)
	if report != nil {
		if perr := printReport(cmd, report); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if report.Status != domain.PassCompleted {
		return fmt.Errorf("pass %s: %s", report.Status, report.Error)
	}
	return nil
}

func printReport(cmd *cobra.Command, r *domain.PassReport) error {
	if syncJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if syncDryRun {
		cmd.Println("Dry run: nothing was written.")
	}
	cmd.Printf("Pass %s %s in %s (%d attempt(s))\n",
		r.ID, r.Status, r.Duration().Round(time.Millisecond), r.Attempts)
	for _, kind := range domain.AllKinds() {
		cmd.Printf("  %-7s %d changed\n", kind, r.Changes[kind])
	}
	cmd.Printf("  films   %d affected\n", r.FilmsAffected)
	cmd.Printf("  indexed %d, rejected %d\n", r.Indexed, r.Rejected)
	if r.Error != "" {
		cmd.Printf("  error:  %s\n", r.Error)
	}
	if len(r.Watermarks) > 0 {
		cmd.Println("Watermarks:")
		printWatermarks(cmd, r.Watermarks)
	}
	return nil
}

func printWatermarks(cmd *cobra.Command, marks domain.Watermarks) {
	for _, kind := range domain.AllKinds() {
		ts, ok := marks.Get(kind)
		switch {
		case !ok:
			cmd.Printf("  %-7s (not set)\n", kind)
		case ts.Equal(domain.MinTimestamp):
			cmd.Printf("  %-7s (full sync pending)\n", kind)
		default:
			cmd.Printf("  %-7s %s\n", kind, ts.UTC().Format(time.RFC3339Nano))
		}
	}
}
