package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "Create missing search indices",
	Long: `Creates the movies, genres and persons indices with their mappings
if they do not exist. Existing indices are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runIndices,
}

func init() {
	rootCmd.AddCommand(indicesCmd)
}

func runIndices(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.EnsureIndices(ctx); err != nil {
		return fmt.Errorf("ensuring indices: %w", err)
	}

	names := cfg.SyncConfig().Indices
	cmd.Printf("Indices ready: %s, %s, %s\n", names.Movies, names.Genres, names.Persons)
	return nil
}
