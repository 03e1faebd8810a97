package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the extraction cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached extractions from other extractor versions",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(svc *Services) error {
		n, err := svc.Indexer.PruneCache(cmd.Context())
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		cmd.Printf("Removed %d stale cache entries.\n", n)
		return nil
	})
}
