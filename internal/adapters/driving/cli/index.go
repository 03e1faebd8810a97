package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

var indexWatch bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the source directory",
	Long: `Scans the source directory and brings the export target up to date.
Unchanged documents are skipped; documents that disappeared from the
source have their rows removed.

With --watch, keeps running and re-indexes whenever files change.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "re-index when files change")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(svc *Services) error {
		if indexWatch {
			cmd.Println("Watching for changes. Press Ctrl+C to stop.")
			return svc.Indexer.Watch(cmd.Context())
		}

		stats, err := svc.Indexer.Run(cmd.Context())
		if stats != nil {
			printRunStats(cmd.OutOrStdout(), stats)
		}
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		return nil
	})
}

// printRunStats writes a summary of one indexing pass, followed by every
// per-document failure.
func printRunStats(w io.Writer, s *driving.RunStats) {
	fmt.Fprintf(w, "Scanned %d documents in %s\n", s.Scanned, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  processed: %d\n  unchanged: %d\n  failed:    %d\n  removed:   %d\n",
		s.Processed, s.Skipped, s.Failed, s.Deleted)
	fmt.Fprintf(w, "Rows: %d inserted, %d updated, %d unchanged, %d deleted\n",
		s.Rows.Inserted, s.Rows.Updated, s.Rows.Unchanged, s.Rows.Deleted)

	if len(s.Failures) == 0 {
		return
	}
	fmt.Fprintln(w, "Failures:")
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %v\n", f)
	}
}
