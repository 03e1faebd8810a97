package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List tracked documents",
	Long: `Shows every document the indexer knows about, with the outcome of its
last indexing attempt and the number of rows it exported.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(svc *Services) error {
		records, err := svc.Indexer.Documents(cmd.Context())
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		printStatus(cmd.OutOrStdout(), records)
		return nil
	})
}

func printStatus(w io.Writer, records []domain.TrackingRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No documents indexed yet. Run 'docindex index'.")
		return
	}

	failed, rows := 0, 0
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FILE", "STATUS", "ROWS", "UPDATED", "ERROR")
	for _, r := range records {
		if r.Status == domain.StatusFailed {
			failed++
		}
		rows += r.RowCount

		updated := "-"
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		t.Row(r.Filename, string(r.Status), strconv.Itoa(r.RowCount), updated, r.Error)
	}

	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d documents, %d rows, %d failed\n", len(records), rows, failed)
}
