package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query with the configured model and returns the closest
chunks by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withServices(cmd, func(svc *Services) error {
		results, err := svc.Search.Search(cmd.Context(), args[0], searchTopK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if searchJSON {
			return outputSearchJSON(cmd.OutOrStdout(), results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	})
}

// searchResultJSON is the JSON shape of one hit.
type searchResultJSON struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

func outputSearchJSON(w io.Writer, results []domain.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultJSON{
			ID:       r.ID,
			Filename: r.Filename,
			Start:    r.Location.Start,
			End:      r.Location.End,
			Text:     r.Text,
			Score:    r.Score,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return nil
}

// printResults writes each hit as "[score] filename", then its indented
// text and a "---" separator.
func printResults(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "[%.3f] %s\n", r.Score, r.Filename)
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(r.Text, "\n", "\n    "))
		fmt.Fprintln(w, "---")
	}
}
