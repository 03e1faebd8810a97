package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

const queryPrompt = "Enter search query (or Enter to quit): "

var queryTopK int

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search interactively",
	Long: `Prompts for queries and prints the closest chunks for each one.
An empty line ends the session.`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 10, "maximum number of results per query")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(svc *Services) error {
		return runQueryLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), svc.Search, queryTopK)
	})
}

// runQueryLoop reads one query per line until an empty line, EOF or
// cancellation. A failed search is reported and the loop continues.
func runQueryLoop(ctx context.Context, in io.Reader, out io.Writer, search driving.SearchService, topK int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, queryPrompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		query := strings.TrimRight(line, "\r")
		if query == "" {
			return nil
		}

		results, err := search.Search(ctx, query, topK)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintln(out, "\nSearch results:")
		printResults(out, results)
		fmt.Fprintln(out)
	}
}
