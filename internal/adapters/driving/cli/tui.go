package cli

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui"
	"github.com/custodia-labs/docindex/internal/logger"
)

var tuiTopK int

// runProgram starts the bubbletea program. Replaced in tests.
var runProgram = func(app *tui.App) error {
	return app.Run()
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface.

Controls:
  Tab       - Switch between search and documents
  Enter     - Search / expand result
  ↑/k, ↓/j  - Navigate
  n, /      - New search
  i         - Index now (documents view)
  r         - Reload (documents view)
  q, Ctrl+C - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiTopK, "top-k", "k", 10, "maximum number of results per search")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	return withServices(cmd, func(svc *Services) error {
		// Log lines would corrupt the alternate screen.
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)

		app, err := tui.NewApp(&tui.Ports{Search: svc.Search, Indexer: svc.Indexer})
		if err != nil {
			return fmt.Errorf("failed to create TUI: %w", err)
		}
		app.WithContext(cmd.Context()).WithTopK(tuiTopK)

		if err := runProgram(app); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}
