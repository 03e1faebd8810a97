package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// secretKeys are never echoed when read interactively or shown.
//
//nolint:gosec // G101: key names, not credentials.
var secretKeys = map[string]bool{
	"embedding.api_key": true,
	"storage.url":       true,
}

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration value",
	Long: `Stores a value in the config file. Run 'docindex config keys' for the
list of keys. When the value of a secret key is omitted it is read from
the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, k := range settingsService.Keys() {
			cmd.Println(k)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(settingsService.ConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeysCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	printSettings(cmd.OutOrStdout(), settings, settingsService.ConfigPath())

	if err := settings.Validate(); err != nil {
		cmd.Println()
		cmd.Println("Problems:")
		for _, line := range strings.Split(err.Error(), "\n") {
			cmd.Printf("  %s\n", line)
		}
	}
	return nil
}

func printSettings(w io.Writer, s *domain.AppSettings, path string) {
	fmt.Fprintf(w, "Config file: %s\n\n", path)

	fmt.Fprintln(w, "[Source]")
	fmt.Fprintf(w, "  Path: %s\n\n", s.Source.Path)

	fmt.Fprintln(w, "[Extraction]")
	fmt.Fprintf(w, "  Provider: %s\n", s.Extraction.Provider)
	if s.Extraction.Provider == domain.ExtractionDocumentAI {
		d := s.Extraction.DocumentAI
		fmt.Fprintf(w, "  Project: %s\n", orUnset(d.ProjectID))
		fmt.Fprintf(w, "  Location: %s\n", d.Location)
		fmt.Fprintf(w, "  Processor: %s\n", orUnset(d.ProcessorID))
		if d.ProcessorVersion != "" {
			fmt.Fprintf(w, "  Processor version: %s\n", d.ProcessorVersion)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[Embedding]")
	fmt.Fprintf(w, "  Provider: %s\n", s.Embedding.Provider.Description())
	fmt.Fprintf(w, "  Model: %s\n", s.Embedding.Model)
	if s.Embedding.BaseURL != "" {
		fmt.Fprintf(w, "  Base URL: %s\n", s.Embedding.BaseURL)
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		fmt.Fprintf(w, "  API Key: %s\n", maskSecret(s.Embedding.APIKey))
	}
	fmt.Fprintf(w, "  Dimensions: %d\n\n", s.Embedding.ResolvedDimensions())

	fmt.Fprintln(w, "[Chunking]")
	if c := s.Processors.GetProcessorConfig("chunker"); c != nil {
		fmt.Fprintf(w, "  Size: %v\n  Overlap: %v\n  Min level: %v\n\n", c["chunk_size"], c["overlap"], c["min_level"])
	}

	fmt.Fprintln(w, "[Storage]")
	fmt.Fprintf(w, "  Driver: %s\n", s.Storage.Driver)
	if s.Storage.Driver == domain.StoragePostgres {
		fmt.Fprintf(w, "  URL: %s\n", maskSecret(s.Storage.URL))
	}
	fmt.Fprintf(w, "  Data dir: %s\n", orUnset(s.Storage.DataDir))
	fmt.Fprintf(w, "  Table: %s\n\n", s.Storage.Table)

	fmt.Fprintln(w, "[Pipeline]")
	fmt.Fprintf(w, "  Workers: %d\n", s.Pipeline.Workers)
	fmt.Fprintf(w, "  Embed concurrency: %d\n", s.Pipeline.EmbedConcurrency)
	fmt.Fprintf(w, "  Timeouts: extract %s, embed %s\n", s.Pipeline.ExtractTimeout, s.Pipeline.EmbedTimeout)
	fmt.Fprintf(w, "  Embedding policy: %s\n", s.Pipeline.EmbeddingPolicy)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !secretKeys[key] {
			return fmt.Errorf("a value is required for %s", key)
		}
		cmd.Printf("%s: ", key)
		value = readSecret(cmd.InOrStdin())
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if secretKeys[key] {
		shown = maskSecret(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := settingsService.ConfigPath()
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	defaults := domain.DefaultAppSettings()
	if err := settingsService.Save(&defaults); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	cmd.Printf("Wrote default settings to %s\n", path)
	return nil
}

// readSecret reads one line, without echo when in is a terminal.
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	// Fallback to regular input
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
