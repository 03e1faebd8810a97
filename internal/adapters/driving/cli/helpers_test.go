package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/core/services"
)

type fakeSearch struct {
	results []domain.SearchResult
	errs    map[string]error
	queries []string
	topK    int
}

func (f *fakeSearch) Search(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	f.queries = append(f.queries, query)
	f.topK = topK
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results, nil
}

type fakeIndexer struct {
	stats   *driving.RunStats
	runErr  error
	records []domain.TrackingRecord
	pruned  int
	runs    int
	watches int
}

func (f *fakeIndexer) Run(context.Context) (*driving.RunStats, error) {
	f.runs++
	return f.stats, f.runErr
}

func (f *fakeIndexer) Watch(context.Context) error {
	f.watches++
	return nil
}

func (f *fakeIndexer) Status() driving.IndexStatus { return driving.IndexStatus{} }

func (f *fakeIndexer) Documents(context.Context) ([]domain.TrackingRecord, error) {
	return f.records, nil
}

func (f *fakeIndexer) PruneCache(context.Context) (int, error) { return f.pruned, nil }

// testEnv replaces the settings and service constructors for one test.
type testEnv struct {
	search     *fakeSearch
	indexer    *fakeIndexer
	configPath string
	openErr    error
	opened     int
	closed     int
	settings   *domain.AppSettings
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		search:     &fakeSearch{},
		indexer:    &fakeIndexer{stats: &driving.RunStats{}},
		configPath: filepath.Join(t.TempDir(), "config.toml"),
	}

	oldSettings, oldOpen := newSettingsService, openServices
	newSettingsService = func(string) (driving.SettingsService, error) {
		store, err := file.NewConfigStore(env.configPath)
		if err != nil {
			return nil, err
		}
		noEnv := func(string) (string, bool) { return "", false }
		return services.NewSettingsService(store).WithEnv(noEnv), nil
	}
	openServices = func(_ context.Context, settings *domain.AppSettings) (*Services, error) {
		if env.openErr != nil {
			return nil, env.openErr
		}
		env.opened++
		env.settings = settings
		return &Services{
			Indexer: env.indexer,
			Search:  env.search,
			Close: func() error {
				env.closed++
				return nil
			},
		}, nil
	}

	t.Cleanup(func() {
		newSettingsService, openServices = oldSettings, oldOpen
		settingsService = nil
	})
	return env
}

// resetFlags restores every flag variable to its default.
func resetFlags() {
	configPath, envFile, verbose = "", ".env", false
	indexWatch = false
	searchTopK, searchJSON = 10, false
	queryTopK = 10
	tuiTopK = 10
	configInitForce = false
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: "r1", Filename: "a.md", Location: domain.Location{Start: 0, End: 11}, Text: "alpha\nbravo", Score: 0.9},
		{ID: "r2", Filename: "b.md", Location: domain.Location{Start: 4, End: 9}, Text: "beta", Score: 0.25},
	}
}

func requireOpenedAndClosed(t *testing.T, env *testEnv) {
	t.Helper()
	require.Equal(t, 1, env.opened, "services should be opened once")
	require.Equal(t, 1, env.closed, "services should be closed")
}
