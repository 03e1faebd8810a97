package driving

import "github.com/custodia-labs/docindex/internal/core/domain"

// SettingsService resolves application settings from the config file,
// the environment and built-in defaults.
type SettingsService interface {
	// Get returns the effective settings. Environment variables override
	// the config file, which overrides defaults. Malformed values are
	// reported as domain.ErrConfiguration.
	Get() (*domain.AppSettings, error)

	// Save writes settings to the config file.
	Save(settings *domain.AppSettings) error

	// Set parses value according to key's type and stores it.
	Set(key, value string) error

	// Keys lists every recognised configuration key.
	Keys() []string

	// ConfigPath returns the config file location.
	ConfigPath() string
}
