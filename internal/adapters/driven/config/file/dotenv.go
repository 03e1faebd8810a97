package file

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docindex/internal/logger"
)

// LoadEnv loads KEY=value pairs from the given .env files (".env" when none
// are given) into the process environment. Variables that are already set
// win. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		logger.Debug("Loaded environment from %s", f)
	}
	return nil
}
