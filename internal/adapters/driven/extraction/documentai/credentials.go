package documentai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// credentialOptions resolves client options from the environment.
// Returns nil when Application Default Credentials should be used.
func credentialOptions(ctx context.Context, lookup func(string) string) ([]option.ClientOption, error) {
	raw := strings.TrimSpace(lookup("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	source := "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	if raw == "" {
		path := strings.TrimSpace(lookup("GOOGLE_APPLICATION_CREDENTIALS"))
		if path == "" {
			return nil, nil
		}
		if strings.HasPrefix(path, "{") {
			raw = path
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("%w: reading GOOGLE_APPLICATION_CREDENTIALS: %w", domain.ErrConfiguration, err)
			}
			raw = string(data)
		}
		source = "GOOGLE_APPLICATION_CREDENTIALS"
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(raw), cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrConfiguration, source, err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}
