package driving

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search embeds query and returns the topK nearest chunks, best first.
	// topK <= 0 or a blank query fails with domain.ErrInvalidArgument.
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}
