package extractors

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.Extractor = (*Registry)(nil)

// Registry dispatches each document to the highest-priority extractor
// registered for its MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.PrioritisedExtractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.PrioritisedExtractor) *Registry {
	r := &Registry{}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor.
func (r *Registry) Register(e driven.PrioritisedExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
}

// Name returns "registry".
func (r *Registry) Name() string {
	return "registry"
}

// Version joins name@version of every registered extractor, sorted.
// Adding, removing or upgrading any backend changes it.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parts := make([]string, 0, len(r.extractors))
	for _, e := range r.extractors {
		parts = append(parts, e.Name()+"@"+e.Version())
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

// SupportedMIMETypes returns all MIME types that can be extracted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var types []string
	for _, e := range r.extractors {
		for _, t := range e.SupportedMIMETypes() {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// For returns the extractor that would handle mimeType, or nil.
// Ties in priority go to the extractor registered first.
func (r *Registry) For(mimeType string) driven.PrioritisedExtractor {
	mimeType = baseMIMEType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.PrioritisedExtractor
	for _, e := range r.extractors {
		if !handles(e, mimeType) {
			continue
		}
		if best == nil || e.Priority() > best.Priority() {
			best = e
		}
	}
	return best
}

// Extract routes doc to the best matching extractor.
func (r *Registry) Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractedText, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: %w: nil document", domain.ErrExtraction, domain.ErrInvalidInput)
	}

	e := r.For(doc.MIMEType)
	if e == nil {
		return nil, fmt.Errorf("%w: %w: no extractor for %q", domain.ErrExtraction, domain.ErrUnsupportedType, doc.MIMEType)
	}

	logger.Debug("Extracting %s with %s", doc.Filename, e.Name())
	return e.Extract(ctx, doc)
}

func handles(e driven.Extractor, mimeType string) bool {
	for _, t := range e.SupportedMIMETypes() {
		if t == mimeType {
			return true
		}
		// "text/*" style wildcards
		if prefix, ok := strings.CutSuffix(t, "/*"); ok && strings.HasPrefix(mimeType, prefix+"/") {
			return true
		}
	}
	return false
}

// baseMIMEType drops parameters such as "; charset=utf-8".
func baseMIMEType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
