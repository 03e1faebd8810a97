package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// extractTransform is the cache namespace for extractor output.
const extractTransform = "extract"

// TransformKey returns the cache key for running transform at version
// over input.
func TransformKey(transform, version string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(transform))
	h.Write([]byte{'|'})
	h.Write([]byte(version))
	h.Write([]byte{'|'})
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil))
}

// CachedTransform memoises a byte-to-byte transform in a TransformCache.
// Entries are keyed by transform name, version and input, so bumping the
// version makes old entries unreachable until they are pruned.
type CachedTransform struct {
	name    string
	version string
	cache   driven.TransformCache
}

// NewCachedTransform creates a cached transform. A nil cache disables caching.
func NewCachedTransform(name, version string, cache driven.TransformCache) *CachedTransform {
	return &CachedTransform{name: name, version: version, cache: cache}
}

// Do returns the cached output for input, or runs compute and stores its
// result. The boolean reports a cache hit. Cache failures are logged and
// never fail the call.
func (t *CachedTransform) Do(
	ctx context.Context, input []byte, compute func(context.Context) ([]byte, error),
) ([]byte, bool, error) {
	if t.cache == nil {
		out, err := compute(ctx)
		return out, false, err
	}

	key := TransformKey(t.name, t.version, input)
	if out, ok, err := t.cache.GetCached(ctx, key); err != nil {
		logger.Warn("transform cache read failed for %s: %v", t.name, err)
	} else if ok {
		return out, true, nil
	}

	out, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	entry := domain.CacheEntry{
		Key:       key,
		Transform: t.name,
		Version:   t.version,
		Value:     out,
		CreatedAt: time.Now(),
	}
	if err := t.cache.PutCached(ctx, entry); err != nil {
		logger.Warn("transform cache write failed for %s: %v", t.name, err)
	}
	return out, false, nil
}

// Prune drops every entry of this transform not at the current version.
func (t *CachedTransform) Prune(ctx context.Context) (int, error) {
	if t.cache == nil {
		return 0, nil
	}
	return t.cache.Invalidate(ctx, t.name, t.version)
}

// Ensure CachedExtractor implements the interface.
var _ driven.Extractor = (*CachedExtractor)(nil)

// CachedExtractor wraps an Extractor with a CachedTransform keyed on the
// raw document bytes.
type CachedExtractor struct {
	inner     driven.Extractor
	transform *CachedTransform
}

// NewCachedExtractor wraps inner. A nil cache returns a pass-through wrapper.
func NewCachedExtractor(inner driven.Extractor, cache driven.TransformCache) *CachedExtractor {
	return &CachedExtractor{
		inner:     inner,
		transform: NewCachedTransform(extractTransform, inner.Version(), cache),
	}
}

// Name returns the wrapped extractor's name.
func (e *CachedExtractor) Name() string { return e.inner.Name() }

// Version returns the wrapped extractor's version.
func (e *CachedExtractor) Version() string { return e.inner.Version() }

// SupportedMIMETypes returns the wrapped extractor's MIME types.
func (e *CachedExtractor) SupportedMIMETypes() []string { return e.inner.SupportedMIMETypes() }

// Extract returns cached text for identical content, otherwise extracts.
func (e *CachedExtractor) Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractedText, error) {
	out, hit, err := e.transform.Do(ctx, cacheInput(doc), func(ctx context.Context) ([]byte, error) {
		text, err := e.inner.Extract(ctx, doc)
		if err != nil {
			return nil, err
		}
		return []byte(text.Text), nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		logger.Debug("Extraction cache hit: %s", doc.Filename)
	}
	return &domain.ExtractedText{Filename: doc.Filename, Text: string(out)}, nil
}

// Prune drops cached extractions made by other extractor versions.
func (e *CachedExtractor) Prune(ctx context.Context) (int, error) {
	return e.transform.Prune(ctx)
}

// cacheInput keys on the MIME type as well as the bytes, since the same
// bytes may be routed to a different backend under another type.
func cacheInput(doc *domain.Document) []byte {
	buf := make([]byte, 0, len(doc.MIMEType)+1+len(doc.Content))
	buf = append(buf, doc.MIMEType...)
	buf = append(buf, 0)
	return append(buf, doc.Content...)
}
