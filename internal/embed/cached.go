package embed

import (
	"context"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/normalize"
)

// CachedEmbedder wraps an EmbedService with a lookaside cache for query
// vectors. Cache keys are fingerprints of the prefixed input, so a cached
// query vector can never be confused with a passage vector. Passage
// embedding happens during ingest and is not cached.
type CachedEmbedder struct {
	inner core.EmbedService
	cache core.EmbeddingCache
}

// NewCachedEmbedder wraps inner with the embedding cache.
func NewCachedEmbedder(inner core.EmbedService, cache core.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// EmbedQuery returns the cached vector when present, otherwise embeds and
// stores the result. Cache write failures are logged and swallowed.
func (e *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := normalize.Fingerprint(queryPrefix + text)

	if vector, ok := e.cache.GetEmbedding(ctx, key); ok {
		logger.EmbedDebug("Embedding cache hit for %s", key)
		return vector, nil
	}

	vector, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.PutEmbedding(ctx, key, vector); err != nil {
		logger.EmbedWarn("Failed to cache embedding %s: %v", key, err)
	}
	return vector, nil
}

// EmbedPassages delegates to the wrapped service.
func (e *CachedEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedPassages(ctx, texts)
}
