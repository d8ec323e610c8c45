package rerank

import (
	"context"

	"github.com/hunterwarburton/porsa/internal/core"
)

// Identity keeps the retrieval order and just truncates to topN. It serves
// both the rerank-disabled configuration and the degraded path when the
// real reranker fails.
type Identity struct{}

// NewIdentity creates the pass-through reranker.
func NewIdentity() Identity { return Identity{} }

// Rerank returns the candidates unchanged, truncated to topN.
func (Identity) Rerank(ctx context.Context, query string, candidates []core.SearchResult, topN int) ([]core.SearchResult, error) {
	return Truncate(candidates, topN), nil
}

// Truncate caps the candidate list at topN without copying. topN at or
// below zero keeps everything.
func Truncate(candidates []core.SearchResult, topN int) []core.SearchResult {
	if topN > 0 && len(candidates) > topN {
		return candidates[:topN]
	}
	return candidates
}
