// Package retrieve finds catalog candidates for a canonical query: embed,
// search the vector store, and optionally widen recall by searching LLM
// paraphrases of the query as well.
package retrieve

import (
	"context"
	"fmt"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/llm"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// Options configures retrieval.
type Options struct {
	// TopK caps the merged result count.
	TopK int
	// QueryExpansion searches LLM paraphrases alongside the original query.
	QueryExpansion bool
	// QueryVariations is the total number of query forms searched when
	// expansion is on, the original included.
	QueryVariations int
}

// Retriever embeds queries and searches the product store.
type Retriever struct {
	embedder core.EmbedService
	store    core.ProductStore
	// expander generates paraphrases; only consulted when expansion is on.
	expander core.LLMService
	opts     Options
}

// New creates a retriever. expander may be nil when expansion is disabled.
func New(embedder core.EmbedService, store core.ProductStore, expander core.LLMService, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		expander: expander,
		opts:     opts,
	}
}

// Retrieve returns at most TopK candidates for the query, ordered by
// descending score with ties broken by ascending product id. With expansion
// on, results from all query forms are merged by product id keeping the
// maximum score. An error is returned only when no query form produced a
// result set.
func (r *Retriever) Retrieve(ctx context.Context, query core.NormalizedQuery) ([]core.SearchResult, error) {
	queries := []string{query.CanonicalText}
	if r.opts.QueryExpansion && r.expander != nil {
		queries = append(queries, r.expandQuery(ctx, query.CanonicalText)...)
	}

	merged := make(map[string]core.SearchResult)
	var firstErr error
	succeeded := 0

	for _, q := range queries {
		results, err := r.searchOne(ctx, q)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logger.RAGWarn("Search failed for %q: %v", q, err)
			continue
		}
		succeeded++
		for _, res := range results {
			if prev, ok := merged[res.Product.ID]; !ok || res.Score > prev.Score {
				merged[res.Product.ID] = res
			}
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("retrieval failed for all %d query forms: %w", len(queries), firstErr)
	}

	results := make([]core.SearchResult, 0, len(merged))
	for _, res := range merged {
		results = append(results, res)
	}
	core.SortByScoreDesc(results)
	if len(results) > r.opts.TopK {
		results = results[:r.opts.TopK]
	}

	logger.RAGDebug("Retrieved %d candidates from %d query forms", len(results), len(queries))
	return results, nil
}

func (r *Retriever) searchOne(ctx context.Context, text string) ([]core.SearchResult, error) {
	vector, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.store.Search(ctx, vector, r.opts.TopK)
}

// expandQuery asks the LLM for paraphrases. Any failure here only narrows
// recall, so it is logged and the original query carries on alone.
func (r *Retriever) expandQuery(ctx context.Context, text string) []string {
	n := r.opts.QueryVariations - 1
	if n <= 0 {
		return nil
	}

	prompt := llm.BuildExpansionPrompt(text, n)
	reply, err := r.expander.ChatCompletion(ctx, []core.ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		logger.RAGWarn("Query expansion failed, searching original only: %v", err)
		return nil
	}

	variants := parseVariants(reply, text, n)
	logger.RAGDebug("Expanded query into %d variants", len(variants))
	return variants
}
