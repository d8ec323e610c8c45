package core

import "context"

// EmbedService defines the interface for turning text into dense vectors.
type EmbedService interface {
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedPassages embeds catalog passages for indexing, in input order.
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// ProductStore defines the interface for the vector index holding the catalog.
type ProductStore interface {
	// Search runs one similarity search and returns at most topK results,
	// ordered by descending score with ties broken by ascending product id.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)

	// Upsert writes products and their vectors; an existing id is replaced.
	Upsert(ctx context.Context, products []Product, vectors [][]float32) error

	// Get fetches one product by id. The second return is false when absent.
	Get(ctx context.Context, id string) (Product, bool, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// ResponseCache maps a query fingerprint to a previously computed answer.
// Lookups are bounded by the caller's context; misses and backend failures
// are both reported as absent, never as user-facing errors.
type ResponseCache interface {
	GetResponse(ctx context.Context, fingerprint string) (CacheEntry, bool)
	PutResponse(ctx context.Context, entry CacheEntry) error
}

// EmbeddingCache memoizes query embeddings, keyed by text fingerprint.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, fingerprint string) ([]float32, bool)
	PutEmbedding(ctx context.Context, fingerprint string, vector []float32) error
}

// SessionStore persists per-session bookkeeping, best-effort.
type SessionStore interface {
	PutSession(ctx context.Context, record SessionRecord) error
}

// LLMService defines the interface for the chat-completions backend.
type LLMService interface {
	// ChatCompletion sends the messages and returns the assistant text.
	ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
}

// Reranker rescores retrieval candidates with a finer-grained relevance
// signal. Implementations operate only on the candidate set they are handed.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []SearchResult, topN int) ([]SearchResult, error)
}
