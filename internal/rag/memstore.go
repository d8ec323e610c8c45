package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// MemoryStore is an in-memory product store with exact cosine search. It
// stands in for Milvus in local runs and tests; the pipeline cannot tell
// the difference apart from recall being exact.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]core.Product
	vectors  map[string][]float32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	logger.RAGInfo("Using in-memory vector store")
	return &MemoryStore{
		products: make(map[string]core.Product),
		vectors:  make(map[string][]float32),
	}
}

// Search scores every stored product against the query vector and returns
// the topK best, ordered by descending score with ties broken by ascending
// product id.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	results := make([]core.SearchResult, 0, len(s.products))
	for id, p := range s.products {
		results = append(results, core.SearchResult{
			Product: p,
			Score:   cosine(vector, s.vectors[id]),
		})
	}
	s.mu.RUnlock()

	core.SortByScoreDesc(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Upsert writes products and their vectors; an existing id is replaced.
func (s *MemoryStore) Upsert(ctx context.Context, products []core.Product, vectors [][]float32) error {
	if len(products) != len(vectors) {
		return fmt.Errorf("got %d products but %d vectors", len(products), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range products {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		s.products[p.ID] = p
		s.vectors[p.ID] = vec
	}
	return nil
}

// Get fetches one product by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (core.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Len reports how many products are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// ListBrands returns up to max distinct brand values, sorted.
func (s *MemoryStore) ListBrands(ctx context.Context, max int) ([]string, error) {
	return s.distinct(func(p core.Product) string { return p.Brand }, max), nil
}

// ListCategories returns up to max distinct category values, sorted.
func (s *MemoryStore) ListCategories(ctx context.Context, max int) ([]string, error) {
	return s.distinct(func(p core.Product) string { return p.Category }, max), nil
}

func (s *MemoryStore) distinct(field func(core.Product) string, max int) []string {
	if max <= 0 {
		max = 5
	}

	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, p := range s.products {
		if v := field(p); v != "" {
			seen[v] = struct{}{}
		}
	}
	s.mu.RUnlock()

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	if len(values) > max {
		values = values[:max]
	}
	return values
}

// cosine computes cosine similarity, zero for empty or mismatched vectors.
func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
