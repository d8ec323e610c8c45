package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/porsa/internal/core"
)

func testCandidates() []core.SearchResult {
	return []core.SearchResult{
		{Product: core.Product{ID: "p1", Name: "گوشی سامسونگ", Description: "گوشی هوشمند", Brand: "سامسونگ"}, Score: 0.9},
		{Product: core.Product{ID: "p2", Name: "لپتاپ ایسوس", Brand: "ایسوس"}, Score: 0.8},
		{Product: core.Product{ID: "p3", Name: "هدفون سونی"}, Score: 0.7},
	}
}

func TestRerankReorders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "لپتاپ برای برنامه نویسی", req.Query)
		assert.Equal(t, 3, req.TopN)
		require.Len(t, req.Documents, 3)
		assert.Equal(t, "گوشی سامسونگ گوشی هوشمند سامسونگ", req.Documents[0])
		assert.Equal(t, "لپتاپ ایسوس ایسوس", req.Documents[1])
		assert.Equal(t, "هدفون سونی", req.Documents[2])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 1, "relevance_score": 0.95},
				{"index": 0, "relevance_score": 0.4},
				{"index": 2, "relevance_score": 0.1},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"})

	results, err := client.Rerank(context.Background(), "لپتاپ برای برنامه نویسی", testCandidates(), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "p2", results[0].Product.ID)
	assert.InDelta(t, 0.95, float64(results[0].Score), 1e-6)
	assert.Equal(t, "p1", results[1].Product.ID)
	assert.Equal(t, "p3", results[2].Product.ID)
}

func TestRerankTruncatesToTopN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 2, "relevance_score": 0.9},
				{"index": 0, "relevance_score": 0.8},
				{"index": 1, "relevance_score": 0.7},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "test-model"})

	results, err := client.Rerank(context.Background(), "هدفون", testCandidates(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p3", results[0].Product.ID)
	assert.Equal(t, "p1", results[1].Product.ID)
}

func TestRerankEmptyCandidates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "test-model"})

	results, err := client.Rerank(context.Background(), "هر چیزی", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, atomic.LoadInt32(&calls), "empty candidate set must not hit the service")
}

func TestRerankHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "test-model"})

	_, err := client.Rerank(context.Background(), "سوال", testCandidates(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRerankMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "test-model"})

	_, err := client.Rerank(context.Background(), "سوال", testCandidates(), 3)
	require.Error(t, err)
}

func TestRerankIndexOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 7, "relevance_score": 0.9},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, Model: "test-model"})

	_, err := client.Rerank(context.Background(), "سوال", testCandidates(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 7")
}

func TestIdentityRerank(t *testing.T) {
	identity := NewIdentity()

	results, err := identity.Rerank(context.Background(), "سوال", testCandidates(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].Product.ID)
	assert.Equal(t, "p2", results[1].Product.ID)

	all, err := identity.Rerank(context.Background(), "سوال", testCandidates(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTruncate(t *testing.T) {
	candidates := testCandidates()
	assert.Len(t, Truncate(candidates, 2), 2)
	assert.Len(t, Truncate(candidates, 10), 3)
	assert.Len(t, Truncate(candidates, 0), 3)
	assert.Empty(t, Truncate(nil, 3))
}
