// Package rerank rescores retrieval candidates with a cross-encoder served
// over HTTP. The wire format is the common rerank API shape: the request
// carries the query and candidate documents, the response scores them by
// index.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/rag"
)

// Options configures the rerank client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls the rerank endpoint. It never reorders on its own authority:
// a failed call surfaces as an error and the caller decides how to degrade.
type Client struct {
	opts       Options
	httpClient *http.Client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewClient creates a rerank client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Rerank rescores the candidates against the query and returns at most topN
// of them, ordered by descending relevance. Candidates never enter or leave
// the set, only their order and scores change.
func (c *Client) Rerank(ctx context.Context, query string, candidates []core.SearchResult, topN int) ([]core.SearchResult, error) {
	if len(candidates) == 0 {
		return []core.SearchResult{}, nil
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = rag.EmbedText(cand.Product)
	}

	reqBody := rerankRequest{
		Model:     c.opts.Model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.opts.BaseURL + "/rerank"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank api http error (status %d): %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rerankResp.Results) == 0 {
		return nil, fmt.Errorf("rerank api returned no results")
	}

	reranked := make([]core.SearchResult, 0, len(rerankResp.Results))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank api returned index %d for %d documents", r.Index, len(candidates))
		}
		rescored := candidates[r.Index]
		rescored.Score = float32(r.RelevanceScore)
		reranked = append(reranked, rescored)
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	if len(reranked) > topN {
		reranked = reranked[:topN]
	}

	logger.RerankDebug("Reranked %d candidates down to %d", len(candidates), len(reranked))
	return reranked, nil
}
