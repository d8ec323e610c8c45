// Package embed turns Persian text into dense vectors through an
// OpenAI-compatible embeddings endpoint serving a multilingual E5 model.
// E5 models expect an input prefix marking which side of the retrieval
// pair a text belongs to, so queries are sent as "query: ..." and catalog
// passages as "passage: ...".
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hunterwarburton/porsa/internal/logger"
)

const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// Options configures the embedding client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	// Dim, when positive, is the expected vector dimension. Mismatched
	// responses are rejected here instead of failing later inside the
	// vector store.
	Dim     int
	Timeout time.Duration
}

// Client calls the embeddings endpoint.
type Client struct {
	opts       Options
	httpClient *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewClient creates an embedding client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{queryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedPassages embeds catalog passages for indexing, in input order.
func (c *Client) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = passagePrefix + t
	}
	return c.embed(ctx, prefixed)
}

func (c *Client) embed(ctx context.Context, input []string) ([][]float32, error) {
	reqBody := embedRequest{Model: c.opts.Model, Input: input}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.opts.BaseURL + "/embeddings"
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
		return nil, fmt.Errorf("embeddings api http error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embedResp.Data) != len(input) {
		return nil, fmt.Errorf("embeddings api returned %d vectors for %d inputs", len(embedResp.Data), len(input))
	}

	// The API is allowed to return entries out of order.
	sort.Slice(embedResp.Data, func(i, j int) bool {
		return embedResp.Data[i].Index < embedResp.Data[j].Index
	})

	vectors := make([][]float32, len(embedResp.Data))
	for i, d := range embedResp.Data {
		if c.opts.Dim > 0 && len(d.Embedding) != c.opts.Dim {
			return nil, fmt.Errorf("embeddings api returned dimension %d, expected %d", len(d.Embedding), c.opts.Dim)
		}
		vectors[i] = d.Embedding
	}

	logger.EmbedDebug("Embedded %d texts with model %s", len(input), c.opts.Model)
	return vectors, nil
}
