// Package llm talks to an OpenAI-compatible chat-completions API. The
// service behind it is typically OpenRouter, but anything speaking the
// same wire format works.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// Options configures the chat client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client is a chat-completions client with a single bounded retry for
// transient failures. 4xx responses are terminal; retrying them would
// just repeat the rejection.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// apiError is the error envelope some providers return with a 200 status,
// so the body is probed for it before the payload is trusted.
type apiError struct {
	Error struct {
		Message  string `json:"message"`
		Code     int    `json:"code"`
		Metadata struct {
			Raw          string `json:"raw"`
			ProviderName string `json:"provider_name"`
		} `json:"metadata"`
	} `json:"error"`
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []core.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates a chat client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Model reports the configured model name.
func (c *Client) Model() string {
	return c.opts.Model
}

// ChatCompletion sends the conversation and returns the assistant reply.
// A transient failure (transport error or 5xx) is retried once if the
// caller's context still has budget.
func (c *Client) ChatCompletion(ctx context.Context, messages []core.ChatMessage) (string, error) {
	content, retryable, err := c.complete(ctx, messages)
	if err == nil {
		return content, nil
	}
	if !retryable || ctx.Err() != nil {
		return "", err
	}

	logger.LLMWarn("Retrying chat completion after transient failure: %v", err)
	content, _, err = c.complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, messages []core.ChatMessage) (string, bool, error) {
	reqBody := chatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	logger.LLMDebug("Sending request to LLM '%s' with %d messages", c.opts.Model, len(messages))

	url := c.opts.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}

	// Probe for the error envelope regardless of status code.
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		retryable := envelope.Error.Code >= 500
		if envelope.Error.Metadata.ProviderName != "" {
			return "", retryable, fmt.Errorf("chat api error (%s): %s",
				envelope.Error.Metadata.ProviderName, envelope.Error.Message)
		}
		return "", retryable, fmt.Errorf("chat api error: %s (code: %d)",
			envelope.Error.Message, envelope.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode >= 500, fmt.Errorf("chat api http error (status %d): %s",
			resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", false, fmt.Errorf("chat api returned no choices")
	}

	if chatResp.Usage.TotalTokens > 0 {
		logger.LLMInfo("LLM usage - prompt: %d, completion: %d, total: %d tokens, finish reason: %s",
			chatResp.Usage.PromptTokens,
			chatResp.Usage.CompletionTokens,
			chatResp.Usage.TotalTokens,
			chatResp.Choices[0].FinishReason)
	} else {
		logger.LLMInfo("LLM call completed, finish reason: %s (usage unavailable)",
			chatResp.Choices[0].FinishReason)
	}

	content := chatResp.Choices[0].Message.Content
	logger.LLMDebug("LLM response: %q", preview(content))
	return content, false, nil
}

// preview truncates text for log lines, respecting rune boundaries.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= 80 {
		return s
	}
	return string(runes[:80]) + "..."
}
