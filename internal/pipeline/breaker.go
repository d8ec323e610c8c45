package pipeline

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/metrics"
)

// Breaker policy shared by all guarded upstreams: three consecutive failures
// open the breaker, calls fail fast during the cool-down, then one probe is
// let through.
const (
	breakerFailureThreshold = 3
	breakerCooldown         = 30 * time.Second
)

func newBreaker(name string, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.PipeWarn("Circuit breaker %s opened after repeated failures", name)
				m.RecordBreakerOpen(name)
				return
			}
			logger.PipeInfo("Circuit breaker %s state %s -> %s", name, from, to)
		},
	})
}

// breakerLLM guards a chat-completion service. Generation and query
// expansion share one breaker since they talk to the same upstream.
type breakerLLM struct {
	inner core.LLMService
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerLLM) ChatCompletion(ctx context.Context, messages []core.ChatMessage) (string, error) {
	reply, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.ChatCompletion(ctx, messages)
	})
	if err != nil {
		return "", err
	}
	return reply.(string), nil
}

type breakerReranker struct {
	inner core.Reranker
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerReranker) Rerank(ctx context.Context, query string, candidates []core.SearchResult, topN int) ([]core.SearchResult, error) {
	ranked, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Rerank(ctx, query, candidates, topN)
	})
	if err != nil {
		return nil, err
	}
	return ranked.([]core.SearchResult), nil
}

// breakerStore guards only the similarity search; upserts and point reads
// are not on the chat request path.
type breakerStore struct {
	core.ProductStore
	cb *gobreaker.CircuitBreaker
}

func (b *breakerStore) Search(ctx context.Context, vector []float32, topK int) ([]core.SearchResult, error) {
	results, err := b.cb.Execute(func() (interface{}, error) {
		return b.ProductStore.Search(ctx, vector, topK)
	})
	if err != nil {
		return nil, err
	}
	return results.([]core.SearchResult), nil
}
