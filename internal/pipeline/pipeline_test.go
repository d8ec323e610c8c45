package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/generate"
	"github.com/hunterwarburton/porsa/internal/intent"
	"github.com/hunterwarburton/porsa/internal/normalize"
	"github.com/hunterwarburton/porsa/internal/rerank"
)

type memCache struct {
	mu       sync.Mutex
	entries  map[string]core.CacheEntry
	sessions map[string]core.SessionRecord
	pingErr  error
}

func newMemCache() *memCache {
	return &memCache{
		entries:  make(map[string]core.CacheEntry),
		sessions: make(map[string]core.SessionRecord),
	}
}

func (c *memCache) GetResponse(ctx context.Context, fingerprint string) (core.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[fingerprint]
	return entry, ok
}

func (c *memCache) PutResponse(ctx context.Context, entry core.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Fingerprint] = entry
	return nil
}

func (c *memCache) PutSession(ctx context.Context, rec core.SessionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[rec.SessionID] = rec
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return c.pingErr }

func (c *memCache) entryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *memCache) sessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

type fakeEmbed struct{}

func (*fakeEmbed) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (*fakeEmbed) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

type fakeStore struct {
	results  []core.SearchResult
	err      error
	delay    time.Duration
	pingErr  error
	searches atomic.Int32
}

func (s *fakeStore) Search(ctx context.Context, vector []float32, topK int) ([]core.SearchResult, error) {
	s.searches.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]core.SearchResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *fakeStore) Upsert(ctx context.Context, products []core.Product, vectors [][]float32) error {
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (core.Product, bool, error) {
	return core.Product{}, false, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) searchCount() int { return int(s.searches.Load()) }

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, messages []core.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(messages) > 0 {
		f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	}
	return f.reply, f.err
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type failReranker struct{}

func (*failReranker) Rerank(ctx context.Context, query string, candidates []core.SearchResult, topN int) ([]core.SearchResult, error) {
	return nil, errors.New("reranker down")
}

func catalogResults() []core.SearchResult {
	return []core.SearchResult{
		{
			Product: core.Product{
				ID: "p1", Name: "گوشی سامسونگ گلکسی S21", Brand: "سامسونگ",
				Price: 15000000, Currency: "تومان", InStock: true,
			},
			Score: 0.92,
		},
		{
			Product: core.Product{
				ID: "p2", Name: "گوشی اپل آیفون 13", Brand: "اپل",
				Price: 42000000, Currency: "تومان", InStock: true,
			},
			Score: 0.81,
		},
	}
}

func testPipeline(c Cache, store core.ProductStore, llmSvc core.LLMService, rr core.Reranker, opts Options) *Pipeline {
	if rr == nil {
		rr = rerank.NewIdentity()
	}
	return New(Deps{
		Classifier: intent.NewClassifier(intent.DefaultRules(), 0, core.IntentGeneralInquiry),
		Cache:      c,
		Embedder:   &fakeEmbed{},
		Store:      store,
		LLM:        llmSvc,
		Reranker:   rr,
	}, opts)
}

func TestChatGreetingSkipsRetrievalThenHitsCache(t *testing.T) {
	cacheStore := newMemCache()
	store := &fakeStore{results: catalogResults()}
	llmSvc := &fakeLLM{reply: "نباید صدا زده شود"}
	p := testPipeline(cacheStore, store, llmSvc, nil, Options{})

	req := core.Request{UserID: "u1", RawText: "سلام", SessionID: "s1"}

	first, err := p.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, generate.GreetingText, first.Answer.Text)
	assert.Equal(t, core.IntentGreeting, first.Answer.Intent)
	assert.False(t, first.Cached)
	assert.Empty(t, first.Answer.GroundingDocIDs)
	assert.Zero(t, store.searchCount())
	assert.Zero(t, llmSvc.callCount())

	fingerprint := normalize.Query("سلام").Fingerprint
	require.Eventually(t, func() bool {
		_, ok := cacheStore.GetResponse(context.Background(), fingerprint)
		return ok
	}, time.Second, 10*time.Millisecond, "write-behind cache fill did not land")

	second, err := p.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, generate.GreetingText, second.Answer.Text)
	assert.Equal(t, core.IntentGreeting, second.Answer.Intent)

	require.Eventually(t, func() bool { return cacheStore.sessionCount() > 0 }, time.Second, 10*time.Millisecond)
}

func TestChatPriceFlowGroundsAnswer(t *testing.T) {
	cacheStore := newMemCache()
	store := &fakeStore{results: catalogResults()}
	llmSvc := &fakeLLM{reply: "قیمت گوشی سامسونگ گلکسی S21 برابر 15,000,000 تومان است."}
	p := testPipeline(cacheStore, store, llmSvc, nil, Options{RerankTopN: 2})

	result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: "قیمت گوشی سامسونگ چقدر است؟"})
	require.NoError(t, err)

	assert.Equal(t, core.IntentPriceCheck, result.Answer.Intent)
	assert.Contains(t, result.Answer.Text, "15,000,000")
	assert.Equal(t, []string{"p1", "p2"}, result.Answer.GroundingDocIDs)
	assert.False(t, result.Cached)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.Equal(t, 1, store.searchCount())

	prompt := llmSvc.lastPrompt()
	assert.Contains(t, prompt, "قیمت گوشی سامسونگ چقدر است؟")
	assert.Contains(t, prompt, "گوشی سامسونگ گلکسی S21")
	assert.Contains(t, prompt, "15,000,000 تومان")
}

func TestChatEmptyIndexAnswersNoResults(t *testing.T) {
	store := &fakeStore{}
	llmSvc := &fakeLLM{reply: "نباید صدا زده شود"}
	p := testPipeline(newMemCache(), store, llmSvc, nil, Options{})

	result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: "قیمت گوشی سامسونگ چقدر است؟"})
	require.NoError(t, err)

	assert.Equal(t, generate.NoResultsText, result.Answer.Text)
	assert.Equal(t, core.IntentPriceCheck, result.Answer.Intent)
	assert.Empty(t, result.Answer.GroundingDocIDs)
	assert.Equal(t, 1, store.searchCount())
	assert.Zero(t, llmSvc.callCount())
}

func TestChatEmptyInputReturnsClarify(t *testing.T) {
	p := testPipeline(newMemCache(), &fakeStore{}, &fakeLLM{}, nil, Options{})

	result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: "   !!؟ "})
	require.ErrorIs(t, err, core.ErrEmptyQuery)
	assert.Equal(t, ClarifyText, result.Answer.Text)
}

func TestChatRetrievalFailureDegrades(t *testing.T) {
	cacheStore := newMemCache()
	store := &fakeStore{err: errors.New("vector store down")}
	llmSvc := &fakeLLM{reply: "نباید صدا زده شود"}
	p := testPipeline(cacheStore, store, llmSvc, nil, Options{})

	result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: "قیمت گوشی سامسونگ چقدر است؟"})
	require.NoError(t, err)

	assert.Equal(t, generate.FallbackText, result.Answer.Text)
	assert.Equal(t, core.IntentPriceCheck, result.Answer.Intent)
	assert.False(t, result.Cached)
	assert.Zero(t, llmSvc.callCount())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, cacheStore.entryCount(), "degraded answers must not be cached")
}

func TestChatRerankFailureKeepsRetrievalOrder(t *testing.T) {
	store := &fakeStore{results: catalogResults()}
	llmSvc := &fakeLLM{reply: "پاسخ"}
	p := testPipeline(newMemCache(), store, llmSvc, &failReranker{}, Options{RerankTopN: 1})

	result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: "قیمت گوشی سامسونگ چقدر است؟"})
	require.NoError(t, err)

	assert.Equal(t, "پاسخ", result.Answer.Text)
	assert.Equal(t, []string{"p1"}, result.Answer.GroundingDocIDs)
	assert.Equal(t, 1, llmSvc.callCount())
}

func TestChatDeadlineYieldsFallback(t *testing.T) {
	store := &fakeStore{results: catalogResults(), delay: 500 * time.Millisecond}
	llmSvc := &fakeLLM{reply: "خیلی دیر"}
	p := testPipeline(newMemCache(), store, llmSvc, nil, Options{Deadline: 80 * time.Millisecond})

	start := time.Now()
	result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: "قیمت گوشی سامسونگ چقدر است؟"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, generate.FallbackText, result.Answer.Text)
	assert.Zero(t, llmSvc.callCount())
	assert.Less(t, elapsed, 400*time.Millisecond, "fallback must arrive near the deadline, not after the stage")
}

func TestChatSingleFlightCollapsesConcurrentMisses(t *testing.T) {
	cacheStore := newMemCache()
	store := &fakeStore{results: catalogResults(), delay: 120 * time.Millisecond}
	llmSvc := &fakeLLM{reply: "پاسخ مشترک"}
	p := testPipeline(cacheStore, store, llmSvc, nil, Options{SingleFlight: true})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]core.ChatResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Chat(context.Background(), core.Request{
				UserID:  fmt.Sprintf("u%d", i),
				RawText: "قیمت گوشی سامسونگ چقدر است؟",
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "پاسخ مشترک", results[i].Answer.Text)
		assert.False(t, results[i].Cached)
	}
	assert.Equal(t, 1, store.searchCount(), "identical misses must share one execution")
	assert.Equal(t, 1, llmSvc.callCount())
}

func TestChatLLMBreakerOpensAndStillAnswers(t *testing.T) {
	store := &fakeStore{results: catalogResults()}
	llmSvc := &fakeLLM{err: errors.New("llm down")}
	p := testPipeline(newMemCache(), store, llmSvc, nil, Options{})

	queries := []string{
		"قیمت گوشی سامسونگ",
		"قیمت گوشی اپل",
		"قیمت هدفون سونی",
		"قیمت لپتاپ ایسوس",
	}
	for _, q := range queries {
		result, err := p.Chat(context.Background(), core.Request{UserID: "u1", RawText: q})
		require.NoError(t, err)
		assert.Equal(t, generate.FallbackText, result.Answer.Text)
	}

	// The breaker opened on the third consecutive failure, so the fourth
	// request never reached the service.
	assert.Equal(t, 3, llmSvc.callCount())

	health := p.Health(context.Background())
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.Services["llm"])
	assert.True(t, health.Services["milvus"])
	assert.True(t, health.Services["redis"])
}

func TestHealthReportsDependencyState(t *testing.T) {
	healthy := testPipeline(newMemCache(), &fakeStore{}, &fakeLLM{reply: "ok"}, nil, Options{})
	h := healthy.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Services["redis"])
	assert.True(t, h.Services["milvus"])
	assert.True(t, h.Services["llm"])

	down := testPipeline(newMemCache(), &fakeStore{pingErr: errors.New("unreachable")}, &fakeLLM{reply: "ok"}, nil, Options{})
	h = down.Health(context.Background())
	assert.Equal(t, "degraded", h.Status)
	assert.False(t, h.Services["milvus"])
}
