// Package pipeline sequences the request stages: normalize, cache lookup,
// intent classification, retrieval, reranking and generation. It owns the
// end-to-end deadline, per-stage budgets, the single-flight guard against
// cache stampedes and the circuit breakers around external services. Stage
// failures degrade; the caller always gets a well-formed answer.
package pipeline

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/generate"
	"github.com/hunterwarburton/porsa/internal/intent"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/metrics"
	"github.com/hunterwarburton/porsa/internal/normalize"
	"github.com/hunterwarburton/porsa/internal/rerank"
	"github.com/hunterwarburton/porsa/internal/retrieve"
)

// ClarifyText is the fixed reply for input that normalizes down to nothing.
const ClarifyText = "لطفاً سوال خود را درباره محصولات بنویسید تا بتوانم کمکتان کنم."

// writeBehindTimeout bounds the detached cache and session writes that run
// after the response has been handed back.
const writeBehindTimeout = 2 * time.Second

// Cache is the slice of the cache adapter the orchestrator touches: final
// answers, session bookkeeping and a ping for the health probe.
type Cache interface {
	core.ResponseCache
	core.SessionStore
	Ping(ctx context.Context) error
}

// Deps are the collaborators the orchestrator sequences. The store, LLM and
// reranker are wrapped with circuit breakers here, so callers pass the plain
// clients.
type Deps struct {
	Classifier *intent.Classifier
	Cache      Cache
	Embedder   core.EmbedService
	Store      core.ProductStore
	LLM        core.LLMService
	// Expander is the low-temperature chat client used for query expansion.
	// Optional; nil disables expansion regardless of Options.
	Expander core.LLMService
	Reranker core.Reranker
	// Metrics may be nil, in which case collectors are registered on a
	// private registry and never exported.
	Metrics *metrics.Metrics
}

// Options holds the orchestrator budgets and stage parameters.
type Options struct {
	// Deadline is the end-to-end budget for one request. Every stage runs
	// under min(its own timeout, what remains of the deadline).
	Deadline        time.Duration
	RetrieveTimeout time.Duration
	RerankTimeout   time.Duration
	GenerateTimeout time.Duration

	TopK            int
	QueryExpansion  bool
	QueryVariations int
	RerankTopN      int

	// ResponseTTL is stamped into cache entries written by this pipeline.
	ResponseTTL time.Duration
	// SingleFlight collapses concurrent identical cache misses into one
	// execution; all waiters share the answer.
	SingleFlight bool
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = 10 * time.Second
	}
	if o.TopK <= 0 {
		o.TopK = 10
	}
	if o.RerankTopN <= 0 {
		o.RerankTopN = 3
	}
	if o.ResponseTTL <= 0 {
		o.ResponseTTL = time.Hour
	}
	return o
}

// Pipeline is the request orchestrator. Safe for concurrent use.
type Pipeline struct {
	classifier *intent.Classifier
	cache      Cache
	store      core.ProductStore
	retriever  *retrieve.Retriever
	reranker   core.Reranker
	generator  *generate.Generator
	metrics    *metrics.Metrics
	llmCB      *gobreaker.CircuitBreaker
	flight     singleflight.Group
	opts       Options
}

// New wires the orchestrator. The vector search, rerank and LLM calls are
// wrapped with fresh circuit breakers; generation and query expansion share
// the LLM breaker.
func New(deps Deps, opts Options) *Pipeline {
	opts = opts.withDefaults()

	m := deps.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}

	llmCB := newBreaker("llm", m)
	searchCB := newBreaker("search", m)
	rerankCB := newBreaker("rerank", m)

	var expander core.LLMService
	if deps.Expander != nil {
		expander = &breakerLLM{inner: deps.Expander, cb: llmCB}
	}
	guardedStore := &breakerStore{ProductStore: deps.Store, cb: searchCB}

	return &Pipeline{
		classifier: deps.Classifier,
		cache:      deps.Cache,
		store:      deps.Store,
		retriever: retrieve.New(deps.Embedder, guardedStore, expander, retrieve.Options{
			TopK:            opts.TopK,
			QueryExpansion:  opts.QueryExpansion,
			QueryVariations: opts.QueryVariations,
		}),
		reranker:  &breakerReranker{inner: deps.Reranker, cb: rerankCB},
		generator: generate.New(&breakerLLM{inner: deps.LLM, cb: llmCB}),
		metrics:   m,
		llmCB:     llmCB,
		opts:      opts,
	}
}

// flightResult is the shareable part of one pipeline execution. Waiters on
// the same fingerprint all receive it; per-caller fields (session id) are
// attached afterwards.
type flightResult struct {
	answer     core.Answer
	confidence float64
	// fallback marks answers produced by a failure path; they are not
	// written to the cache.
	fallback bool
}

// Chat answers one user utterance. It always returns a usable ChatResult:
// on empty input the result carries the fixed clarify answer and the error
// is core.ErrEmptyQuery so transports can flag the request as malformed;
// every other failure is absorbed into a degraded answer with a nil error.
func (p *Pipeline) Chat(ctx context.Context, req core.Request) (core.ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()
	start := time.Now()

	q := normalize.Query(req.RawText)
	if q.Empty() {
		logger.PipeDebug("Empty query from %s", req.UserID)
		return core.ChatResult{
			Answer:    core.Answer{Text: ClarifyText, Intent: core.IntentUnknown},
			SessionID: req.SessionID,
		}, core.ErrEmptyQuery
	}

	lookupStart := time.Now()
	entry, hit := p.cache.GetResponse(ctx, q.Fingerprint)
	p.metrics.ObserveStage("cache", time.Since(lookupStart))
	p.metrics.RecordCacheLookup(hit)

	if hit {
		result := core.ChatResult{
			Answer: core.Answer{
				Text:            entry.AnswerText,
				GroundingDocIDs: entry.GroundingDocIDs,
				Intent:          entry.Intent,
			},
			Cached:     true,
			Confidence: 1,
			SessionID:  req.SessionID,
		}
		p.metrics.RecordRequest(string(entry.Intent), true)
		p.recordSession(req, q, entry.Intent)
		logger.PipeInfo("Answered %s in %s (intent=%s, cached=true)",
			req.UserID, time.Since(start).Round(time.Millisecond), entry.Intent)
		return result, nil
	}

	var fr flightResult
	if p.opts.SingleFlight {
		fr = p.sharedRun(ctx, req.RawText, q)
	} else {
		fr = p.runStages(ctx, req.RawText, q)
	}

	p.metrics.RecordRequest(string(fr.answer.Intent), false)
	p.recordSession(req, q, fr.answer.Intent)
	logger.PipeInfo("Answered %s in %s (intent=%s, cached=false, degraded=%v)",
		req.UserID, time.Since(start).Round(time.Millisecond), fr.answer.Intent, fr.fallback)

	return core.ChatResult{
		Answer:     fr.answer,
		Cached:     false,
		Confidence: fr.confidence,
		SessionID:  req.SessionID,
	}, nil
}

// sharedRun collapses concurrent identical misses into one execution. The
// leader runs detached from any single caller's context, bounded only by
// the pipeline deadline, so one caller hanging up does not abort the work
// for the rest; a result computed after everyone left still warms the
// cache. A waiter whose own deadline expires falls back independently.
func (p *Pipeline) sharedRun(ctx context.Context, rawText string, q core.NormalizedQuery) flightResult {
	ch := p.flight.DoChan(q.Fingerprint, func() (interface{}, error) {
		fctx, fcancel := context.WithTimeout(context.Background(), p.opts.Deadline)
		defer fcancel()
		return p.runStages(fctx, rawText, q), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			logger.PipeDebug("Shared pipeline execution for %s", q.Fingerprint)
		}
		return res.Val.(flightResult)
	case <-ctx.Done():
		logger.PipeWarn("Deadline expired waiting on shared execution for %s", q.Fingerprint)
		return fallbackResult(core.IntentResult{Intent: core.IntentUnknown})
	}
}

// runStages executes the cache-miss path: classify, retrieve, rerank,
// generate, then a write-behind cache fill. Stage failures degrade into the
// nearest safe answer rather than propagate.
func (p *Pipeline) runStages(ctx context.Context, rawText string, q core.NormalizedQuery) flightResult {
	classifyStart := time.Now()
	ir := p.classifier.Classify(q)
	p.metrics.ObserveStage("classify", time.Since(classifyStart))

	var shortlist []core.SearchResult
	if ir.Intent.RequiresRetrieval() {
		if ctx.Err() != nil {
			return fallbackResult(ir)
		}

		retrieveStart := time.Now()
		rctx, rcancel := stageContext(ctx, p.opts.RetrieveTimeout)
		candidates, err := p.retriever.Retrieve(rctx, q)
		rcancel()
		p.metrics.ObserveStage("retrieve", time.Since(retrieveStart))
		if err != nil {
			logger.PipeWarn("Retrieval failed, returning fallback: %v", core.ClassifyStageError("retrieve", err))
			p.metrics.RecordFallback("retrieve")
			return fallbackResult(ir)
		}

		if len(candidates) > 0 {
			if ctx.Err() != nil {
				return fallbackResult(ir)
			}

			rerankStart := time.Now()
			rrctx, rrcancel := stageContext(ctx, p.opts.RerankTimeout)
			ranked, err := p.reranker.Rerank(rrctx, q.CanonicalText, candidates, p.opts.RerankTopN)
			rrcancel()
			p.metrics.ObserveStage("rerank", time.Since(rerankStart))
			if err != nil {
				logger.PipeWarn("Reranking failed, keeping retrieval order: %v", core.ClassifyStageError("rerank", err))
				p.metrics.RecordFallback("rerank")
				ranked = rerank.Truncate(candidates, p.opts.RerankTopN)
			}
			shortlist = ranked
		}
	}

	if ctx.Err() != nil {
		return fallbackResult(ir)
	}

	generateStart := time.Now()
	gctx, gcancel := stageContext(ctx, p.opts.GenerateTimeout)
	answer, degraded := p.generator.Generate(gctx, ir.Intent, rawText, shortlist)
	gcancel()
	p.metrics.ObserveStage("generate", time.Since(generateStart))
	if degraded {
		p.metrics.RecordFallback("generate")
	}

	if !degraded {
		p.writeCacheBehind(q.Fingerprint, answer)
	}

	return flightResult{answer: answer, confidence: ir.Confidence, fallback: degraded}
}

// Health reports per-dependency reachability. The LLM has no ping, so its
// breaker state stands in: an open breaker means the upstream is refusing
// work right now.
func (p *Pipeline) Health(ctx context.Context) core.HealthStatus {
	services := map[string]bool{
		"redis":  p.cache.Ping(ctx) == nil,
		"milvus": p.store.Ping(ctx) == nil,
		"llm":    p.llmCB.State() != gobreaker.StateOpen,
	}

	status := "healthy"
	for _, ok := range services {
		if !ok {
			status = "degraded"
			break
		}
	}
	return core.HealthStatus{Status: status, Services: services}
}

// writeCacheBehind stores the answer without blocking the response path.
func (p *Pipeline) writeCacheBehind(fingerprint string, answer core.Answer) {
	entry := core.CacheEntry{
		Fingerprint:     fingerprint,
		AnswerText:      answer.Text,
		Intent:          answer.Intent,
		GroundingDocIDs: answer.GroundingDocIDs,
		CreatedAt:       time.Now().Unix(),
		TTLSeconds:      int(p.opts.ResponseTTL.Seconds()),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeBehindTimeout)
		defer cancel()
		if err := p.cache.PutResponse(ctx, entry); err != nil {
			logger.PipeWarn("Response cache write failed for %s: %v", fingerprint, err)
		}
	}()
}

// recordSession stores per-session bookkeeping fire-and-forget.
func (p *Pipeline) recordSession(req core.Request, q core.NormalizedQuery, detected core.Intent) {
	if req.SessionID == "" {
		return
	}
	rec := core.SessionRecord{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		LastQuery: q.CanonicalText,
		Intent:    detected,
		UpdatedAt: time.Now().Unix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeBehindTimeout)
		defer cancel()
		if err := p.cache.PutSession(ctx, rec); err != nil {
			logger.PipeDebug("Session write failed for %s: %v", rec.UserID, err)
		}
	}()
}

func fallbackResult(ir core.IntentResult) flightResult {
	return flightResult{
		answer:     core.Answer{Text: generate.FallbackText, Intent: ir.Intent},
		confidence: ir.Confidence,
		fallback:   true,
	}
}

// stageContext derives a stage budget from ctx; the effective deadline is
// the earlier of the stage timeout and whatever remains of the request.
func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
