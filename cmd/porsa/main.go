// Command porsa runs the product-question answering service: the HTTP API
// and the optional Telegram bot, both in front of one shared pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hunterwarburton/porsa/internal/auth"
	"github.com/hunterwarburton/porsa/internal/cache"
	"github.com/hunterwarburton/porsa/internal/config"
	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/embed"
	"github.com/hunterwarburton/porsa/internal/intent"
	"github.com/hunterwarburton/porsa/internal/llm"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/metrics"
	"github.com/hunterwarburton/porsa/internal/pipeline"
	"github.com/hunterwarburton/porsa/internal/rag"
	"github.com/hunterwarburton/porsa/internal/rerank"
	"github.com/hunterwarburton/porsa/internal/server"
	"github.com/hunterwarburton/porsa/internal/telegram"
)

// expansionTemperature is the sampling temperature for the query-expansion
// client. Expansion wants predictable paraphrases, not creative ones.
const expansionTemperature = 0.3

// cacheBackend is everything the app needs from one cache implementation.
// Both the Redis cache and the no-op fallback satisfy it.
type cacheBackend interface {
	pipeline.Cache
	core.EmbeddingCache
	server.ProductCache
	Close() error
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Init(*debug)

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if cfg.Debug && !*debug {
		logger.Init(true)
	}

	logger.Info("Starting porsa...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cache: fall back to the no-op when Redis is unreachable, so the
	// service still answers, just without caching.
	var appCache cacheBackend
	redisCache, err := cache.New(cache.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ResponseTTL:  cfg.Cache.ResponseTTL,
		EmbeddingTTL: cfg.Cache.EmbeddingTTL,
		ProductTTL:   cfg.Cache.ProductTTL,
		SessionTTL:   cfg.Cache.SessionTTL,
		OpTimeout:    cfg.Cache.Timeout,
	})
	if err != nil {
		logger.Warn("Redis unreachable, caching disabled: %v", err)
		appCache = cache.NewNoop()
	} else {
		appCache = redisCache
	}
	defer appCache.Close()

	var productStore core.ProductStore
	var catalog telegram.CatalogBrowser
	if cfg.Milvus.UseMemory {
		logger.Info("Using in-memory vector store")
		mem := rag.NewMemoryStore()
		productStore, catalog = mem, mem
	} else {
		milvus, err := rag.NewMilvusStore(ctx, rag.MilvusOptions{
			Addr:         cfg.Milvus.Addr(),
			Collection:   cfg.Milvus.Collection,
			EmbeddingDim: cfg.Milvus.EmbeddingDim,
		})
		if err != nil {
			logger.Error("Failed to initialize Milvus store: %v", err)
			os.Exit(1)
		}
		defer milvus.Close(context.Background())
		productStore, catalog = milvus, milvus
	}

	embedder := embed.NewCachedEmbedder(embed.NewClient(embed.Options{
		BaseURL: cfg.Embed.BaseURL,
		APIKey:  cfg.Embed.APIKey,
		Model:   cfg.Embed.Model,
		Dim:     cfg.Milvus.EmbeddingDim,
		Timeout: cfg.Embed.Timeout,
	}), appCache)

	llmClient := llm.NewClient(llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})

	var expander core.LLMService
	if cfg.Retrieval.QueryExpansion {
		expander = llm.NewClient(llm.Options{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: expansionTemperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
	}

	var reranker core.Reranker = rerank.NewIdentity()
	if cfg.Rerank.Enabled && cfg.Rerank.BaseURL != "" {
		reranker = rerank.NewClient(rerank.Options{
			BaseURL: cfg.Rerank.BaseURL,
			APIKey:  cfg.Rerank.APIKey,
			Model:   cfg.Rerank.Model,
			Timeout: cfg.Rerank.Timeout,
		})
	} else {
		logger.Info("Reranker disabled, keeping retrieval order")
	}

	rules, err := intent.LoadRulesOrDefault(cfg.Intent.RulesPath)
	if err != nil {
		logger.Error("Failed to load intent rules: %v", err)
		os.Exit(1)
	}
	classifier := intent.NewClassifier(rules, cfg.Intent.Threshold, cfg.Intent.Fallback)
	logger.Info("Intent rules loaded (version %s)", rules.Version)

	pipe := pipeline.New(pipeline.Deps{
		Classifier: classifier,
		Cache:      appCache,
		Embedder:   embedder,
		Store:      productStore,
		LLM:        llmClient,
		Expander:   expander,
		Reranker:   reranker,
		Metrics:    metrics.New(nil),
	}, pipeline.Options{
		Deadline:        cfg.Pipeline.Deadline,
		RetrieveTimeout: cfg.Retrieval.Timeout,
		RerankTimeout:   cfg.Rerank.Timeout,
		GenerateTimeout: cfg.LLM.Timeout,
		TopK:            cfg.Retrieval.TopK,
		QueryExpansion:  cfg.Retrieval.QueryExpansion,
		QueryVariations: cfg.Retrieval.QueryVariations,
		RerankTopN:      cfg.Rerank.TopK,
		ResponseTTL:     cfg.Cache.ResponseTTL,
		SingleFlight:    cfg.Pipeline.SingleFlight,
	})

	policy := auth.NewPolicyService(cfg.Admin.UserIDs, cfg.Admin.AllowIDs, cfg.Admin.Token)

	srv := server.New(server.Deps{
		Pipeline:   pipe,
		Cache:      appCache,
		Embedder:   embedder,
		Store:      productStore,
		Classifier: classifier,
		Policy:     policy,
		RulesPath:  cfg.Intent.RulesPath,
	})
	httpServer := srv.HTTPServer(cfg.AppPort)

	go func() {
		logger.Info("HTTP API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed: %v", err)
			cancel()
		}
	}()

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, telegram.Deps{
			Pipeline:   pipe,
			Catalog:    catalog,
			Policy:     policy,
			Classifier: classifier,
			RulesPath:  cfg.Intent.RulesPath,
		})
		if err != nil {
			logger.Error("Failed to initialize Telegram bot: %v", err)
			os.Exit(1)
		}
		logger.Info("Starting Telegram bot")
		go bot.Start(ctx)
	} else {
		logger.Info("TG_BOT_TOKEN not set, Telegram bot disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed: %v", err)
	}
	cancel()

	logger.Info("Shutdown complete")
}
