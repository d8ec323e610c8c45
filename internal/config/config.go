// Package config loads service configuration from the environment, with the
// same env-plus-defaults convention the rest of the repo's tooling expects.
// A .env file is honored when present (loaded by the entrypoints via
// godotenv), after which every option is a plain environment variable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hunterwarburton/porsa/internal/core"
)

// Config is the full application configuration.
type Config struct {
	AppPort int
	Debug   bool

	Redis     RedisConfig
	Milvus    MilvusConfig
	Embed     EmbedConfig
	LLM       LLMConfig
	Rerank    RerankConfig
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Pipeline  PipelineConfig
	Intent    IntentConfig
	Telegram  TelegramConfig
	Admin     AdminConfig
}

// RedisConfig configures the cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MilvusConfig configures the vector index.
type MilvusConfig struct {
	Host         string
	Port         string
	Collection   string
	EmbeddingDim int
	// UseMemory swaps the Milvus-backed store for the in-memory one, for
	// local development without a running Milvus.
	UseMemory bool
}

// Addr returns the host:port address of the Milvus backend.
func (m MilvusConfig) Addr() string {
	return m.Host + ":" + m.Port
}

// EmbedConfig configures the embedding service client.
type EmbedConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// RerankConfig configures the cross-encoder reranker.
type RerankConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Model   string
	TopK    int
	Timeout time.Duration
}

// RetrievalConfig configures the retriever.
type RetrievalConfig struct {
	TopK            int
	QueryExpansion  bool
	QueryVariations int
	Timeout         time.Duration
}

// CacheConfig holds the TTLs for the cache key families.
type CacheConfig struct {
	ResponseTTL  time.Duration
	EmbeddingTTL time.Duration
	ProductTTL   time.Duration
	SessionTTL   time.Duration
	Timeout      time.Duration
}

// PipelineConfig holds the orchestrator budgets and guards.
type PipelineConfig struct {
	Deadline     time.Duration
	SingleFlight bool
}

// IntentConfig configures the rule-table classifier.
type IntentConfig struct {
	RulesPath string
	Threshold float64
	Fallback  core.Intent
}

// TelegramConfig configures the optional bot front end. An empty token
// disables it.
type TelegramConfig struct {
	Token string
}

// AdminConfig configures who may perform admin actions.
type AdminConfig struct {
	UserIDs  string
	AllowIDs string
	Token    string
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort: getEnvInt("APP_PORT", 8000),
		Debug:   getEnvBool("DEBUG", false),

		Redis: RedisConfig{
			Addr:     getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Milvus: MilvusConfig{
			Host:         getEnvWithDefault("MILVUS_HOST", "localhost"),
			Port:         getEnvWithDefault("MILVUS_PORT", "19530"),
			Collection:   getEnvWithDefault("MILVUS_COLLECTION", "products"),
			EmbeddingDim: getEnvInt("EMBEDDING_DIM", 768),
			UseMemory:    getEnvBool("VECTOR_STORE_MEMORY", false),
		},
		Embed: EmbedConfig{
			BaseURL: getEnvWithDefault("EMBED_BASE_URL", "http://localhost:8081/v1"),
			APIKey:  os.Getenv("EMBED_API_KEY"),
			Model:   getEnvWithDefault("EMBED_MODEL", "intfloat/multilingual-e5-base"),
			Timeout: getEnvMillis("EMBED_TIMEOUT_MS", 2000),
		},
		LLM: LLMConfig{
			BaseURL:     getEnvWithDefault("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:      os.Getenv("OPENROUTER_API_KEY"),
			Model:       getEnvWithDefault("OPENROUTER_MODEL", "meta-llama/llama-3-70b-instruct"),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 500),
			Timeout:     getEnvMillis("LLM_TIMEOUT_MS", 6000),
		},
		Rerank: RerankConfig{
			Enabled: getEnvBool("RERANK_ENABLED", true),
			BaseURL: os.Getenv("RERANK_BASE_URL"),
			APIKey:  os.Getenv("RERANK_API_KEY"),
			Model:   getEnvWithDefault("RERANK_MODEL", "BAAI/bge-reranker-v2-m3"),
			TopK:    getEnvInt("RERANK_TOP_K", 3),
			Timeout: getEnvMillis("RERANK_TIMEOUT_MS", 1500),
		},
		Retrieval: RetrievalConfig{
			TopK:            getEnvInt("RETRIEVAL_TOP_K", 10),
			QueryExpansion:  getEnvBool("QUERY_EXPANSION", false),
			QueryVariations: getEnvInt("QUERY_VARIATIONS", 3),
			Timeout:         getEnvMillis("RETRIEVE_TIMEOUT_MS", 2500),
		},
		Cache: CacheConfig{
			ResponseTTL:  getEnvSeconds("CACHE_RESPONSE_TTL", 3600),
			EmbeddingTTL: getEnvSeconds("CACHE_EMBEDDING_TTL", 86400),
			ProductTTL:   getEnvSeconds("CACHE_PRODUCT_TTL", 3600),
			SessionTTL:   getEnvSeconds("CACHE_SESSION_TTL", 1800),
			Timeout:      getEnvMillis("CACHE_TIMEOUT_MS", 150),
		},
		Pipeline: PipelineConfig{
			Deadline:     getEnvMillis("PIPELINE_DEADLINE_MS", 10000),
			SingleFlight: getEnvBool("SINGLE_FLIGHT", true),
		},
		Intent: IntentConfig{
			RulesPath: getEnvWithDefault("INTENT_RULES_PATH", "configs/intents.yaml"),
			Threshold: getEnvFloat("INTENT_THRESHOLD", 0),
			Fallback:  core.Intent(getEnvWithDefault("INTENT_FALLBACK", string(core.IntentGeneralInquiry))),
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TG_BOT_TOKEN"),
		},
		Admin: AdminConfig{
			UserIDs:  os.Getenv("ADMIN_USER_IDS"),
			AllowIDs: os.Getenv("ALLOWED_USER_IDS"),
			Token:    os.Getenv("ADMIN_TOKEN"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for option combinations that cannot work.
func (c *Config) Validate() error {
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Rerank.TopK <= 0 {
		return fmt.Errorf("RERANK_TOP_K must be positive, got %d", c.Rerank.TopK)
	}
	if c.Milvus.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.Milvus.EmbeddingDim)
	}
	if c.Pipeline.Deadline <= 0 {
		return fmt.Errorf("PIPELINE_DEADLINE_MS must be positive")
	}
	if c.Intent.Fallback != core.IntentGeneralInquiry && c.Intent.Fallback != core.IntentUnknown {
		return fmt.Errorf("INTENT_FALLBACK must be %q or %q, got %q",
			core.IntentGeneralInquiry, core.IntentUnknown, c.Intent.Fallback)
	}
	if c.Intent.Threshold < 0 || c.Intent.Threshold > 1 {
		return fmt.Errorf("INTENT_THRESHOLD must be in [0,1], got %v", c.Intent.Threshold)
	}
	return nil
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}
