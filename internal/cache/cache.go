// Package cache implements the Redis-backed cache tiers: final responses
// keyed by query fingerprint, query embeddings, product snapshots, and
// session records. Reads report errors as misses, so callers treat the
// cache as advisory and never fail a request on it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// Key families, matching the existing Redis layout of the catalog service.
const (
	responseKeyPrefix  = "response:"
	embeddingKeyPrefix = "embedding:"
	productKeyPrefix   = "product:"
	sessionKeyPrefix   = "session:"
)

// Options configures the Redis adapter. Zero TTLs fall back to the
// service defaults; a zero OpTimeout leaves operations bounded only by
// the caller's context.
type Options struct {
	Addr     string
	Password string
	DB       int

	ResponseTTL  time.Duration
	EmbeddingTTL time.Duration
	ProductTTL   time.Duration
	SessionTTL   time.Duration
	OpTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.ResponseTTL <= 0 {
		o.ResponseTTL = time.Hour
	}
	if o.EmbeddingTTL <= 0 {
		o.EmbeddingTTL = 24 * time.Hour
	}
	if o.ProductTTL <= 0 {
		o.ProductTTL = time.Hour
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 30 * time.Minute
	}
	return o
}

// Redis is the go-redis backed cache adapter.
type Redis struct {
	client *redis.Client
	opts   Options
}

// New connects to Redis and verifies the connection with a ping.
func New(opts Options) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	logger.CacheInfo("Connected to Redis at %s (db=%d)", opts.Addr, opts.DB)
	return &Redis{client: client, opts: opts.withDefaults()}, nil
}

// bound caps a single cache operation so a slow Redis cannot stall the
// request path.
func (r *Redis) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.OpTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.OpTimeout)
	}
	return context.WithCancel(ctx)
}

// GetResponse looks up the cached final answer for a query fingerprint.
func (r *Redis) GetResponse(ctx context.Context, fingerprint string) (core.CacheEntry, bool) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, responseKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.CacheWarn("Response lookup failed for %s: %v", fingerprint, err)
		}
		return core.CacheEntry{}, false
	}

	var entry core.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.CacheWarn("Dropping undecodable response entry %s: %v", fingerprint, err)
		return core.CacheEntry{}, false
	}
	logger.CacheDebug("Response hit for %s (intent=%s)", fingerprint, entry.Intent)
	return entry, true
}

// PutResponse stores a final answer. Writes are last-write-wins; a
// concurrent writer for the same fingerprint simply overwrites.
func (r *Redis) PutResponse(ctx context.Context, entry core.CacheEntry) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal response entry: %w", err)
	}

	ttl := r.opts.ResponseTTL
	if entry.TTLSeconds > 0 {
		ttl = time.Duration(entry.TTLSeconds) * time.Second
	}
	if err := r.client.Set(ctx, responseKeyPrefix+entry.Fingerprint, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache response %s: %w", entry.Fingerprint, err)
	}
	logger.CacheDebug("Cached response for %s (ttl=%s)", entry.Fingerprint, ttl)
	return nil
}

// GetEmbedding looks up a cached query embedding. The value is the plain
// JSON float array, the same layout the previous service wrote.
func (r *Redis) GetEmbedding(ctx context.Context, fingerprint string) ([]float32, bool) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, embeddingKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.CacheWarn("Embedding lookup failed for %s: %v", fingerprint, err)
		}
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		logger.CacheWarn("Dropping undecodable embedding entry %s: %v", fingerprint, err)
		return nil, false
	}
	return vector, true
}

// PutEmbedding stores a query embedding.
func (r *Redis) PutEmbedding(ctx context.Context, fingerprint string, vector []float32) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	if err := r.client.Set(ctx, embeddingKeyPrefix+fingerprint, data, r.opts.EmbeddingTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache embedding %s: %w", fingerprint, err)
	}
	return nil
}

// GetProduct looks up a cached product snapshot by id.
func (r *Redis) GetProduct(ctx context.Context, id string) (core.Product, bool) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, productKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.CacheWarn("Product lookup failed for %s: %v", id, err)
		}
		return core.Product{}, false
	}

	var product core.Product
	if err := json.Unmarshal(data, &product); err != nil {
		logger.CacheWarn("Dropping undecodable product entry %s: %v", id, err)
		return core.Product{}, false
	}
	return product, true
}

// PutProduct stores a product snapshot.
func (r *Redis) PutProduct(ctx context.Context, product core.Product) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.ID, err)
	}
	if err := r.client.Set(ctx, productKeyPrefix+product.ID, data, r.opts.ProductTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache product %s: %w", product.ID, err)
	}
	return nil
}

// DeleteProduct drops the cached snapshot for a product, called when the
// catalog entry changes.
func (r *Redis) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Del(ctx, productKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product %s: %w", id, err)
	}
	return nil
}

// PutSession records the latest interaction for a user.
func (r *Redis) PutSession(ctx context.Context, rec core.SessionRecord) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session for %s: %w", rec.UserID, err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+rec.UserID, data, r.opts.SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store session for %s: %w", rec.UserID, err)
	}
	return nil
}

// Ping reports whether the backend is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
