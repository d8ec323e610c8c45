package cache

import (
	"context"

	"github.com/hunterwarburton/porsa/internal/core"
)

// Noop is the cache used when Redis is unreachable or disabled. Every
// lookup misses and every write succeeds without storing anything, so the
// pipeline runs unchanged, just without the shortcut.
type Noop struct{}

// NewNoop returns the no-op cache.
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) GetResponse(context.Context, string) (core.CacheEntry, bool) { return core.CacheEntry{}, false }

func (*Noop) PutResponse(context.Context, core.CacheEntry) error { return nil }

func (*Noop) GetEmbedding(context.Context, string) ([]float32, bool) { return nil, false }

func (*Noop) PutEmbedding(context.Context, string, []float32) error { return nil }

func (*Noop) GetProduct(context.Context, string) (core.Product, bool) { return core.Product{}, false }

func (*Noop) PutProduct(context.Context, core.Product) error { return nil }

func (*Noop) DeleteProduct(context.Context, string) error { return nil }

func (*Noop) PutSession(context.Context, core.SessionRecord) error { return nil }

func (*Noop) Ping(context.Context) error { return nil }

func (*Noop) Close() error { return nil }
