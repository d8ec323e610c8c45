// Command ingest seeds the vector index with products: channel dumps from a
// dataset directory, or the built-in sample catalog when none is given.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hunterwarburton/porsa/internal/config"
	"github.com/hunterwarburton/porsa/internal/embed"
	"github.com/hunterwarburton/porsa/internal/ingest"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/rag"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	dataset := flag.String("dataset", "", "Directory of channel dump JSON files; empty seeds the sample catalog")
	fresh := flag.Bool("fresh", false, "Drop and recreate the collection before seeding")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall ingestion budget")
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

	// An in-memory index dies with this process, so seeding one here
	// would be a no-op for the service.
	if cfg.Milvus.UseMemory {
		logger.Error("VECTOR_STORE_MEMORY is set; ingestion needs a persistent Milvus store")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := rag.NewMilvusStore(ctx, rag.MilvusOptions{
		Addr:         cfg.Milvus.Addr(),
		Collection:   cfg.Milvus.Collection,
		EmbeddingDim: cfg.Milvus.EmbeddingDim,
		Fresh:        *fresh,
	})
	if err != nil {
		logger.Error("Failed to initialize Milvus store: %v", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	embedder := embed.NewClient(embed.Options{
		BaseURL: cfg.Embed.BaseURL,
		APIKey:  cfg.Embed.APIKey,
		Model:   cfg.Embed.Model,
		Dim:     cfg.Milvus.EmbeddingDim,
		Timeout: cfg.Embed.Timeout,
	})

	seeder := ingest.New(embedder, store, ingest.Options{Fresh: *fresh})

	var written int
	if *dataset != "" {
		written, err = seeder.SeedDir(ctx, *dataset)
	} else {
		logger.Info("No dataset directory given, seeding the sample catalog")
		written, err = seeder.Seed(ctx, ingest.SampleCatalog())
	}
	if err != nil {
		logger.Error("Ingestion failed after %d products: %v", written, err)
		os.Exit(1)
	}

	logger.Info("Ingestion complete: %d products written", written)
}
