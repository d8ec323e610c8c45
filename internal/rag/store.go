package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// outputFields are the columns fetched for every product read.
var outputFields = []string{
	FieldID, FieldName, FieldBrand, FieldCategory, FieldPrice,
	FieldCurrency, FieldInStock, FieldDescription, FieldFeatures,
}

// MilvusOptions configures the Milvus-backed product store.
type MilvusOptions struct {
	Addr         string
	Collection   string
	EmbeddingDim int
	// Fresh drops and recreates the collection on startup.
	Fresh bool
}

// MilvusStore implements the product store on a Milvus collection.
type MilvusStore struct {
	client       *milvusclient.Client
	collection   string
	embeddingDim int
}

// NewMilvusStore connects to Milvus and ensures the product collection is
// present and loaded.
func NewMilvusStore(ctx context.Context, opts MilvusOptions) (*MilvusStore, error) {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.EmbeddingDim <= 0 {
		opts.EmbeddingDim = DefaultEmbeddingDim
	}

	logger.RAGInfo("Connecting to Milvus at %s (collection=%s, dim=%d)",
		opts.Addr, opts.Collection, opts.EmbeddingDim)

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: opts.Addr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	if err := EnsureProductCollection(ctx, client, opts.Collection, opts.EmbeddingDim, opts.Fresh); err != nil {
		client.Close(ctx)
		return nil, err
	}

	return &MilvusStore{
		client:       client,
		collection:   opts.Collection,
		embeddingDim: opts.EmbeddingDim,
	}, nil
}

// Search runs one similarity search and returns at most topK results,
// ordered by descending score with ties broken by ascending product id.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	searchOpt := milvusclient.NewSearchOption(s.collection, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldEmbedding).
		WithOutputFields(outputFields...)

	resultSets, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	var results []core.SearchResult
	for _, rs := range resultSets {
		for i := 0; i < rs.ResultCount; i++ {
			score := float32(0)
			if i < len(rs.Scores) {
				score = rs.Scores[i]
			}
			results = append(results, core.SearchResult{
				Product: productAt(rs, i),
				Score:   score,
			})
		}
	}

	core.SortByScoreDesc(results)
	logger.RAGDebug("Search returned %d results (topK=%d)", len(results), topK)
	return results, nil
}

// Upsert writes products and their vectors; an existing id is replaced.
func (s *MilvusStore) Upsert(ctx context.Context, products []core.Product, vectors [][]float32) error {
	if len(products) == 0 {
		return nil
	}
	if len(products) != len(vectors) {
		return fmt.Errorf("got %d products but %d vectors", len(products), len(vectors))
	}

	n := len(products)
	ids := make([]string, n)
	names := make([]string, n)
	brands := make([]string, n)
	categories := make([]string, n)
	prices := make([]int64, n)
	currencies := make([]string, n)
	inStock := make([]bool, n)
	descriptions := make([]string, n)
	features := make([][]byte, n)

	for i, p := range products {
		ids[i] = p.ID
		names[i] = p.Name
		brands[i] = p.Brand
		categories[i] = p.Category
		prices[i] = p.Price
		currencies[i] = p.Currency
		inStock[i] = p.InStock
		descriptions[i] = p.Description

		if len(p.Features) == 0 {
			features[i] = []byte("{}")
			continue
		}
		data, err := json.Marshal(p.Features)
		if err != nil {
			return fmt.Errorf("failed to marshal features for %s: %w", p.ID, err)
		}
		features[i] = data
	}

	columns := []column.Column{
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldName, names),
		column.NewColumnVarChar(FieldBrand, brands),
		column.NewColumnVarChar(FieldCategory, categories),
		column.NewColumnInt64(FieldPrice, prices),
		column.NewColumnVarChar(FieldCurrency, currencies),
		column.NewColumnBool(FieldInStock, inStock),
		column.NewColumnVarChar(FieldDescription, descriptions),
		column.NewColumnJSONBytes(FieldFeatures, features),
		column.NewColumnFloatVector(FieldEmbedding, s.embeddingDim, vectors),
	}

	upsertOpt := milvusclient.NewColumnBasedInsertOption(s.collection, columns...)
	if _, err := s.client.Upsert(ctx, upsertOpt); err != nil {
		return fmt.Errorf("failed to upsert %d products: %w", n, err)
	}

	logger.RAGInfo("Upserted %d products into %s", n, s.collection)
	return nil
}

// Get fetches one product by id. The second return is false when absent.
func (s *MilvusStore) Get(ctx context.Context, id string) (core.Product, bool, error) {
	queryOpt := milvusclient.NewQueryOption(s.collection)
	queryOpt.WithFilter(fmt.Sprintf(`id == "%s"`, id))
	queryOpt.WithOutputFields(outputFields...)
	queryOpt.WithLimit(1)

	result, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return core.Product{}, false, fmt.Errorf("failed to query product %s: %w", id, err)
	}
	if result.ResultCount == 0 {
		return core.Product{}, false, nil
	}
	return productAt(result, 0), true, nil
}

// Ping verifies the Milvus backend is reachable.
func (s *MilvusStore) Ping(ctx context.Context) error {
	listOpt := milvusclient.NewListCollectionOption()
	if _, err := s.client.ListCollections(ctx, listOpt); err != nil {
		return fmt.Errorf("milvus unreachable: %w", err)
	}
	return nil
}

// Close closes the connection to Milvus.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// productAt reads one product out of a result set row. Absent or
// undecodable columns yield zero values rather than errors; a row with a
// readable id is always usable downstream.
func productAt(rs milvusclient.ResultSet, i int) core.Product {
	getString := func(field string) string {
		col := rs.GetColumn(field)
		if col == nil || i >= col.Len() {
			return ""
		}
		v, err := col.GetAsString(i)
		if err != nil {
			return ""
		}
		return v
	}
	getInt64 := func(field string) int64 {
		col := rs.GetColumn(field)
		if col == nil || i >= col.Len() {
			return 0
		}
		v, err := col.GetAsInt64(i)
		if err != nil {
			return 0
		}
		return v
	}
	getBool := func(field string) bool {
		col := rs.GetColumn(field)
		if col == nil || i >= col.Len() {
			return false
		}
		v, err := col.GetAsBool(i)
		if err != nil {
			return false
		}
		return v
	}

	p := core.Product{
		ID:          getString(FieldID),
		Name:        getString(FieldName),
		Brand:       getString(FieldBrand),
		Category:    getString(FieldCategory),
		Price:       getInt64(FieldPrice),
		Currency:    getString(FieldCurrency),
		InStock:     getBool(FieldInStock),
		Description: getString(FieldDescription),
	}

	if col := rs.GetColumn(FieldFeatures); col != nil && i < col.Len() {
		if raw, err := col.Get(i); err == nil {
			var data []byte
			switch v := raw.(type) {
			case []byte:
				data = v
			case string:
				data = []byte(v)
			}
			if len(data) > 0 {
				var features map[string]interface{}
				if err := json.Unmarshal(data, &features); err == nil && len(features) > 0 {
					p.Features = features
				}
			}
		}
	}

	return p
}
