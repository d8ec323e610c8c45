package rag

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/hunterwarburton/porsa/internal/logger"
)

// VarChar length limits for the product collection
const (
	idMaxLength          = "100"
	nameMaxLength        = "512"
	shortFieldMaxLength  = "255"
	currencyMaxLength    = "32"
	descriptionMaxLength = "65535"
)

// EnsureProductCollection makes sure the product collection exists with the
// expected schema and index, creating it when absent, and loads it into
// memory so it is searchable. With fresh set, an existing collection is
// dropped and rebuilt empty.
func EnsureProductCollection(ctx context.Context, client *milvusclient.Client, collection string, embeddingDim int, fresh bool) error {
	if embeddingDim <= 0 {
		embeddingDim = DefaultEmbeddingDim
	}

	hasOpt := milvusclient.NewHasCollectionOption(collection)
	exists, err := client.HasCollection(ctx, hasOpt)
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}

	if exists && fresh {
		logger.RAGInfo("Dropping collection %s for a fresh start", collection)
		dropOpt := milvusclient.NewDropCollectionOption(collection)
		if err := client.DropCollection(ctx, dropOpt); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", collection, err)
		}
		exists = false
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: collection,
			Description:    "Product catalog vectors for retrieval",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": idMaxLength,
					},
				},
				{
					Name:     FieldName,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": nameMaxLength,
					},
				},
				{
					Name:     FieldBrand,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": shortFieldMaxLength,
					},
				},
				{
					Name:     FieldCategory,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": shortFieldMaxLength,
					},
				},
				{
					Name:     FieldPrice,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:     FieldCurrency,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": currencyMaxLength,
					},
				},
				{
					Name:     FieldInStock,
					DataType: entity.FieldTypeBool,
				},
				{
					Name:     FieldDescription,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": descriptionMaxLength,
					},
				},
				{
					Name:     FieldFeatures,
					DataType: entity.FieldTypeJSON,
				},
				{
					Name:     FieldEmbedding,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", embeddingDim),
					},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(collection, schema)
		createOpt.WithShardNum(2)
		if err := client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collection, err)
		}

		idx := index.NewHNSWIndex(entity.IP, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(collection, FieldEmbedding, idx)
		if _, err := client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("failed to create index on embedding field: %w", err)
		}

		logger.RAGInfo("Created collection %s (dim=%d)", collection, embeddingDim)
	}

	loadOpt := milvusclient.NewLoadCollectionOption(collection)
	if _, err := client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("failed to load collection %s into memory: %w", collection, err)
	}

	return nil
}
