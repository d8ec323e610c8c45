// Package rag owns the product catalog side of the pipeline: the Milvus
// collection schema, similarity search, an in-memory stand-in for tests and
// local runs, and the Persian context block handed to the LLM.
package rag

import (
	"strings"

	"github.com/hunterwarburton/porsa/internal/core"
)

// DefaultEmbeddingDim is the default dimension for embedding vectors,
// matching multilingual-e5-base.
const DefaultEmbeddingDim = 768

// DefaultCollection is the default product collection name.
const DefaultCollection = "products"

// Field names for the product collection
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldBrand       = "brand"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldCurrency    = "currency"
	FieldInStock     = "in_stock"
	FieldDescription = "description"
	FieldFeatures    = "features"
	FieldEmbedding   = "embedding"
)

// EmbedText builds the passage text a product is indexed under: name,
// description and brand joined with single spaces, empty parts skipped.
func EmbedText(p core.Product) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.Description, p.Brand} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
