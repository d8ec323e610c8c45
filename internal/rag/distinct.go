package rag

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// ListBrands returns up to max distinct brand values from the catalog.
func (s *MilvusStore) ListBrands(ctx context.Context, max int) ([]string, error) {
	return s.distinctValues(ctx, FieldBrand, max)
}

// ListCategories returns up to max distinct category values from the catalog.
func (s *MilvusStore) ListCategories(ctx context.Context, max int) ([]string, error) {
	return s.distinctValues(ctx, FieldCategory, max)
}

func (s *MilvusStore) distinctValues(ctx context.Context, field string, max int) ([]string, error) {
	if max <= 0 {
		max = 5
	}

	// Fetch more rows than needed to leave room for duplicates.
	queryOpt := milvusclient.NewQueryOption(s.collection).
		WithOutputFields(field).
		WithLimit(max * 10)

	result, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s values: %w", field, err)
	}

	col := result.GetColumn(field)
	if col == nil {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	values := make([]string, 0)
	for i := 0; i < col.Len(); i++ {
		v, err := col.GetAsString(i)
		if err != nil || v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
		if len(values) >= max {
			break
		}
	}
	return values, nil
}
