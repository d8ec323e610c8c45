package rag

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hunterwarburton/porsa/internal/core"
)

// noProductsFound is the context block used when retrieval came back empty.
const noProductsFound = "هیچ محصول مرتبطی پیدا نشد."

// pricePrinter renders prices with thousands separators (15,000,000).
var pricePrinter = message.NewPrinter(language.English)

// FormatContext renders retrieved products as the Persian context block the
// prompt templates inject. One numbered entry per product: name, price,
// brand and stock flag on the first line, description and features
// indented below, entries separated by blank lines.
func FormatContext(results []core.SearchResult) string {
	if len(results) == 0 {
		return noProductsFound
	}

	parts := make([]string, 0, len(results))
	for i, res := range results {
		p := res.Product

		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)

		if p.Price > 0 {
			fmt.Fprintf(&b, " - قیمت: %s", FormatPrice(p.Price))
			if p.Currency != "" {
				b.WriteString(" " + p.Currency)
			}
		}
		if p.Brand != "" {
			b.WriteString(" - برند: " + p.Brand)
		}
		if p.InStock {
			b.WriteString(" - موجود")
		} else {
			b.WriteString(" - ناموجود")
		}
		if p.Description != "" {
			b.WriteString("\n   توضیحات: " + p.Description)
		}
		if len(p.Features) > 0 {
			b.WriteString("\n   ویژگی‌ها: " + formatFeatures(p.Features))
		}

		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}

// FormatPrice renders an amount with thousands separators.
func FormatPrice(amount int64) string {
	return pricePrinter.Sprintf("%d", amount)
}

// formatFeatures renders the feature map as "key: value" pairs in sorted
// key order so the block is stable across runs.
func formatFeatures(features map[string]interface{}) string {
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %v", k, features[k]))
	}
	return strings.Join(pairs, ", ")
}
