package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceRange bounds an amount mentioned in a query, in tomans. Min stays
// zero when the user named a single amount.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

var (
	quantityRe = regexp.MustCompile(`(\d+)\s*(عدد|تا)`)
	priceRe    = regexp.MustCompile(`(\d+)\s*(تومان|میلیون|هزار)`)
	colorRe    = regexp.MustCompile(`(سفید|سیاه|مشکی|قرمز|آبی|سبز|طلایی|نقره\s*ای|صورتی)`)
	brandRe    = regexp.MustCompile(`(سامسونگ|اپل|شیائومی|ال\s*جی|ایسوس|نوکیا|هواوی)`)
)

// ExtractSlots pulls the commerce entities out of canonical query text.
// Extraction is best effort: a slot that is not present is simply absent
// from the returned map, and callers degrade instead of failing.
func ExtractSlots(text string) map[string]interface{} {
	slots := make(map[string]interface{})

	if m := quantityRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			slots["quantity"] = n
		}
	}
	if m := colorRe.FindStringSubmatch(text); m != nil {
		slots["color"] = m[1]
	}
	if m := brandRe.FindStringSubmatch(text); m != nil {
		slots["brand"] = m[1]
	}
	if r, ok := priceRange(text); ok {
		slots["price_range"] = r
	}
	if items := comparisonItems(text); len(items) > 0 {
		slots["comparison_items"] = items
	}
	return slots
}

func priceRange(text string) (PriceRange, bool) {
	matches := priceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return PriceRange{}, false
	}

	prices := make([]int64, 0, len(matches))
	for _, m := range matches {
		amount, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "میلیون":
			amount *= 1000000
		case "هزار":
			amount *= 1000
		}
		prices = append(prices, amount)
	}

	switch len(prices) {
	case 0:
		return PriceRange{}, false
	case 1:
		return PriceRange{Min: 0, Max: prices[0]}, true
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return PriceRange{Min: lo, Max: hi}, true
}

// comparisonItems collects the tokens on either side of the comparison
// connectives یا and و, deduplicated in first-seen order.
func comparisonItems(text string) []string {
	tokens := strings.Fields(text)

	var items []string
	seen := make(map[string]bool)
	add := func(tok string) {
		if !seen[tok] {
			seen[tok] = true
			items = append(items, tok)
		}
	}
	for i, tok := range tokens {
		if tok != "یا" && tok != "و" {
			continue
		}
		if i == 0 || i == len(tokens)-1 {
			continue
		}
		add(tokens[i-1])
		add(tokens[i+1])
	}
	return items
}
