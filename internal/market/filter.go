package market

import "strings"

// Dedupe drops duplicate products, keeping the first occurrence of each
// product code. Order is otherwise preserved.
func Dedupe(products []Product) []Product {
	seen := make(map[string]struct{}, len(products))
	out := products[:0:0]
	for _, p := range products {
		if _, ok := seen[p.Code]; ok {
			continue
		}
		seen[p.Code] = struct{}{}
		out = append(out, p)
	}
	return out
}

// FilterByPrice keeps products whose effective price falls inside r.
func FilterByPrice(products []Product, r PriceRange) []Product {
	out := products[:0:0]
	for _, p := range products {
		if r.Contains(p.EffectivePrice()) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByName keeps products whose name contains every term in the
// space-separated query. Matching is case-insensitive; an empty query
// keeps everything.
func FilterByName(products []Product, query string) []Product {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return products
	}
	out := products[:0:0]
	for _, p := range products {
		name := strings.ToLower(p.Name)
		keep := true
		for _, t := range terms {
			if !strings.Contains(name, t) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, p)
		}
	}
	return out
}
