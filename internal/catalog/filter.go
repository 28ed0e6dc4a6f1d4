package catalog

import "strings"

// CategoryAll disables category filtering.
const CategoryAll = "all"

// categoryAliases maps every known slug, including legacy spellings, to its canonical slug.
var categoryAliases = map[string]string{
	"skincare":   "skincare",
	"maquiagem":  "maquiagem",
	"cabelos":    "cabelos",
	"cabelo":     "cabelos",
	"acessorios": "acessorios",
}

// CanonicalCategory resolves an alias to its canonical slug. Unknown slugs are
// returned normalized but otherwise unchanged.
func CanonicalCategory(slug string) string {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if canonical, ok := categoryAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// IsAllCategory reports whether category bypasses category filtering.
func IsAllCategory(category string) bool {
	normalized := strings.ToLower(strings.TrimSpace(category))
	return normalized == "" || normalized == CategoryAll
}

// CategoryMatches reports whether a product category satisfies the requested category.
func CategoryMatches(productCategory, category string) bool {
	if IsAllCategory(category) {
		return true
	}
	return CanonicalCategory(productCategory) == CanonicalCategory(category)
}

// SearchMatches reports whether the name or description contains term, ignoring case.
func SearchMatches(p Product, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	return p.Description != "" && strings.Contains(strings.ToLower(p.Description), term)
}

// Filter returns the products matching both category and searchTerm, preserving
// input order. It never mutates products.
func Filter(products []Product, category, searchTerm string) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if !CategoryMatches(p.Category, category) {
			continue
		}
		if !SearchMatches(p, searchTerm) {
			continue
		}
		out = append(out, p)
	}
	return out
}
