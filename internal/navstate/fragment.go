// Package navstate maps storefront filter state to and from the shareable URL fragment.
package navstate

import (
	"net/url"
	"strings"

	"github.com/absolutastore/storefront-backend/internal/catalog"
)

const searchParam = "search"

// FilterState is the {category, search term} pair a listing is derived from.
type FilterState struct {
	Category   string `json:"category"`
	SearchTerm string `json:"search_term"`
}

// Normalize trims both fields and maps an empty or "all" category to "all".
func (s FilterState) Normalize() FilterState {
	category := strings.TrimSpace(s.Category)
	if catalog.IsAllCategory(category) {
		category = catalog.CategoryAll
	}
	return FilterState{Category: category, SearchTerm: strings.TrimSpace(s.SearchTerm)}
}

// Encode renders the fragment: "#" for all, "#<category>" otherwise, with
// "?search=<term>" appended when the term is non-empty.
func Encode(category, searchTerm string) string {
	state := FilterState{Category: category, SearchTerm: searchTerm}.Normalize()

	var b strings.Builder
	b.WriteByte('#')
	if state.Category != catalog.CategoryAll {
		b.WriteString(url.PathEscape(state.Category))
	}
	if state.SearchTerm != "" {
		b.WriteString("?" + searchParam + "=")
		b.WriteString(url.QueryEscape(state.SearchTerm))
	}
	return b.String()
}

// Decode parses a fragment with or without the leading "#". A missing
// category decodes to "all" and a missing search parameter to "".
func Decode(fragment string) (category, searchTerm string) {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")

	path, rawQuery, _ := strings.Cut(fragment, "?")
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	if rawQuery != "" {
		if values, err := url.ParseQuery(rawQuery); err == nil {
			searchTerm = values.Get(searchParam)
		}
	}

	state := FilterState{Category: path, SearchTerm: searchTerm}.Normalize()
	return state.Category, state.SearchTerm
}

// DecodeState is Decode returning a FilterState.
func DecodeState(fragment string) FilterState {
	category, term := Decode(fragment)
	return FilterState{Category: category, SearchTerm: term}
}

// IsEmpty reports whether fragment carries no navigation state at all.
func IsEmpty(fragment string) bool {
	trimmed := strings.TrimSpace(fragment)
	return trimmed == "" || trimmed == "#"
}
