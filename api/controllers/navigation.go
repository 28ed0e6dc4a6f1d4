package controllers

import (
	"net/http"

	"github.com/absolutastore/storefront-backend/api/responses"
	"github.com/absolutastore/storefront-backend/internal/navstate"
)

type navigationResponse struct {
	State    navstate.FilterState `json:"state"`
	Fragment string               `json:"fragment"`
	Empty    bool                 `json:"empty"`
}

// Navigation decodes ?fragment= into a filter state and returns the canonical
// fragment for it, so clients can normalize shared links without filtering.
func Navigation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fragment := r.URL.Query().Get("fragment")
		state := navstate.DecodeState(fragment)
		responses.WriteSuccess(w, navigationResponse{
			State:    state,
			Fragment: navstate.Encode(state.Category, state.SearchTerm),
			Empty:    navstate.IsEmpty(fragment),
		})
	}
}
