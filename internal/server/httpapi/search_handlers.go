package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// parseScope reads the optional users, posts and comments query flags.
func parseScope(r *http.Request) (services.SearchScope, error) {
	var scope services.SearchScope
	q := r.URL.Query()
	for name, dst := range map[string]*bool{"users": &scope.Users, "posts": &scope.Posts, "comments": &scope.Comments} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return scope, fmt.Errorf("%w: %s must be a boolean", common.ErrInvalidRequest, name)
		}
		*dst = b
	}
	return scope, nil
}

// searchQuery returns the decoded {query} segment. chi matches on RawPath
// when the path needed escaping, and then the parameter is still escaped.
func searchQuery(r *http.Request) (string, error) {
	q := chi.URLParam(r, "query")
	if r.URL.RawPath == "" {
		return q, nil
	}
	q, err := url.PathUnescape(q)
	if err != nil {
		return "", fmt.Errorf("%w: malformed query", common.ErrInvalidRequest)
	}
	return q, nil
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	query, err := searchQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Search.Search(r.Context(), query, scope)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
