package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type createCommentRequest struct {
	ParentID string `json:"parentID"`
	Content  string `json:"content"`
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Comments.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, comments)
}

func (h *Handler) listUserComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Comments.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, comments)
}

func (h *Handler) listChildComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Comments.ListByParent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeList(w, comments)
}

func (h *Handler) getComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.Comments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	comment, err := h.Comments.Create(r.Context(), actorID, services.CommentRequest(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) updateComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	comment, err := h.Comments.Update(r.Context(), actorID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.Comments.Delete(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) likeComment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	like, err := h.Comments.ToggleLike(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}
