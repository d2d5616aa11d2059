package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type createUploadRequest struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type createUploadResponse struct {
	ID        string `json:"id"`
	UploadURL string `json:"uploadUrl"`
}

func (h *Handler) createUpload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ticket, err := h.Uploads.Create(r.Context(), ownerID, services.UploadRequest(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createUploadResponse{ID: ticket.Upload.ID, UploadURL: ticket.UploadURL})
}

func (h *Handler) completeUpload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.Uploads.Complete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) downloadUpload(w http.ResponseWriter, r *http.Request) {
	url, err := h.Uploads.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
