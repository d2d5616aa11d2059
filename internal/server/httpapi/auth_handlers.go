package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pair, err := h.Sessions.Login(r.Context(), services.LoginRequest{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		PresentedToken: refreshCookie(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	presented := refreshCookie(r)
	if presented == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.Sessions.Logout(r.Context(), presented); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	presented := refreshCookie(r)
	if presented == "" {
		h.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	// The presented token is spent whatever happens next.
	h.clearRefreshCookie(w)

	pair, err := h.Sessions.Refresh(r.Context(), presented)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.Users.Register(r.Context(), services.RegisterRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Profile())
}
