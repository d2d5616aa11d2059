package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/socialnet/internal/common"
)

type cookieSettings struct {
	maxAge   int
	secure   bool
	sameSite http.SameSite
}

func (c cookieSettings) base(value string) *http.Cookie {
	return &http.Cookie{
		Name:     common.RefreshCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	c := h.cookie.base(token)
	c.MaxAge = h.cookie.maxAge
	http.SetCookie(w, c)
}

// clearRefreshCookie must carry the same attributes as the cookie it
// replaces or browsers keep the old one.
func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	c := h.cookie.base("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(common.RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
