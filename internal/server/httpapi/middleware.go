package httpapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"github.com/dmitrijs2005/socialnet/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// requireAuth admits requests carrying a valid bearer access token and puts
// the caller's identity on the request context. A missing or malformed header
// is 401, a token that fails verification 403.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.ExtractBearer(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			h.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		claims, err := h.Verifier.Verify(token)
		if err != nil {
			h.Log.Debug(r.Context(), "access token rejected", "err", err)
			h.writeError(w, r, common.ErrForbidden)
			return
		}

		if h.confirmUser {
			if uuid.Validate(claims.UserID) != nil {
				h.writeError(w, r, common.ErrorUnauthorized)
				return
			}
			exists, err := h.Users.Exists(r.Context(), claims.UserID)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			if !exists {
				h.writeError(w, r, common.ErrForbidden)
				return
			}
		}

		if rec, ok := w.(*statusRecorder); ok {
			rec.userID = claims.UserID
		}
		ctx := auth.WithIdentity(r.Context(), claims.UserID, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actor returns the authenticated user id put in place by requireAuth.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, common.ErrorUnauthorized)
	}
	return id, ok
}

// throttleLogin applies the login limiter per client address. Limiter
// failures let the request through.
func (h *Handler) throttleLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter, err := h.Limiter.Allow(r.Context(), clientIP(r), h.now())
		if err != nil {
			h.Log.Warn(r.Context(), "login limiter unavailable", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			h.Metrics.Login(metrics.LoginThrottled)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			h.writeError(w, r, common.ErrTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	userID string
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// requestLogger logs every request at a level matching its status class and
// records it in the HTTP metrics under the matched route pattern.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		h.Metrics.HTTPRequest(r.Method, route, strconv.Itoa(status), elapsed.Seconds())

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"latency", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		}
		if rec.userID != "" {
			fields = append(fields, "user_id", rec.userID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			h.Log.Error(r.Context(), "request failed", fields...)
		case status >= http.StatusBadRequest:
			h.Log.Warn(r.Context(), "request rejected", fields...)
		default:
			h.Log.Info(r.Context(), "request", fields...)
		}
	})
}
