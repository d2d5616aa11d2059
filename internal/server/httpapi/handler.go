// Package httpapi exposes the REST surface: the /auth session endpoints and
// the /api resources (users, posts, comments, search, uploads), plus health
// and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/metrics"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/ratelimit"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

type Sessions interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.TokenPair, error)
	Logout(ctx context.Context, presented string) error
	Refresh(ctx context.Context, presented string) (*services.TokenPair, error)
}

type Users interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, actorID, id string, req services.UpdateRequest) (*models.User, error)
	Delete(ctx context.Context, actorID, id string) error
}

type Uploads interface {
	Create(ctx context.Context, ownerID string, req services.UploadRequest) (*services.UploadTicket, error)
	Complete(ctx context.Context, ownerID, id string) error
	DownloadURL(ctx context.Context, id string) (string, error)
}

type Posts interface {
	Create(ctx context.Context, actorID, content string) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	Update(ctx context.Context, actorID, id, content string) (*models.Post, error)
	Delete(ctx context.Context, actorID, id string) error
	ToggleLike(ctx context.Context, actorID, id string) (models.Like, error)
}

type Comments interface {
	Create(ctx context.Context, actorID string, req services.CommentRequest) (*models.Comment, error)
	Get(ctx context.Context, id string) (*models.Comment, error)
	List(ctx context.Context) ([]*models.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Comment, error)
	ListByParent(ctx context.Context, parentID string) ([]*models.Comment, error)
	Update(ctx context.Context, actorID, id, content string) (*models.Comment, error)
	Delete(ctx context.Context, actorID, id string) error
	ToggleLike(ctx context.Context, actorID, id string) (models.Like, error)
}

type Search interface {
	Search(ctx context.Context, query string, scope services.SearchScope) (*services.SearchResult, error)
}

// TokenVerifier checks bearer access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Pinger reports whether a dependency is reachable. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the handler. Limiter, Ready, Metrics and
// Gatherer are optional.
type Deps struct {
	Sessions Sessions
	Users    Users
	Uploads  Uploads
	Posts    Posts
	Comments Comments
	Search   Search
	Verifier TokenVerifier
	Limiter  ratelimit.Limiter
	Ready    Pinger
	Log      logging.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type Handler struct {
	Deps

	cookie         cookieSettings
	allowedOrigins []string
	confirmUser    bool
	exposeErrors   bool
	now            func() time.Time
}

func NewHandler(cfg *config.Config, d Deps) (*Handler, error) {
	sameSite, err := cfg.SameSite()
	if err != nil {
		return nil, err
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.Unlimited{}
	}
	if d.Log == nil {
		d.Log = logging.Nop{}
	}
	d.Log = d.Log.With("module", "http")

	return &Handler{
		Deps: d,
		cookie: cookieSettings{
			maxAge:   int(cfg.RefreshTokenValidityDuration / time.Second),
			secure:   cfg.CookieSecure,
			sameSite: sameSite,
		},
		allowedOrigins: cfg.AllowedOrigins,
		confirmUser:    cfg.GuardConfirmUser,
		exposeErrors:   cfg.ExposeErrors,
		now:            time.Now,
	}, nil
}

// Server wraps the router into an http.Server with sane timeouts.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
