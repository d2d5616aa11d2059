package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager/repomanagertest"
	"github.com/dmitrijs2005/socialnet/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: 24 * time.Hour,
		RefreshCommitTimeout:         time.Second,
		LoginRetries:                 3,
		CookieSecure:                 true,
		CookieSameSite:               "none",
		AllowedOrigins:               []string{"http://localhost:3000"},
		MaxUploadSize:                10 << 20,
	}
}

type apiFixture struct {
	t        *testing.T
	handler  http.Handler
	rm       *repomanagertest.Manager
	mock     sqlmock.Sqlmock
	sessions *services.SessionService
}

// newAPIFixture wires the real services over in-memory repositories. mutate
// may adjust the config or the deps before the handler is built.
func newAPIFixture(t *testing.T, mutate func(*config.Config, *Deps)) *apiFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	rm := repomanagertest.New()
	hasher := services.BcryptHasher{Cost: bcrypt.MinCost}
	sessions := services.NewSessionService(db, rm, hasher, cfg, logging.Nop{}, nil)

	deps := Deps{
		Sessions: sessions,
		Users:    services.NewUserService(db, rm, hasher, logging.Nop{}),
		Uploads:  &fakeUploads{},
		Posts:    services.NewPostService(db, rm, logging.Nop{}),
		Comments: services.NewCommentService(db, rm, logging.Nop{}),
		Search:   services.NewSearchService(db, rm),
		Verifier: sessions.AccessCodec(),
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}

	h, err := NewHandler(cfg, deps)
	require.NoError(t, err)

	return &apiFixture{t: t, handler: h.Routes(), rm: rm, mock: mock, sessions: sessions}
}

func (f *apiFixture) do(method, target, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	f.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(r)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func (f *apiFixture) register(username string) *models.User {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/auth/register",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"pw-`+username+`"}`)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	u, err := f.rm.UsersRepo.GetByUsername(context.Background(), username)
	require.NoError(f.t, err)
	return u
}

// login returns the access token and the refresh cookie value.
func (f *apiFixture) login(username string, opts ...func(*http.Request)) (string, string) {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/auth/login", `{"username":"`+username+`","password":"pw-`+username+`"}`, opts...)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())

	var body tokenResponse
	decodeBody(f.t, rec, &body)
	c := lastRefreshCookie(rec)
	require.NotNil(f.t, c)
	return body.AccessToken, c.Value
}

func withCookie(value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: common.RefreshCookieName, Value: value})
	}
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
}

func withHeader(k, v string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func refreshCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.RefreshCookieName {
			out = append(out, c)
		}
	}
	return out
}

func lastRefreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	cs := refreshCookies(rec)
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

type fakeUploads struct {
	ticket *services.UploadTicket
	url    string
	err    error

	gotOwner string
	gotReq   services.UploadRequest
}

func (f *fakeUploads) Create(_ context.Context, ownerID string, req services.UploadRequest) (*services.UploadTicket, error) {
	f.gotOwner, f.gotReq = ownerID, req
	return f.ticket, f.err
}

func (f *fakeUploads) Complete(_ context.Context, ownerID, _ string) error {
	f.gotOwner = ownerID
	return f.err
}

func (f *fakeUploads) DownloadURL(context.Context, string) (string, error) {
	return f.url, f.err
}

// stubUsers overrides single methods of a Users implementation.
type stubUsers struct {
	Users
	exists    func(id string) (bool, error)
	listErr   error
	listCalls int
}

func (s *stubUsers) Exists(_ context.Context, id string) (bool, error) {
	return s.exists(id)
}

func (s *stubUsers) List(ctx context.Context) ([]models.Profile, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Users.List(ctx)
}

type pingerFunc func(context.Context) error

func (p pingerFunc) PingContext(ctx context.Context) error { return p(ctx) }

var _ Pinger = (*sql.DB)(nil)
