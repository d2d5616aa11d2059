// Package services holds the server's business logic. SessionService owns
// the refresh-token protocol: login, logout and refresh with rotation and
// reuse detection over the per-user token set.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/metrics"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/users"
)

// TokenPair bundles a short-lived access token and a rotating refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginRequest identifies the user by Username or, when that is empty, by
// Email. PresentedToken is the refresh cookie the client still holds, if any.
type LoginRequest struct {
	Username       string
	Email          string
	Password       string
	PresentedToken string
}

type SessionService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	hasher        PasswordHasher
	access        *auth.Codec
	refresh       *auth.Codec
	retries       int
	commitTimeout time.Duration
	log           logging.Logger
	metrics       *metrics.Metrics
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher,
	cfg *config.Config, log logging.Logger, mx *metrics.Metrics) *SessionService {
	return &SessionService{
		db:            db,
		repomanager:   m,
		hasher:        hasher,
		access:        auth.NewCodec(cfg.AccessTokenSecret, cfg.AccessTokenValidityDuration),
		refresh:       auth.NewCodec(cfg.RefreshTokenSecret, cfg.RefreshTokenValidityDuration),
		retries:       max(cfg.LoginRetries, 1),
		commitTimeout: cfg.RefreshCommitTimeout,
		log:           log.With("module", "session"),
		metrics:       mx,
	}
}

// AccessCodec verifies the tokens this service hands out as bearer tokens.
func (s *SessionService) AccessCodec() *auth.Codec { return s.access }

// RefreshTTL is the lifetime of refresh tokens, used for the cookie Max-Age.
func (s *SessionService) RefreshTTL() time.Duration { return s.refresh.TTL() }

// Login checks credentials and appends a fresh refresh token to the user's
// set. A presented token that belongs to this user is dropped from the set;
// one that belongs to nobody means it was already rotated out, so the whole
// set is discarded.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if err := missingLoginFields(req); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := s.lookupLogin(ctx, repo, req)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Login(metrics.LoginRejected)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, []byte(req.Password)); err != nil {
		s.metrics.Login(metrics.LoginRejected)
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			user, err = repo.GetByID(ctx, user.ID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return nil, common.ErrorUnauthorized
				}
				return nil, fmt.Errorf("reload user: %w", err)
			}
		}

		retained, err := s.retainedTokens(ctx, repo, user, req.PresentedToken)
		if err != nil {
			return nil, err
		}

		ok, err := repo.ReplaceRefreshTokens(ctx, user.ID, user.RefreshTokens, append(retained, pair.RefreshToken))
		if err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
		if ok {
			s.metrics.Login(metrics.LoginSuccess)
			s.log.Info(ctx, "login", "user_id", user.ID, "sessions", len(retained)+1)
			return pair, nil
		}
		s.log.Debug(ctx, "refresh token set changed concurrently, retrying", "user_id", user.ID, "attempt", attempt+1)
	}

	return nil, fmt.Errorf("store refresh token: %w", common.ErrVersionConflict)
}

func missingLoginFields(req LoginRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.Username) == "" && strings.TrimSpace(req.Email) == "" {
		fields["username"] = "missing"
		fields["email"] = "missing"
	}
	if req.Password == "" {
		fields["password"] = "missing"
	}
	return fieldsOrNil(common.ErrInvalidRequest, fields)
}

func (s *SessionService) lookupLogin(ctx context.Context, repo users.Repository, req LoginRequest) (*models.User, error) {
	if username := strings.TrimSpace(req.Username); username != "" {
		return repo.GetByUsername(ctx, username)
	}
	return repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
}

// retainedTokens computes the part of user's set that survives this login.
// The result is a fresh slice.
func (s *SessionService) retainedTokens(ctx context.Context, repo users.Repository, user *models.User, presented string) ([]string, error) {
	if presented == "" {
		return append([]string(nil), user.RefreshTokens...), nil
	}

	if user.HasRefreshToken(presented) {
		return without(user.RefreshTokens, presented), nil
	}

	_, err := repo.FindByRefreshToken(ctx, presented)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.log.Warn(ctx, "rotated-out refresh token presented at login, dropping all sessions", "user_id", user.ID)
		return []string{}, nil
	case err != nil:
		return nil, fmt.Errorf("lookup presented token: %w", err)
	default:
		// someone else's live session; nothing to clean up here
		return append([]string(nil), user.RefreshTokens...), nil
	}
}

// Logout removes the presented token from its owner's set. Unknown tokens
// and an absent token are not errors.
func (s *SessionService) Logout(ctx context.Context, presented string) error {
	if presented == "" {
		return nil
	}

	repo := s.repomanager.Users(s.db)

	owner, err := repo.FindByRefreshToken(ctx, presented)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}

	removed, err := repo.RemoveRefreshToken(ctx, owner.ID, presented)
	if err != nil {
		return fmt.Errorf("remove refresh token: %w", err)
	}
	if removed {
		s.metrics.Logout()
		s.log.Info(ctx, "logout", "user_id", owner.ID)
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// single-use: whatever the outcome it is no longer in the set afterwards.
//
// Store writes run on a context detached from the caller's cancellation, so
// a client that disconnects mid-refresh cannot leave the set half-updated.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)

	owner, err := repo.FindByRefreshToken(ctx, presented)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	wctx, cancel := s.commitContext(ctx)
	defer cancel()

	if owner == nil {
		return nil, s.refreshUnknown(wctx, repo, presented)
	}

	claims, verr := s.refresh.Verify(presented)
	switch {
	case verr != nil:
		s.metrics.Refresh(metrics.RefreshInvalid)
		s.log.Info(ctx, "refresh token failed verification", "user_id", owner.ID, "err", verr)
		return nil, s.dropPresented(wctx, repo, owner.ID, presented)

	case claims.Username != owner.Username || claims.UserID != owner.ID:
		s.metrics.Refresh(metrics.RefreshMismatch)
		s.log.Info(ctx, "refresh token identity mismatch", "user_id", owner.ID, "token_username", claims.Username)
		return nil, s.dropPresented(wctx, repo, owner.ID, presented)
	}

	pair, err := s.mint(owner)
	if err != nil {
		return nil, err
	}

	rotated, err := repo.RotateRefreshToken(wctx, owner.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		// A concurrent refresh consumed the token between our read and write.
		s.metrics.Refresh(metrics.RefreshReuse)
		s.log.Warn(ctx, "refresh token reused concurrently, dropping all sessions", "user_id", owner.ID)
		if err := repo.ClearRefreshTokens(wctx, owner.ID); err != nil {
			return nil, fmt.Errorf("clear refresh tokens: %w", err)
		}
		return nil, common.ErrForbidden
	}

	s.metrics.Refresh(metrics.RefreshRotated)
	s.log.Debug(ctx, "refresh token rotated", "user_id", owner.ID)
	return pair, nil
}

// refreshUnknown handles a token nobody owns. A genuine one was issued by us
// and already rotated out, which means it leaked: every session of the
// claimed user is revoked.
func (s *SessionService) refreshUnknown(ctx context.Context, repo users.Repository, presented string) error {
	claims, err := s.refresh.Verify(presented)
	if err != nil {
		s.metrics.Refresh(metrics.RefreshInvalid)
		if decoded, derr := auth.Decode(presented); derr == nil {
			s.log.Info(ctx, "unknown refresh token rejected", "claimed_user_id", decoded.UserID, "claimed_username", decoded.Username, "err", err)
		} else {
			s.log.Info(ctx, "unknown refresh token rejected", "err", err)
		}
		return common.ErrForbidden
	}

	s.metrics.Refresh(metrics.RefreshReuse)
	s.log.Warn(ctx, "refresh token reuse detected, dropping all sessions", "user_id", claims.UserID, "username", claims.Username)

	if err := repo.ClearRefreshTokens(ctx, claims.UserID); err != nil {
		return fmt.Errorf("clear refresh tokens: %w", err)
	}
	return common.ErrForbidden
}

func (s *SessionService) dropPresented(ctx context.Context, repo users.Repository, userID, presented string) error {
	if _, err := repo.RemoveRefreshToken(ctx, userID, presented); err != nil {
		return fmt.Errorf("remove refresh token: %w", err)
	}
	return common.ErrForbidden
}

// RevokeAll empties the user's refresh-token set ("log out everywhere").
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ClearRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh tokens: %w", err)
	}
	s.log.Info(ctx, "all sessions revoked", "user_id", userID)
	return nil
}

func (s *SessionService) commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.commitTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, s.commitTimeout)
}

func (s *SessionService) mint(user *models.User) (*TokenPair, error) {
	access, err := s.access.Sign(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.refresh.Sign(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func without(set []string, token string) []string {
	out := make([]string, 0, len(set))
	for _, t := range set {
		if t != token {
			out = append(out, t)
		}
	}
	return out
}
