package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/dbx"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// UpdateRequest carries optional changes; nil fields are left as they are.
type UpdateRequest struct {
	Username    *string
	Email       *string
	Password    *string
	DisplayName *string
	Bio         *string
	Location    *string
}

// UserService manages accounts and profiles.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	log         logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		log:         log.With("module", "users"),
	}
}

// Register creates an account. Missing fields yield a FieldsError wrapping
// ErrInvalidRequest; taken username or email one wrapping ErrConflict.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	missing := map[string]string{}
	if req.Username == "" {
		missing["username"] = "missing"
	}
	if req.Email == "" {
		missing["email"] = "missing"
	}
	if req.Password == "" {
		missing["password"] = "missing"
	}
	if err := fieldsOrNil(common.ErrInvalidRequest, missing); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, &FieldsError{Err: common.ErrInvalidRequest, Fields: map[string]string{"email": "invalid"}}
	}

	repo := s.repomanager.Users(s.db)

	if err := s.checkTaken(ctx, req.Username, req.Email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash([]byte(req.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) checkTaken(ctx context.Context, username, email, excludeID string) error {
	usernameTaken, emailTaken, err := s.repomanager.Users(s.db).Taken(ctx, username, email, excludeID)
	if err != nil {
		return fmt.Errorf("check taken: %w", err)
	}

	taken := map[string]string{}
	if usernameTaken {
		taken["username"] = "taken"
	}
	if emailTaken {
		taken["email"] = "taken"
	}
	return fieldsOrNil(common.ErrConflict, taken)
}

// Get returns the user with the given id. A malformed id is a bad request.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrInvalidRequest
	}
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// Exists backs the hardened access guard.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *UserService) List(ctx context.Context) ([]models.Profile, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	profiles := make([]models.Profile, 0, len(list))
	for _, u := range list {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// Update changes the profile of id on behalf of actorID. Renaming does not
// touch the refresh-token set: outstanding tokens still carry the old
// username and are refused when presented.
func (s *UserService) Update(ctx context.Context, actorID, id string, req UpdateRequest) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrInvalidRequest
	}
	if actorID != id {
		return nil, common.ErrForbidden
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	invalid := map[string]string{}
	if req.Username != nil {
		if v := strings.TrimSpace(*req.Username); v == "" {
			invalid["username"] = "missing"
		} else {
			user.Username = v
		}
	}
	if req.Email != nil {
		v := strings.TrimSpace(*req.Email)
		if _, err := mail.ParseAddress(v); err != nil {
			invalid["email"] = "invalid"
		} else {
			user.Email = v
		}
	}
	if req.Password != nil && *req.Password == "" {
		invalid["password"] = "missing"
	}
	if err := fieldsOrNil(common.ErrInvalidRequest, invalid); err != nil {
		return nil, err
	}

	if req.Username != nil || req.Email != nil {
		if err := s.checkTaken(ctx, user.Username, user.Email, user.ID); err != nil {
			return nil, err
		}
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash([]byte(*req.Password))
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Location != nil {
		user.Location = *req.Location
	}

	updated, err := repo.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// Delete removes the account of id on behalf of actorID together with all
// of its sessions, upload records and posts. Its comments stay, detached.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrInvalidRequest
	}
	if actorID != id {
		return common.ErrForbidden
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.ClearRefreshTokens(ctx, id); err != nil {
			return fmt.Errorf("clear refresh tokens: %w", err)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}
