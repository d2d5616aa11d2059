// Package userstest provides an in-memory users.Repository for tests. It
// keeps the conditional semantics of the Postgres repository and honours
// context cancellation the way a database driver does.
package userstest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/dbx/dbxtest"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/google/uuid"
)

type Repository struct {
	mu            sync.Mutex
	byID          map[string]*models.User
	order         []string
	lookups       int
	beforeReplace func()

	// Err, when set, is returned by every call.
	Err error
	// OnFind runs after FindByRefreshToken resolves.
	OnFind func()
	// RotateLoses makes RotateRefreshToken report that the token vanished.
	RotateLoses bool
}

func New() *Repository {
	return &Repository{byID: map[string]*models.User{}}
}

// SetBeforeReplace arms fn to run once before the next ReplaceRefreshTokens,
// outside the lock, to simulate a concurrent writer. fn may re-arm itself.
func (m *Repository) SetBeforeReplace(fn func()) {
	m.mu.Lock()
	m.beforeReplace = fn
	m.mu.Unlock()
}

func clone(u *models.User) *models.User {
	c := *u
	c.RefreshTokens = slices.Clone(u.RefreshTokens)
	if c.RefreshTokens == nil {
		c.RefreshTokens = []string{}
	}
	c.PasswordHash = slices.Clone(u.PasswordHash)
	return &c
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

func (m *Repository) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Err
}

// Lookups counts single-user reads since the last ResetLookups.
func (m *Repository) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *Repository) ResetLookups() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = 0
}

// Tokens returns a copy of the user's refresh-token set.
func (m *Repository) Tokens(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return slices.Clone(u.RefreshTokens)
	}
	return nil
}

func (m *Repository) SetTokens(id string, tokens []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.RefreshTokens = slices.Clone(tokens)
	}
}

func (m *Repository) find(pred func(*models.User) bool) (*models.User, error) {
	m.lookups++
	for _, id := range m.order {
		if u, ok := m.byID[id]; ok && pred(u) {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *Repository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.byID {
		if ex.Username == u.Username || ex.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	u.RefreshTokens = []string{}
	m.byID[u.ID] = clone(u)
	m.order = append(m.order, u.ID)
	return clone(u), nil
}

func (m *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *Repository) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	u, err := m.find(func(u *models.User) bool { return u.HasRefreshToken(token) })
	m.mu.Unlock()
	if m.OnFind != nil {
		m.OnFind()
	}
	return u, err
}

func (m *Repository) List(ctx context.Context) ([]*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, id := range m.order {
		if u, ok := m.byID[id]; ok {
			out = append(out, clone(u))
		}
	}
	return out, nil
}

func (m *Repository) Search(ctx context.Context, pattern string) ([]*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, id := range m.order {
		u, ok := m.byID[id]
		if !ok {
			continue
		}
		for _, v := range []string{u.Username, u.DisplayName, u.Bio, u.Location} {
			if dbxtest.ILike(pattern, v) {
				out = append(out, clone(u))
				break
			}
		}
	}
	return out, nil
}

func (m *Repository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[u.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	next := clone(u)
	next.RefreshTokens = cur.RefreshTokens
	next.UpdatedAt = time.Now()
	m.byID[u.ID] = next
	return clone(next), nil
}

func (m *Repository) Delete(ctx context.Context, id string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *Repository) Taken(ctx context.Context, username, email, excludeID string) (bool, bool, error) {
	if err := m.check(ctx); err != nil {
		return false, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var un, em bool
	for id, u := range m.byID {
		if id == excludeID {
			continue
		}
		un = un || u.Username == username
		em = em || u.Email == email
	}
	return un, em, nil
}

func (m *Repository) ReplaceRefreshTokens(ctx context.Context, userID string, expected, next []string) (bool, error) {
	m.mu.Lock()
	hook := m.beforeReplace
	m.beforeReplace = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := m.check(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || !slices.Equal(u.RefreshTokens, expected) {
		return false, nil
	}
	u.RefreshTokens = slices.Clone(next)
	return true, nil
}

func (m *Repository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error) {
	if err := m.check(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || !u.HasRefreshToken(oldToken) || m.RotateLoses {
		return false, nil
	}
	u.RefreshTokens = append(without(u.RefreshTokens, oldToken), newToken)
	return true, nil
}

func (m *Repository) RemoveRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	if err := m.check(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || !u.HasRefreshToken(token) {
		return false, nil
	}
	u.RefreshTokens = without(u.RefreshTokens, token)
	return true, nil
}

func (m *Repository) ClearRefreshTokens(ctx context.Context, userID string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[userID]; ok {
		u.RefreshTokens = []string{}
	}
	return nil
}
