// Package poststest provides an in-memory posts.Repository for tests.
package poststest

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
	mu    sync.Mutex
	byID  map[string]*models.Post
	order []string

	// Err, when set, is returned by every call.
	Err error
}

func New() *Repository {
	return &Repository{byID: map[string]*models.Post{}}
}

func clone(p *models.Post) *models.Post {
	c := *p
	c.LikeIDs = slices.Clone(p.LikeIDs)
	if c.LikeIDs == nil {
		c.LikeIDs = []string{}
	}
	return &c
}

func (m *Repository) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Err
}

// filter returns matching posts newest first, like the Postgres queries.
func (m *Repository) filter(pred func(*models.Post) bool) []*models.Post {
	var out []*models.Post
	for i := len(m.order) - 1; i >= 0; i-- {
		if p, ok := m.byID[m.order[i]]; ok && pred(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

func (m *Repository) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	p.LikeIDs = []string{}
	m.byID[p.ID] = clone(p)
	m.order = append(m.order, p.ID)
	return clone(p), nil
}

func (m *Repository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return clone(p), nil
	}
	return nil, common.ErrorNotFound
}

func (m *Repository) List(ctx context.Context) ([]*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(*models.Post) bool { return true }), nil
}

func (m *Repository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p *models.Post) bool { return p.UserID == userID }), nil
}

func (m *Repository) Search(ctx context.Context, pattern string) ([]*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(p *models.Post) bool { return dbxtest.ILike(pattern, p.Content) }), nil
}

func (m *Repository) UpdateContent(ctx context.Context, id, content string) (*models.Post, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p.Content = content
	p.UpdatedAt = time.Now()
	return clone(p), nil
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

func (m *Repository) ToggleLike(ctx context.Context, id, userID string) (models.Like, error) {
	if err := m.check(ctx); err != nil {
		return models.Like{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return models.Like{}, common.ErrorNotFound
	}
	if i := slices.Index(p.LikeIDs, userID); i >= 0 {
		p.LikeIDs = slices.Delete(p.LikeIDs, i, i+1)
		return models.Like{Liked: false, Likes: len(p.LikeIDs)}, nil
	}
	p.LikeIDs = append(p.LikeIDs, userID)
	return models.Like{Liked: true, Likes: len(p.LikeIDs)}, nil
}
