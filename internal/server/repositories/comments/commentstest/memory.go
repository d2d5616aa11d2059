// Package commentstest provides an in-memory comments.Repository for tests.
// Cascades from deleted posts are not modelled.
package commentstest

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
	byID  map[string]*models.Comment
	order []string

	// Err, when set, is returned by every call.
	Err error
}

func New() *Repository {
	return &Repository{byID: map[string]*models.Comment{}}
}

func clone(c *models.Comment) *models.Comment {
	out := *c
	out.LikeIDs = slices.Clone(c.LikeIDs)
	if out.LikeIDs == nil {
		out.LikeIDs = []string{}
	}
	return &out
}

func (m *Repository) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Err
}

func (m *Repository) filter(pred func(*models.Comment) bool) []*models.Comment {
	var out []*models.Comment
	for _, id := range m.order {
		if c, ok := m.byID[id]; ok && pred(c) {
			out = append(out, clone(c))
		}
	}
	return out
}

func (m *Repository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.LikeIDs = []string{}
	m.byID[c.ID] = clone(c)
	m.order = append(m.order, c.ID)
	return clone(c), nil
}

func (m *Repository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		return clone(c), nil
	}
	return nil, common.ErrorNotFound
}

func (m *Repository) List(ctx context.Context) ([]*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(*models.Comment) bool { return true }), nil
}

func (m *Repository) ListByUser(ctx context.Context, userID string) ([]*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(c *models.Comment) bool { return c.UserID == userID }), nil
}

func (m *Repository) ListByParent(ctx context.Context, parentID string) ([]*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(c *models.Comment) bool { return c.ParentID == parentID }), nil
}

func (m *Repository) Search(ctx context.Context, pattern string) ([]*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(c *models.Comment) bool { return !c.Deleted && dbxtest.ILike(pattern, c.Content) }), nil
}

func (m *Repository) UpdateContent(ctx context.Context, id, content string) (*models.Comment, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Deleted {
		return nil, common.ErrorNotFound
	}
	c.Content = content
	c.UpdatedAt = time.Now()
	return clone(c), nil
}

func (m *Repository) SoftDelete(ctx context.Context, id string) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Deleted {
		return common.ErrorNotFound
	}
	c.Content = models.DeletedCommentContent
	c.UserID = ""
	c.Deleted = true
	c.UpdatedAt = time.Now()
	return nil
}

func (m *Repository) ToggleLike(ctx context.Context, id, userID string) (models.Like, error) {
	if err := m.check(ctx); err != nil {
		return models.Like{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Deleted {
		return models.Like{}, common.ErrorNotFound
	}
	if i := slices.Index(c.LikeIDs, userID); i >= 0 {
		c.LikeIDs = slices.Delete(c.LikeIDs, i, i+1)
		return models.Like{Liked: false, Likes: len(c.LikeIDs)}, nil
	}
	c.LikeIDs = append(c.LikeIDs, userID)
	return models.Like{Liked: true, Likes: len(c.LikeIDs)}, nil
}
