// Package uploadstest provides an in-memory uploads.Repository for tests.
package uploadstest

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/google/uuid"
)

type Repository struct {
	mu   sync.Mutex
	byID map[string]*models.Upload

	// Err, when set, is returned by Create.
	Err error
}

func New() *Repository {
	return &Repository{byID: map[string]*models.Upload{}}
}

func (m *Repository) Create(ctx context.Context, u *models.Upload) (*models.Upload, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	c := *u
	m.byID[u.ID] = &c
	return u, nil
}

func (m *Repository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (m *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Upload
	for _, u := range m.byID {
		if u.OwnerID == ownerID {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *Repository) MarkUploaded(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	u.Status = models.UploadStatusUploaded
	return nil
}
