package posts

import (
	"context"

	"github.com/dmitrijs2005/socialnet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	UpdateContent(ctx context.Context, id, content string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	// ToggleLike adds userID to the like set of the post, or removes it when
	// already present, in one statement.
	ToggleLike(ctx context.Context, id, userID string) (models.Like, error)
	// Search matches content case-insensitively against a LIKE pattern.
	Search(ctx context.Context, pattern string) ([]*models.Post, error)
}
