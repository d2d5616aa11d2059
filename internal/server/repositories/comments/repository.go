package comments

import (
	"context"

	"github.com/dmitrijs2005/socialnet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	List(ctx context.Context) ([]*models.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Comment, error)
	ListByParent(ctx context.Context, parentID string) ([]*models.Comment, error)
	// UpdateContent edits a comment that has not been deleted.
	UpdateContent(ctx context.Context, id, content string) (*models.Comment, error)
	// SoftDelete blanks the content and detaches the author but keeps the
	// comment so replies stay anchored.
	SoftDelete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, userID string) (models.Like, error)
	// Search matches the content of live comments against a LIKE pattern.
	Search(ctx context.Context, pattern string) ([]*models.Comment, error)
}
