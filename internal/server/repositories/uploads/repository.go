package uploads

import (
	"context"

	"github.com/dmitrijs2005/socialnet/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, upload *models.Upload) (*models.Upload, error)
	GetByID(ctx context.Context, id string) (*models.Upload, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Upload, error)
	MarkUploaded(ctx context.Context, id, ownerID string) error
}
