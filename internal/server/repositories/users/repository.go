package users

import (
	"context"

	"github.com/dmitrijs2005/socialnet/internal/server/models"
)

// Repository is the credential store. Every method that changes the
// refresh-token set does so in a single conditional statement and reports
// whether the condition held.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// Search matches username, display name, bio and location
	// case-insensitively against a LIKE pattern.
	Search(ctx context.Context, pattern string) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Taken(ctx context.Context, username, email, excludeID string) (usernameTaken, emailTaken bool, err error)

	// FindByRefreshToken returns the user whose set contains token exactly.
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	// ReplaceRefreshTokens stores next only if the set still equals expected.
	ReplaceRefreshTokens(ctx context.Context, userID string, expected, next []string) (bool, error)
	// RotateRefreshToken swaps oldToken for newToken only if oldToken is still present.
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error)
	// RemoveRefreshToken drops token only if it is present.
	RemoveRefreshToken(ctx context.Context, userID, token string) (bool, error)
	// ClearRefreshTokens empties the set. A missing user is not an error.
	ClearRefreshTokens(ctx context.Context, userID string) error
}
