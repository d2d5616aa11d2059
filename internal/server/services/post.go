package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// PostService manages posts. Mutations act on behalf of actorID and only
// the author may edit or delete a post.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "posts"),
	}
}

func requireContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", &FieldsError{Err: common.ErrInvalidRequest, Fields: map[string]string{"content": "missing"}}
	}
	return content, nil
}

func (s *PostService) Create(ctx context.Context, actorID, content string) (*models.Post, error) {
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}

	post, err := s.repomanager.Posts(s.db).Create(ctx, &models.Post{UserID: actorID, Content: content})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.log.Info(ctx, "post created", "post_id", post.ID, "user_id", actorID)
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrInvalidRequest
	}
	return s.repomanager.Posts(s.db).GetByID(ctx, id)
}

func (s *PostService) List(ctx context.Context) ([]*models.Post, error) {
	list, err := s.repomanager.Posts(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return list, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	if uuid.Validate(userID) != nil {
		return nil, common.ErrInvalidRequest
	}
	list, err := s.repomanager.Posts(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return list, nil
}

// owned loads post id and checks that actorID wrote it.
func (s *PostService) owned(ctx context.Context, actorID, id string) (*models.Post, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrInvalidRequest
	}
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, common.ErrForbidden
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, actorID, id, content string) (*models.Post, error) {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return nil, err
	}
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Posts(s.db).UpdateContent(ctx, id, content)
}

// Delete removes the post and, through the schema, its comments. Deleting a
// post that does not exist succeeds.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	_, err := s.owned(ctx, actorID, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.repomanager.Posts(s.db).Delete(ctx, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("delete post: %w", err)
	}

	s.log.Info(ctx, "post deleted", "post_id", id, "user_id", actorID)
	return nil
}

func (s *PostService) ToggleLike(ctx context.Context, actorID, id string) (models.Like, error) {
	if uuid.Validate(id) != nil {
		return models.Like{}, common.ErrInvalidRequest
	}
	return s.repomanager.Posts(s.db).ToggleLike(ctx, id, actorID)
}
