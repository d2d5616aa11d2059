package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type CommentRequest struct {
	ParentID string
	Content  string
}

// CommentService manages comment threads. A comment's parent is a post or
// another comment; either way it belongs to the post at the thread root.
type CommentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewCommentService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *CommentService {
	return &CommentService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "comments"),
	}
}

// rootPost resolves the post a new comment under parentID belongs to.
func (s *CommentService) rootPost(ctx context.Context, parentID string) (string, error) {
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, parentID)
	if err == nil {
		return post.ID, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	parent, err := s.repomanager.Comments(s.db).GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", fmt.Errorf("%w: parent", common.ErrorNotFound)
		}
		return "", err
	}
	return parent.PostID, nil
}

func (s *CommentService) Create(ctx context.Context, actorID string, req CommentRequest) (*models.Comment, error) {
	fields := map[string]string{}
	content, err := requireContent(req.Content)
	if err != nil {
		fields["content"] = "missing"
	}
	switch {
	case req.ParentID == "":
		fields["parentID"] = "missing"
	case uuid.Validate(req.ParentID) != nil:
		fields["parentID"] = "invalid"
	}
	if err := fieldsOrNil(common.ErrInvalidRequest, fields); err != nil {
		return nil, err
	}

	postID, err := s.rootPost(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}

	comment, err := s.repomanager.Comments(s.db).Create(ctx, &models.Comment{
		PostID:   postID,
		ParentID: req.ParentID,
		UserID:   actorID,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.log.Info(ctx, "comment created", "comment_id", comment.ID, "post_id", postID, "user_id", actorID)
	return comment, nil
}

func (s *CommentService) Get(ctx context.Context, id string) (*models.Comment, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrInvalidRequest
	}
	return s.repomanager.Comments(s.db).GetByID(ctx, id)
}

func (s *CommentService) List(ctx context.Context) ([]*models.Comment, error) {
	list, err := s.repomanager.Comments(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return list, nil
}

func (s *CommentService) ListByUser(ctx context.Context, userID string) ([]*models.Comment, error) {
	if uuid.Validate(userID) != nil {
		return nil, common.ErrInvalidRequest
	}
	list, err := s.repomanager.Comments(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return list, nil
}

func (s *CommentService) ListByParent(ctx context.Context, parentID string) ([]*models.Comment, error) {
	if uuid.Validate(parentID) != nil {
		return nil, common.ErrInvalidRequest
	}
	list, err := s.repomanager.Comments(s.db).ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return list, nil
}

// owned loads comment id and checks that actorID wrote it. A deleted
// comment has no author, so nobody owns it.
func (s *CommentService) owned(ctx context.Context, actorID, id string) (*models.Comment, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrInvalidRequest
	}
	c, err := s.repomanager.Comments(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID == "" || c.UserID != actorID {
		return c, common.ErrForbidden
	}
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, actorID, id, content string) (*models.Comment, error) {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return nil, err
	}
	content, err := requireContent(content)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Comments(s.db).UpdateContent(ctx, id, content)
}

// Delete soft-deletes the comment so replies keep their parent. Deleting a
// missing or already deleted comment succeeds.
func (s *CommentService) Delete(ctx context.Context, actorID, id string) error {
	c, err := s.owned(ctx, actorID, id)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case errors.Is(err, common.ErrForbidden) && c.Deleted:
		return nil
	case err != nil:
		return err
	}

	if err := s.repomanager.Comments(s.db).SoftDelete(ctx, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.log.Info(ctx, "comment deleted", "comment_id", id, "user_id", actorID)
	return nil
}

func (s *CommentService) ToggleLike(ctx context.Context, actorID, id string) (models.Like, error) {
	if uuid.Validate(id) != nil {
		return models.Like{}, common.ErrInvalidRequest
	}
	return s.repomanager.Comments(s.db).ToggleLike(ctx, id, actorID)
}
