package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/dbx"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const commentColumns = `id, post_id, parent_id, user_id, content, deleted, like_ids, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	c := &models.Comment{}
	var userID sql.NullString
	err := row.Scan(&c.ID, &c.PostID, &c.ParentID, &userID, &c.Content, &c.Deleted,
		pgtype.NewMap().SQLScanner(&c.LikeIDs), &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.UserID = userID.String
	if c.LikeIDs == nil {
		c.LikeIDs = []string{}
	}
	return c, nil
}

func wrapErr(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case dbx.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: post or author", common.ErrorNotFound)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func (r *PostgresRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	query :=
		`INSERT INTO comments (post_id, parent_id, user_id, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, comment.PostID, comment.ParentID, comment.UserID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	comment.LikeIDs = []string{}
	return comment, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err)
	}
	return c, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var result []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Comment, error) {
	return r.query(ctx, `SELECT `+commentColumns+` FROM comments ORDER BY created_at, id`)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Comment, error) {
	if uuid.Validate(userID) != nil {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+commentColumns+` FROM comments WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func (r *PostgresRepository) ListByParent(ctx context.Context, parentID string) ([]*models.Comment, error) {
	if uuid.Validate(parentID) != nil {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+commentColumns+` FROM comments WHERE parent_id = $1 ORDER BY created_at, id`, parentID)
}

func (r *PostgresRepository) Search(ctx context.Context, pattern string) ([]*models.Comment, error) {
	return r.query(ctx, `SELECT `+commentColumns+` FROM comments WHERE NOT deleted AND content ILIKE $1 ESCAPE '\' ORDER BY created_at, id`, pattern)
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id, content string) (*models.Comment, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`UPDATE comments SET content = $2, updated_at = now()
		 WHERE id = $1 AND NOT deleted
		 RETURNING ` + commentColumns

	c, err := scanComment(r.db.QueryRowContext(ctx, query, id, content))
	if err != nil {
		return nil, wrapErr(err)
	}
	return c, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}

	query :=
		`UPDATE comments SET content = $2, user_id = NULL, deleted = true, updated_at = now()
		 WHERE id = $1 AND NOT deleted`

	res, err := r.db.ExecContext(ctx, query, id, models.DeletedCommentContent)
	if err != nil {
		return wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ToggleLike(ctx context.Context, id, userID string) (models.Like, error) {
	if uuid.Validate(id) != nil {
		return models.Like{}, common.ErrorNotFound
	}

	query :=
		`UPDATE comments SET like_ids = CASE
		     WHEN like_ids @> ARRAY[$2::text] THEN array_remove(like_ids, $2::text)
		     ELSE array_append(like_ids, $2::text)
		 END
		 WHERE id = $1 AND NOT deleted
		 RETURNING like_ids @> ARRAY[$2::text], cardinality(like_ids)`

	var like models.Like
	if err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&like.Liked, &like.Likes); err != nil {
		return models.Like{}, wrapErr(err)
	}
	return like, nil
}
