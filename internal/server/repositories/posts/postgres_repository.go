package posts

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

const postColumns = `id, user_id, content, like_ids, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	err := row.Scan(&p.ID, &p.UserID, &p.Content, pgtype.NewMap().SQLScanner(&p.LikeIDs), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.LikeIDs == nil {
		p.LikeIDs = []string{}
	}
	return p, nil
}

func wrapErr(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case dbx.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: author", common.ErrorNotFound)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (user_id, content)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Content).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	post.LikeIDs = []string{}
	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr(err)
	}
	return p, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var result []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id`)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	if uuid.Validate(userID) != nil {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

func (r *PostgresRepository) Search(ctx context.Context, pattern string) ([]*models.Post, error) {
	return r.query(ctx, `SELECT `+postColumns+` FROM posts WHERE content ILIKE $1 ESCAPE '\' ORDER BY created_at DESC, id`, pattern)
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id, content string) (*models.Post, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`UPDATE posts SET content = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + postColumns

	p, err := scanPost(r.db.QueryRowContext(ctx, query, id, content))
	if err != nil {
		return nil, wrapErr(err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
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
		`UPDATE posts SET like_ids = CASE
		     WHEN like_ids @> ARRAY[$2::text] THEN array_remove(like_ids, $2::text)
		     ELSE array_append(like_ids, $2::text)
		 END
		 WHERE id = $1
		 RETURNING like_ids @> ARRAY[$2::text], cardinality(like_ids)`

	var like models.Like
	if err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&like.Liked, &like.Likes); err != nil {
		return models.Like{}, wrapErr(err)
	}
	return like, nil
}
