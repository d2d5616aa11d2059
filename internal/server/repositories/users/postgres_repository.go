package users

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

const userColumns = `id, username, email, password_hash, refresh_tokens, display_name, bio, location, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads a row selected with userColumns. text[] goes through a
// pgtype scanner since database/sql has no notion of arrays.
func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		pgtype.NewMap().SQLScanner(&u.RefreshTokens),
		&u.DisplayName, &u.Bio, &u.Location, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if u.RefreshTokens == nil {
		u.RefreshTokens = []string{}
	}
	return u, nil
}

func wrapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if name := dbx.ConstraintName(err); name != "" {
		return fmt.Errorf("%w: %s", common.ErrConflict, name)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, wrapErr(err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password_hash, display_name, bio, location)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.DisplayName, user.Bio, user.Location).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	user.RefreshTokens = []string{}
	return user, nil
}

// GetByID treats an id that is not a UUID as unknown rather than letting
// Postgres reject the cast.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `username = $1`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, `refresh_tokens @> ARRAY[$1::text] LIMIT 1`, token)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return result, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}

// Search matches the public profile columns against a LIKE pattern.
func (r *PostgresRepository) Search(ctx context.Context, pattern string) ([]*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE username ILIKE $1 ESCAPE '\' OR display_name ILIKE $1 ESCAPE '\'
		    OR bio ILIKE $1 ESCAPE '\' OR location ILIKE $1 ESCAPE '\'
		 ORDER BY created_at, id`

	return r.query(ctx, query, pattern)
}

// Update writes the profile and credential columns. The refresh-token set is
// left alone; it only changes through the conditional methods below.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users
		 SET username = $2, email = $3, password_hash = $4, display_name = $5, bio = $6, location = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.DisplayName, user.Bio, user.Location).
		Scan(&user.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}
	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
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

func (r *PostgresRepository) Taken(ctx context.Context, username, email, excludeID string) (bool, bool, error) {
	query :=
		`SELECT COALESCE(bool_or(username = $1), false), COALESCE(bool_or(email = $2), false)
		 FROM users
		 WHERE (username = $1 OR email = $2) AND id::text <> $3`

	var usernameTaken, emailTaken bool
	if err := r.db.QueryRowContext(ctx, query, username, email, excludeID).Scan(&usernameTaken, &emailTaken); err != nil {
		return false, false, wrapErr(err)
	}
	return usernameTaken, emailTaken, nil
}

func (r *PostgresRepository) execConditional(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ReplaceRefreshTokens(ctx context.Context, userID string, expected, next []string) (bool, error) {
	query :=
		`UPDATE users SET refresh_tokens = $2::text[]
		 WHERE id = $1 AND refresh_tokens = $3::text[]`

	return r.execConditional(ctx, query, userID, nonNil(next), nonNil(expected))
}

func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error) {
	query :=
		`UPDATE users SET refresh_tokens = array_append(array_remove(refresh_tokens, $2::text), $3::text)
		 WHERE id = $1 AND refresh_tokens @> ARRAY[$2::text]`

	return r.execConditional(ctx, query, userID, oldToken, newToken)
}

func (r *PostgresRepository) RemoveRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	query :=
		`UPDATE users SET refresh_tokens = array_remove(refresh_tokens, $2::text)
		 WHERE id = $1 AND refresh_tokens @> ARRAY[$2::text]`

	return r.execConditional(ctx, query, userID, token)
}

func (r *PostgresRepository) ClearRefreshTokens(ctx context.Context, userID string) error {
	if uuid.Validate(userID) != nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_tokens = '{}' WHERE id = $1`, userID)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

// nonNil keeps a nil slice from being sent as SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
