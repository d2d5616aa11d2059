package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/dbx"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/google/uuid"
)

const uploadColumns = `id, owner_id, original_name, kind, size, content_type, storage_key, status, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUpload(row interface{ Scan(...any) error }) (*models.Upload, error) {
	u := &models.Upload{}
	err := row.Scan(&u.ID, &u.OwnerID, &u.OriginalName, &u.Kind, &u.Size, &u.ContentType, &u.StorageKey, &u.Status, &u.CreatedAt)
	return u, err
}

func (r *PostgresRepository) Create(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	query :=
		`INSERT INTO uploads (owner_id, original_name, kind, size, content_type, storage_key, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`

	if upload.Status == "" {
		upload.Status = models.UploadStatusPending
	}

	err := r.db.QueryRowContext(ctx, query,
		upload.OwnerID, upload.OriginalName, upload.Kind, upload.Size, upload.ContentType, upload.StorageKey, upload.Status).
		Scan(&upload.ID, &upload.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: storage key", common.ErrConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return upload, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// MarkUploaded flips a pending upload owned by ownerID to uploaded.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id, ownerID string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}

	query := `UPDATE uploads SET status = 'uploaded' WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}

	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
