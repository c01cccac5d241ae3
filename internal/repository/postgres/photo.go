package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
)

type PhotoStore struct {
	pool *pgxpool.Pool
}

func NewPhotoStore(pool *pgxpool.Pool) *PhotoStore {
	return &PhotoStore{pool: pool}
}

const photoColumns = `id, tenant_id, gallery_id, storage_key, original_filename,
	mime_type, bytes, width, height, caption, sort_order, created_at`

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.GalleryID,
		&p.StorageKey,
		&p.OriginalFilename,
		&p.MimeType,
		&p.Bytes,
		&p.Width,
		&p.Height,
		&p.Caption,
		&p.SortOrder,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *PhotoStore) Create(ctx context.Context, params repository.CreatePhotoParams) (*models.Photo, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO photos (id, tenant_id, gallery_id, storage_key,
			original_filename, mime_type, bytes, width, height,
			caption, sort_order, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, 0, 0, 0, $6, $7, now())
		RETURNING ` + photoColumns

	p, err := scanPhoto(s.pool.QueryRow(ctx, query,
		tenantID,
		params.GalleryID,
		params.StorageKey,
		params.OriginalFilename,
		params.MimeType,
		params.Caption,
		params.SortOrder,
	))
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	return p, nil
}

func (s *PhotoStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1 AND tenant_id = $2`

	p, err := scanPhoto(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

func (s *PhotoStore) GetInGallery(ctx context.Context, galleryID, photoID uuid.UUID) (*models.Photo, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	// tenant_id is checked even though gallery_id already pins the
	// tenant — the redundant predicate is the defense-in-depth the
	// column exists for.
	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE id = $1 AND gallery_id = $2 AND tenant_id = $3`

	p, err := scanPhoto(s.pool.QueryRow(ctx, query, photoID, galleryID, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get photo in gallery: %w", err)
	}
	return p, nil
}

func (s *PhotoStore) List(ctx context.Context, galleryID uuid.UUID) ([]models.Photo, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + photoColumns + `
		FROM photos
		WHERE gallery_id = $1 AND tenant_id = $2
		ORDER BY sort_order ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, galleryID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}

	return photos, nil
}

// Finalize records the real byte size and dimensions once the upload
// completes, and moves the tenant's storage counter by the delta in the
// same transaction. Concurrent uploads to the same tenant both land:
// the counter update is a read-modify-write inside the tx, so no
// increment is lost.
func (s *PhotoStore) Finalize(ctx context.Context, id uuid.UUID, bytes int64, width, height int32) (*models.Photo, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row first so the delta against the previous byte count
	// is computed against a stable value.
	var oldBytes int64
	err = tx.QueryRow(ctx,
		`SELECT bytes FROM photos WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		id, tenantID).Scan(&oldBytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("lock photo: %w", err)
	}

	query := `
		UPDATE photos
		SET bytes = $1, width = $2, height = $3
		WHERE id = $4 AND tenant_id = $5
		RETURNING ` + photoColumns

	p, err := scanPhoto(tx.QueryRow(ctx, query, bytes, width, height, id, tenantID))
	if err != nil {
		return nil, fmt.Errorf("finalize photo: %w", err)
	}
	if p == nil {
		return nil, apperr.ErrPhotoNotFound
	}

	counter := `
		UPDATE tenants
		SET storage_used = GREATEST(storage_used + $1 - $2, 0)
		WHERE id = $3`

	if _, err := tx.Exec(ctx, counter, bytes, oldBytes, tenantID); err != nil {
		return nil, fmt.Errorf("adjust storage counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit finalize tx: %w", err)
	}
	return p, nil
}

// Delete removes the photo and returns its bytes to the tenant's quota,
// clamped at zero. Best-effort: an already-deleted photo is success.
func (s *PhotoStore) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var freed int64
	err = tx.QueryRow(ctx,
		`DELETE FROM photos WHERE id = $1 AND tenant_id = $2 RETURNING bytes`,
		id, tenantID).Scan(&freed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already gone — intentional idempotence, not an omission.
			return nil
		}
		return fmt.Errorf("delete photo: %w", err)
	}

	counter := `
		UPDATE tenants
		SET storage_used = GREATEST(storage_used - $1, 0)
		WHERE id = $2`

	if _, err := tx.Exec(ctx, counter, freed, tenantID); err != nil {
		return fmt.Errorf("release storage counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}
