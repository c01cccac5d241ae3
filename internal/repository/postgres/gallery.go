package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
)

type GalleryStore struct {
	pool *pgxpool.Pool
}

func NewGalleryStore(pool *pgxpool.Pool) *GalleryStore {
	return &GalleryStore{pool: pool}
}

const galleryColumns = `id, tenant_id, title, access_mode,
	client_username, client_password_hash, max_selections, created_at`

func scanGallery(row pgx.Row) (*models.Gallery, error) {
	var g models.Gallery
	err := row.Scan(
		&g.ID,
		&g.TenantID,
		&g.Title,
		&g.AccessMode,
		&g.ClientUsername,
		&g.ClientPasswordHash,
		&g.MaxSelections,
		&g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (s *GalleryStore) Create(ctx context.Context, params repository.CreateGalleryParams) (*models.Gallery, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO galleries (id, tenant_id, title, access_mode,
			client_username, client_password_hash, max_selections, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
		RETURNING ` + galleryColumns

	g, err := scanGallery(s.pool.QueryRow(ctx, query,
		tenantID,
		params.Title,
		params.AccessMode,
		params.ClientUsername,
		params.ClientPasswordHash,
		params.MaxSelections,
	))
	if err != nil {
		return nil, fmt.Errorf("insert gallery: %w", err)
	}
	return g, nil
}

func (s *GalleryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Gallery, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	// Compound (id, tenant_id) lookup: another tenant's gallery id is
	// indistinguishable from a missing one.
	query := `SELECT ` + galleryColumns + ` FROM galleries WHERE id = $1 AND tenant_id = $2`

	g, err := scanGallery(s.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get gallery: %w", err)
	}
	return g, nil
}

func (s *GalleryStore) List(ctx context.Context) ([]models.Gallery, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + galleryColumns + `
		FROM galleries
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list galleries: %w", err)
	}
	defer rows.Close()

	galleries := make([]models.Gallery, 0)
	for rows.Next() {
		g, err := scanGallery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gallery: %w", err)
		}
		galleries = append(galleries, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate galleries: %w", err)
	}

	return galleries, nil
}

func (s *GalleryStore) Update(ctx context.Context, id uuid.UUID, params repository.UpdateGalleryParams) (*models.Gallery, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE galleries
		SET title = $1, access_mode = $2, client_username = $3,
			client_password_hash = $4, max_selections = $5
		WHERE id = $6 AND tenant_id = $7
		RETURNING ` + galleryColumns

	g, err := scanGallery(s.pool.QueryRow(ctx, query,
		params.Title,
		params.AccessMode,
		params.ClientUsername,
		params.ClientPasswordHash,
		params.MaxSelections,
		id,
		tenantID,
	))
	if err != nil {
		return nil, fmt.Errorf("update gallery: %w", err)
	}
	return g, nil
}

func (s *GalleryStore) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	// Best-effort: deleting zero rows (already gone, or another
	// tenant's id) is success, not an error.
	_, err = s.pool.Exec(ctx,
		`DELETE FROM galleries WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}
	return nil
}
