package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/scope"
)

type SelectionStore struct {
	pool *pgxpool.Pool
}

func NewSelectionStore(pool *pgxpool.Pool) *SelectionStore {
	return &SelectionStore{pool: pool}
}

const selectionColumns = `id, tenant_id, gallery_id, client_username,
	status, submitted_at, created_at`

// querier lets the read helpers run against the pool or an open tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *SelectionStore) GetWithItems(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return getSelection(ctx, s.pool, tenantID, galleryID, clientUsername)
}

func getSelection(ctx context.Context, q querier, tenantID, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error) {
	query := `
		SELECT ` + selectionColumns + `
		FROM proof_selections
		WHERE tenant_id = $1 AND gallery_id = $2 AND client_username = $3`

	var sel models.ProofSelection
	err := q.QueryRow(ctx, query, tenantID, galleryID, clientUsername).Scan(
		&sel.ID,
		&sel.TenantID,
		&sel.GalleryID,
		&sel.ClientUsername,
		&sel.Status,
		&sel.SubmittedAt,
		&sel.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get selection: %w", err)
	}

	items, err := listItems(ctx, q, tenantID, sel.ID)
	if err != nil {
		return nil, err
	}
	sel.Items = items
	return &sel, nil
}

func listItems(ctx context.Context, q querier, tenantID, selectionID uuid.UUID) ([]models.ProofSelectionItem, error) {
	query := `
		SELECT id, tenant_id, selection_id, photo_id, note, created_at
		FROM proof_selection_items
		WHERE tenant_id = $1 AND selection_id = $2
		ORDER BY created_at ASC`

	rows, err := q.Query(ctx, query, tenantID, selectionID)
	if err != nil {
		return nil, fmt.Errorf("list selection items: %w", err)
	}
	defer rows.Close()

	items := make([]models.ProofSelectionItem, 0)
	for rows.Next() {
		var it models.ProofSelectionItem
		if err := rows.Scan(
			&it.ID,
			&it.TenantID,
			&it.SelectionID,
			&it.PhotoID,
			&it.Note,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan selection item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selection items: %w", err)
	}

	return items, nil
}

// CreateOrGetDraft is the first-touch path. The insert carries
// ON CONFLICT DO NOTHING on the (tenant, gallery, client) unique key, so
// two concurrent first requests race harmlessly: one inserts, both read
// back the same single row inside their transactions.
func (s *SelectionStore) CreateOrGetDraft(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin draft tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO proof_selections (id, tenant_id, gallery_id, client_username, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		ON CONFLICT (tenant_id, gallery_id, client_username) DO NOTHING`

	if _, err := tx.Exec(ctx, insert, tenantID, galleryID, clientUsername, models.SelectionDraft); err != nil {
		return nil, fmt.Errorf("insert draft selection: %w", err)
	}

	sel, err := getSelection(ctx, tx, tenantID, galleryID, clientUsername)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, fmt.Errorf("draft selection vanished after insert")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit draft tx: %w", err)
	}
	return sel, nil
}

func (s *SelectionStore) AddItem(ctx context.Context, selectionID, photoID uuid.UUID) error {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	// Idempotent on the (selection_id, photo_id) unique pair: adding an
	// already-selected photo is a no-op, not an error.
	query := `
		INSERT INTO proof_selection_items (id, tenant_id, selection_id, photo_id, note, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, '', now())
		ON CONFLICT (selection_id, photo_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, tenantID, selectionID, photoID); err != nil {
		return fmt.Errorf("add selection item: %w", err)
	}
	return nil
}

func (s *SelectionStore) RemoveItem(ctx context.Context, selectionID, photoID uuid.UUID) error {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	// DELETE of zero rows is the no-op the contract asks for.
	query := `
		DELETE FROM proof_selection_items
		WHERE tenant_id = $1 AND selection_id = $2 AND photo_id = $3`

	if _, err := s.pool.Exec(ctx, query, tenantID, selectionID, photoID); err != nil {
		return fmt.Errorf("remove selection item: %w", err)
	}
	return nil
}

// Submit is the optimistic transition: only a row still in DRAFT is
// updated. A false return means a concurrent submit consumed the row
// first (or it never existed) — the caller decides what that means.
func (s *SelectionStore) Submit(ctx context.Context, selectionID uuid.UUID) (bool, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE proof_selections
		SET status = $1, submitted_at = now()
		WHERE id = $2 AND tenant_id = $3 AND status = $4`

	tag, err := s.pool.Exec(ctx, query, models.SelectionSubmitted, selectionID, tenantID, models.SelectionDraft)
	if err != nil {
		return false, fmt.Errorf("submit selection: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
