package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/scope"
)

// TenantStore reads the scoped tenant's own record. Like every scoped
// store it refuses to run without an ambient tenant scope.
type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

const tenantColumns = `id, name, slug, status, billing_status,
	storage_used, storage_limit, enforce_quota,
	payment_account_id, onboarding_complete, created_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Status,
		&t.BillingStatus,
		&t.StorageUsed,
		&t.StorageLimit,
		&t.EnforceQuota,
		&t.PaymentAccountID,
		&t.OnboardingComplete,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *TenantStore) Get(ctx context.Context) (*models.Tenant, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	t, err := scanTenant(s.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}
