package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
)

// DirectoryStore is the one unscoped store: host resolution, signup,
// login, admin mutations, and billing webhooks all run before or outside
// a tenant scope, so every method here takes explicit keys. All other
// stores read the ambient scope instead.
type DirectoryStore struct {
	pool *pgxpool.Pool
}

func NewDirectoryStore(pool *pgxpool.Pool) *DirectoryStore {
	return &DirectoryStore{pool: pool}
}

func (s *DirectoryStore) SystemGetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	t, err := scanTenant(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return t, nil
}

func (s *DirectoryStore) SystemGetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`

	t, err := scanTenant(s.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, fmt.Errorf("get tenant by slug: %w", err)
	}
	return t, nil
}

func (s *DirectoryStore) SystemGetDomainByHostname(ctx context.Context, hostname string) (*models.TenantDomain, error) {
	query := `SELECT ` + domainColumns + ` FROM tenant_domains WHERE hostname = $1`

	d, err := scanDomain(s.pool.QueryRow(ctx, query, hostname))
	if err != nil {
		return nil, fmt.Errorf("get domain by hostname: %w", err)
	}
	return d, nil
}

func (s *DirectoryStore) SystemGetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, tenant_id, email, password_hash, role, status, created_at
		FROM users
		WHERE email = $1`

	var u models.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// CreateSignup creates the tenant and its owner user in one transaction,
// so a duplicate email can never leave an orphaned tenant behind. The
// tenant starts ACTIVE with billing PENDING — onboarding flips billing
// to ACTIVE later via the webhook.
func (s *DirectoryStore) CreateSignup(ctx context.Context, tenantName, slug, email, passwordHash string) (*models.Tenant, *models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin signup tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tenantQuery := `
		INSERT INTO tenants (id, name, slug, status, billing_status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		RETURNING ` + tenantColumns

	t, err := scanTenant(tx.QueryRow(ctx, tenantQuery, tenantName, slug, models.TenantActive, models.BillingPending))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.ErrSlugTaken
		}
		return nil, nil, fmt.Errorf("insert tenant: %w", err)
	}

	userQuery := `
		INSERT INTO users (id, tenant_id, email, password_hash, role, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, 'ACTIVE', now())
		RETURNING id, tenant_id, email, password_hash, role, status, created_at`

	var u models.User
	err = tx.QueryRow(ctx, userQuery, t.ID, email, passwordHash, models.RoleTenant).Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit signup tx: %w", err)
	}
	return t, &u, nil
}

func (s *DirectoryStore) SystemUpdateTenantStatus(ctx context.Context, id uuid.UUID, status string) error {
	return s.updateTenantField(ctx, id, "status", status)
}

func (s *DirectoryStore) SystemUpdateBillingStatus(ctx context.Context, id uuid.UUID, billingStatus string) error {
	return s.updateTenantField(ctx, id, "billing_status", billingStatus)
}

func (s *DirectoryStore) SystemUpdateSlug(ctx context.Context, id uuid.UUID, slug string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET slug = $1 WHERE id = $2`, slug, id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrSlugTaken
		}
		return fmt.Errorf("update slug: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrTenantNotFound
	}
	return nil
}

func (s *DirectoryStore) SystemGetTenantByPaymentAccount(ctx context.Context, accountID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE payment_account_id = $1`

	t, err := scanTenant(s.pool.QueryRow(ctx, query, accountID))
	if err != nil {
		return nil, fmt.Errorf("get tenant by payment account: %w", err)
	}
	return t, nil
}

func (s *DirectoryStore) SystemSetPaymentAccount(ctx context.Context, id uuid.UUID, accountID string) error {
	return s.updateTenantField(ctx, id, "payment_account_id", accountID)
}

func (s *DirectoryStore) SystemMarkOnboardingComplete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tenants
		SET onboarding_complete = TRUE, billing_status = $1
		WHERE id = $2`

	tag, err := s.pool.Exec(ctx, query, models.BillingActive, id)
	if err != nil {
		return fmt.Errorf("mark onboarding complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrTenantNotFound
	}
	return nil
}

func (s *DirectoryStore) updateTenantField(ctx context.Context, id uuid.UUID, column, value string) error {
	// column is always a compile-time constant from the callers above,
	// never user input.
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET `+column+` = $1 WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrTenantNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
