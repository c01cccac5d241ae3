package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
)

// TenantDomainStore persists the scoped tenant's single custom-domain
// record. Transition legality is the lifecycle's job (internal/domainconn);
// this store only writes what it is told.
type TenantDomainStore struct {
	pool *pgxpool.Pool
}

func NewTenantDomainStore(pool *pgxpool.Pool) *TenantDomainStore {
	return &TenantDomainStore{pool: pool}
}

const domainColumns = `id, tenant_id, hostname, status, verification_token,
	txt_record_name, txt_record_value, verified_at, activated_at, disabled_at, created_at`

func scanDomain(row pgx.Row) (*models.TenantDomain, error) {
	var d models.TenantDomain
	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Hostname,
		&d.Status,
		&d.VerificationToken,
		&d.TxtRecordName,
		&d.TxtRecordValue,
		&d.VerifiedAt,
		&d.ActivatedAt,
		&d.DisabledAt,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (s *TenantDomainStore) Get(ctx context.Context) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + domainColumns + ` FROM tenant_domains WHERE tenant_id = $1`

	d, err := scanDomain(s.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get tenant domain: %w", err)
	}
	return d, nil
}

// Upsert resets the tenant's one in-flight domain attempt. Starting a
// new connection always discards the old one's progress: status back to
// PENDING_VERIFICATION, fresh challenge, all timestamps cleared.
func (s *TenantDomainStore) Upsert(ctx context.Context, params repository.UpsertDomainParams) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tenant_domains (id, tenant_id, hostname, status,
			verification_token, txt_record_name, txt_record_value, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			hostname = EXCLUDED.hostname,
			status = EXCLUDED.status,
			verification_token = EXCLUDED.verification_token,
			txt_record_name = EXCLUDED.txt_record_name,
			txt_record_value = EXCLUDED.txt_record_value,
			verified_at = NULL,
			activated_at = NULL,
			disabled_at = NULL
		RETURNING ` + domainColumns

	d, err := scanDomain(s.pool.QueryRow(ctx, query,
		tenantID,
		params.Hostname,
		models.DomainPendingVerification,
		params.VerificationToken,
		params.TxtRecordName,
		params.TxtRecordValue,
	))
	if err != nil {
		if isUniqueViolation(err) {
			// The hostname unique index fired: another tenant already
			// holds this hostname.
			return nil, apperr.ErrDomainTaken
		}
		return nil, fmt.Errorf("upsert tenant domain: %w", err)
	}
	return d, nil
}

func (s *TenantDomainStore) MarkVerified(ctx context.Context, hostname string) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	// Hostname is part of the predicate so a verification result for a
	// superseded attempt cannot verify the replacement.
	query := `
		UPDATE tenant_domains
		SET status = $1, verified_at = now(), disabled_at = NULL
		WHERE tenant_id = $2 AND hostname = $3
		RETURNING ` + domainColumns

	d, err := scanDomain(s.pool.QueryRow(ctx, query, models.DomainVerified, tenantID, hostname))
	if err != nil {
		return nil, fmt.Errorf("mark domain verified: %w", err)
	}
	if d == nil {
		return nil, apperr.ErrDomainNotFound
	}
	return d, nil
}

func (s *TenantDomainStore) SetActive(ctx context.Context) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tenant_domains
		SET status = $1, activated_at = now()
		WHERE tenant_id = $2
		RETURNING ` + domainColumns

	d, err := scanDomain(s.pool.QueryRow(ctx, query, models.DomainActive, tenantID))
	if err != nil {
		return nil, fmt.Errorf("activate domain: %w", err)
	}
	if d == nil {
		return nil, apperr.ErrDomainNotFound
	}
	return d, nil
}

func (s *TenantDomainStore) Disable(ctx context.Context) (*models.TenantDomain, error) {
	tenantID, err := scope.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tenant_domains
		SET status = $1, disabled_at = now()
		WHERE tenant_id = $2
		RETURNING ` + domainColumns

	d, err := scanDomain(s.pool.QueryRow(ctx, query, models.DomainDisabled, tenantID))
	if err != nil {
		return nil, fmt.Errorf("disable domain: %w", err)
	}
	if d == nil {
		return nil, apperr.ErrDomainNotFound
	}
	return d, nil
}
