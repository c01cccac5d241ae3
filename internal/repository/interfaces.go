package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/calebds/proofstream/internal/models"
)

// The data gateway comes in two halves.
//
// Scoped interfaces (Tenants, Galleries, Photos, Selections, Domains)
// never take a tenant id: every implementation reads it from the ambient
// scope via scope.RequireTenantID(ctx) before any I/O, and binds it into
// every predicate. A caller cannot pass a tenant id to bypass isolation —
// there is no parameter to pass. An id belonging to another tenant
// behaves as not-found.
//
// The Directory interface is the deliberate exception: signup, host
// resolution, webhooks, and admin actions all run before (or outside) a
// tenant scope, so its methods take explicit keys. Nothing else does.

// CreateGalleryParams carries the writable gallery fields. Client
// credentials are only meaningful for PRIVATE galleries; the handler
// validates that before calling the store.
type CreateGalleryParams struct {
	Title              string
	AccessMode         string
	ClientUsername     string
	ClientPasswordHash string
	MaxSelections      *int32
}

type UpdateGalleryParams = CreateGalleryParams

// CreatePhotoParams creates the pending photo row at upload preparation
// time — before any bytes exist. Bytes and dimensions stay zero until
// Finalize.
type CreatePhotoParams struct {
	GalleryID        uuid.UUID
	StorageKey       string
	OriginalFilename string
	MimeType         string
	Caption          string
	SortOrder        int32
}

// UpsertDomainParams resets the tenant's single domain attempt.
type UpsertDomainParams struct {
	Hostname          string
	VerificationToken string
	TxtRecordName     string
	TxtRecordValue    string
}

// Tenants reads the scoped tenant's own record (quota fields included).
type Tenants interface {
	Get(ctx context.Context) (*models.Tenant, error)
}

// Galleries is the scoped gallery gateway.
type Galleries interface {
	Create(ctx context.Context, params CreateGalleryParams) (*models.Gallery, error)
	// GetByID returns nil, nil when no gallery matches (id, tenant).
	GetByID(ctx context.Context, id uuid.UUID) (*models.Gallery, error)
	List(ctx context.Context) ([]models.Gallery, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateGalleryParams) (*models.Gallery, error)
	// Delete is best-effort: deleting an absent gallery is success.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Photos is the scoped photo gateway. Finalize and Delete adjust the
// tenant's storage-used counter inside the same transaction as the photo
// row mutation.
type Photos interface {
	Create(ctx context.Context, params CreatePhotoParams) (*models.Photo, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	// GetInGallery returns nil, nil unless the photo belongs to both the
	// gallery and the scoped tenant.
	GetInGallery(ctx context.Context, galleryID, photoID uuid.UUID) (*models.Photo, error)
	List(ctx context.Context, galleryID uuid.UUID) ([]models.Photo, error)
	Finalize(ctx context.Context, id uuid.UUID, bytes int64, width, height int32) (*models.Photo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Selections is the scoped proof-selection gateway.
type Selections interface {
	// GetWithItems returns nil, nil when the client has no selection yet.
	GetWithItems(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error)
	// CreateOrGetDraft is atomic under concurrent first-touch: two
	// simultaneous calls yield the same single row. It returns the
	// existing selection regardless of status; the engine decides
	// whether SUBMITTED is an error for the operation at hand.
	CreateOrGetDraft(ctx context.Context, galleryID uuid.UUID, clientUsername string) (*models.ProofSelection, error)
	// AddItem inserts unless an item for the photo already exists.
	AddItem(ctx context.Context, selectionID, photoID uuid.UUID) error
	// RemoveItem deletes any matching item; absent items are a no-op.
	RemoveItem(ctx context.Context, selectionID, photoID uuid.UUID) error
	// Submit flips DRAFT to SUBMITTED and stamps the time. Returns false
	// when no DRAFT row was updated — a concurrent submit got there
	// first, or the selection is gone.
	Submit(ctx context.Context, selectionID uuid.UUID) (bool, error)
}

// Domains is the scoped custom-domain gateway (one row per tenant).
type Domains interface {
	Get(ctx context.Context) (*models.TenantDomain, error)
	// Upsert creates or resets the tenant's domain attempt back to
	// PENDING_VERIFICATION, clearing all progress timestamps.
	Upsert(ctx context.Context, params UpsertDomainParams) (*models.TenantDomain, error)
	// MarkVerified flips the row for the given hostname to VERIFIED.
	MarkVerified(ctx context.Context, hostname string) (*models.TenantDomain, error)
	SetActive(ctx context.Context) (*models.TenantDomain, error)
	Disable(ctx context.Context) (*models.TenantDomain, error)
}

// Directory is the unscoped surface: resolution, signup, login, admin
// mutations, and billing webhooks. Every method takes explicit keys.
type Directory interface {
	SystemGetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	SystemGetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	SystemGetDomainByHostname(ctx context.Context, hostname string) (*models.TenantDomain, error)
	SystemGetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateSignup creates the tenant and its owner user in one
	// transaction. Fails with apperr.ErrSlugTaken / apperr.ErrEmailTaken.
	CreateSignup(ctx context.Context, tenantName, slug, email, passwordHash string) (*models.Tenant, *models.User, error)

	SystemUpdateTenantStatus(ctx context.Context, id uuid.UUID, status string) error
	SystemUpdateBillingStatus(ctx context.Context, id uuid.UUID, billingStatus string) error
	SystemUpdateSlug(ctx context.Context, id uuid.UUID, slug string) error

	// Billing webhook support: locate a tenant by payment account and
	// record completed onboarding.
	SystemGetTenantByPaymentAccount(ctx context.Context, accountID string) (*models.Tenant, error)
	SystemSetPaymentAccount(ctx context.Context, id uuid.UUID, accountID string) error
	SystemMarkOnboardingComplete(ctx context.Context, id uuid.UUID) error
}
