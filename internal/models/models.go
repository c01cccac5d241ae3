package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant status values. DELETED is a status, never a row deletion —
// galleries and photos stay addressable for support and billing history.
const (
	TenantActive    = "ACTIVE"
	TenantSuspended = "SUSPENDED"
	TenantDeleted   = "DELETED"
)

// Billing status values, driven by payment-provider webhook events.
const (
	BillingPending  = "PENDING"
	BillingActive   = "ACTIVE"
	BillingPastDue  = "PAST_DUE"
	BillingCanceled = "CANCELED"
)

// Tenant is the top-level isolation boundary: one photography business.
// Every gallery, photo, and selection belongs to exactly one tenant, and
// every query is scoped by tenant_id — studio A never sees studio B's
// clients or photos.
type Tenant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	// Slug is globally unique and doubles as the subdomain label
	// (slug "mira" serves mira.proofstream.app).
	Slug          string `json:"slug"`
	Status        string `json:"status"`
	BillingStatus string `json:"billing_status"`

	// Storage accounting in bytes. StorageUsed is maintained inside the
	// same transaction as the photo mutation that changes it, and is
	// clamped at zero on decrement. EnforceQuota gates the pre-check on
	// upload preparation.
	StorageUsed  int64 `json:"storage_used"`
	StorageLimit int64 `json:"storage_limit"`
	EnforceQuota bool  `json:"enforce_quota"`

	// External payment-account reference and onboarding flag, set by the
	// billing webhook. Empty until onboarding starts.
	PaymentAccountID   string `json:"payment_account_id"`
	OnboardingComplete bool   `json:"onboarding_complete"`

	CreatedAt time.Time `json:"created_at"`
}

// TenantDomain lifecycle states. Only ACTIVE domains participate in
// host-based tenant resolution; everything else falls through to the
// default subdomain path.
const (
	DomainPendingVerification = "PENDING_VERIFICATION"
	DomainVerified            = "VERIFIED"
	DomainActive              = "ACTIVE"
	DomainDisabled            = "DISABLED"
)

// TenantDomain is the one custom hostname a tenant may have in flight.
// Starting a new connection attempt replaces any prior one, resetting
// progress back to PENDING_VERIFICATION.
type TenantDomain struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Hostname string    `json:"hostname"`
	Status   string    `json:"status"`

	// DNS TXT challenge the tenant has to publish before the
	// verification job will flip the record to VERIFIED.
	VerificationToken string `json:"verification_token"`
	TxtRecordName     string `json:"txt_record_name"`
	TxtRecordValue    string `json:"txt_record_value"`

	VerifiedAt  *time.Time `json:"verified_at"`
	ActivatedAt *time.Time `json:"activated_at"`
	DisabledAt  *time.Time `json:"disabled_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// User roles. Master admins operate the platform itself and live in the
// same table — the original system kept them together, and the role
// claim in the session token is what separates the surfaces.
const (
	RoleTenant      = "TENANT"
	RoleMasterAdmin = "MASTER_ADMIN"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Gallery access modes. PRIVATE galleries carry a client username and
// password hash and are the only ones proof selections exist for.
const (
	AccessPublic  = "PUBLIC"
	AccessPrivate = "PRIVATE"
)

type Gallery struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Title      string    `json:"title"`
	AccessMode string    `json:"access_mode"`

	// Client credentials for PRIVATE galleries. The hash never leaves
	// the server.
	ClientUsername     string `json:"client_username,omitempty"`
	ClientPasswordHash string `json:"-"`

	// MaxSelections caps how many photos the client may submit; nil
	// means unlimited. A selection of exactly MaxSelections items is
	// still submittable — the limit check is strictly greater-than.
	MaxSelections *int32 `json:"max_selections"`

	CreatedAt time.Time `json:"created_at"`
}

// Photo carries tenant_id redundantly with gallery_id. The gallery
// already pins the tenant, but keeping it on the row lets every photo
// query filter by tenant directly — defense in depth against a scoping
// bug one table up.
type Photo struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	GalleryID uuid.UUID `json:"gallery_id"`

	StorageKey       string `json:"storage_key"`
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type"`

	// Bytes and dimensions are zero until the upload is finalized; the
	// row is created when the upload URL is issued, before bytes exist.
	Bytes  int64 `json:"bytes"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`

	Caption   string    `json:"caption"`
	SortOrder int32     `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// ProofSelection states. SUBMITTED is terminal: no item changes and no
// re-submit are ever permitted afterwards.
const (
	SelectionDraft     = "DRAFT"
	SelectionSubmitted = "SUBMITTED"
)

// ProofSelection is the single draft-or-submitted photo choice for one
// (tenant, gallery, client) tuple, created lazily on first interaction.
type ProofSelection struct {
	ID             uuid.UUID            `json:"id"`
	TenantID       uuid.UUID            `json:"tenant_id"`
	GalleryID      uuid.UUID            `json:"gallery_id"`
	ClientUsername string               `json:"client_username"`
	Status         string               `json:"status"`
	SubmittedAt    *time.Time           `json:"submitted_at"`
	CreatedAt      time.Time            `json:"created_at"`
	Items          []ProofSelectionItem `json:"items"`
}

// ProofSelectionItem links a selection to one photo of the same gallery.
// The (selection_id, photo_id) pair is unique — adds are idempotent.
type ProofSelectionItem struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	SelectionID uuid.UUID `json:"selection_id"`
	PhotoID     uuid.UUID `json:"photo_id"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
}
