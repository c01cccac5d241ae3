package apperr

import "errors"

// Every failure the core can produce is one of these sentinels, matched
// with errors.Is at the API boundary. Lower layers never format HTTP
// responses and never encode status codes — they return one of these,
// usually wrapped with fmt.Errorf("...: %w", err) for call-site context.
//
// Three families:
//   - scope errors: fatal to the request, raised before any data access.
//   - domain-state errors: expected 4xx outcomes of normal client behavior.
//   - storage errors: upload validation and quota enforcement.
var (
	// Scope errors.
	ErrTenantScopeMissing = errors.New("tenant scope is missing")
	ErrTenantRequired     = errors.New("tenant required")
	ErrTenantNotFound     = errors.New("tenant not found")

	// Domain-state errors.
	ErrGalleryNotFound       = errors.New("gallery not found")
	ErrGalleryNotPrivate     = errors.New("gallery is not private")
	ErrPhotoNotFound         = errors.New("photo not found")
	ErrSelectionNotFound     = errors.New("selection not found")
	ErrSelectionSubmitted    = errors.New("selection is submitted")
	ErrMaxSelectionsExceeded = errors.New("selection exceeds max selections")

	// Signup / admin errors.
	ErrSlugTaken         = errors.New("tenant slug is taken")
	ErrEmailTaken        = errors.New("email already registered")
	ErrDomainTaken       = errors.New("hostname already connected to a tenant")
	ErrDomainNotFound    = errors.New("tenant domain not found")
	ErrInvalidSlug       = errors.New("invalid tenant slug")
	ErrInvalidHostname   = errors.New("invalid hostname")
	ErrInvalidTransition = errors.New("invalid domain transition")

	// Storage errors.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrInvalidBytes         = errors.New("invalid byte size")
)
