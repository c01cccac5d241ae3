package scope

import (
	"context"

	"github.com/google/uuid"

	"github.com/calebds/proofstream/internal/apperr"
)

// Package scope carries the resolved tenant id through a request's call
// tree. It is the only ambient state in the process.
//
// Why context values and not a global or a struct field?
//   - A context is immutable and call-tree-local. Deriving a child context
//     with WithTenant never mutates the parent, so two requests handled
//     concurrently can never observe each other's tenant — the isolation
//     property the whole data layer depends on.
//   - Every store method re-reads the scope from the ctx it was handed.
//     There is no setter a caller could abuse to smuggle in a different
//     tenant id for a single query.

// key is unexported so no other package can read or write the scope
// except through the functions below.
type key struct{}

// WithTenant opens a tenant scope for the derived subtree. A nested call
// with a different tenant id shadows the outer scope for that subtree
// only; the outer context is untouched and stays in force for its own
// callers once the nested work returns.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, key{}, tenantID)
}

// TenantID is the non-failing lookup. ok is false when no scope is open.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(key{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireTenantID is the mandatory guard every data-access function calls
// before touching the pool. It fails with apperr.ErrTenantScopeMissing so
// an unscoped call aborts before any I/O happens.
func RequireTenantID(ctx context.Context) (uuid.UUID, error) {
	id, ok := TenantID(ctx)
	if !ok {
		return uuid.Nil, apperr.ErrTenantScopeMissing
	}
	return id, nil
}
