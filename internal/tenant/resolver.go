package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
)

// Context is the result of tenant resolution: which tenant a request
// belongs to, before any scope has been opened.
type Context struct {
	TenantID   uuid.UUID
	TenantSlug string
}

// DirectoryLookups is the unscoped read surface the resolver needs.
// Resolution runs before a tenant scope exists, so these lookups take
// explicit keys instead of reading the ambient scope.
type DirectoryLookups interface {
	// SystemGetDomainByHostname returns nil, nil when no domain row
	// matches the hostname.
	SystemGetDomainByHostname(ctx context.Context, hostname string) (*models.TenantDomain, error)

	// SystemGetTenant returns nil, nil when the tenant does not exist.
	SystemGetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	// SystemGetTenantBySlug returns nil, nil when no tenant owns the slug.
	SystemGetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

const cacheTTL = 5 * time.Minute

// Resolver turns an inbound Host header into a tenant. Custom domains
// win over subdomain slugs: a verified hostname is a DNS-proven signal,
// and must not be shadowed by a coincidental slug collision on its first
// label. Resolutions are cached in redis; the cache is optional so tests
// and local runs work without one.
type Resolver struct {
	lookups DirectoryLookups
	cache   *redis.Client
	logger  *zap.Logger
}

func NewResolver(lookups DirectoryLookups, cache *redis.Client, logger *zap.Logger) *Resolver {
	return &Resolver{lookups: lookups, cache: cache, logger: logger}
}

// RequireTenantContext resolves the tenant for a hostname.
// Precedence: (1) exact TenantDomain hostname match, for any status but
// DISABLED; (2) subdomain slug parsing. Fails with ErrTenantRequired when
// no slug can be parsed and ErrTenantNotFound when the lookup misses.
func (r *Resolver) RequireTenantContext(ctx context.Context, host string) (Context, error) {
	normalized := NormalizeHost(host)
	if normalized == "" {
		return Context{}, fmt.Errorf("%w: empty host", apperr.ErrTenantRequired)
	}

	if tc, ok := r.cacheGet(ctx, normalized); ok {
		return tc, nil
	}

	domain, err := r.lookups.SystemGetDomainByHostname(ctx, normalized)
	if err != nil {
		return Context{}, fmt.Errorf("lookup domain: %w", err)
	}
	if domain != nil && domain.Status != models.DomainDisabled {
		// Domain match short-circuits: slug resolution is skipped
		// entirely, even if the tenant row behind it is gone.
		t, err := r.lookups.SystemGetTenant(ctx, domain.TenantID)
		if err != nil {
			return Context{}, fmt.Errorf("lookup domain tenant: %w", err)
		}
		if t == nil {
			return Context{}, fmt.Errorf("%w: domain %s has no tenant", apperr.ErrTenantNotFound, normalized)
		}
		tc := Context{TenantID: t.ID, TenantSlug: t.Slug}
		r.cachePut(ctx, normalized, tc)
		return tc, nil
	}

	slug := ResolveFromHost(normalized)
	if slug == "" {
		return Context{}, fmt.Errorf("%w: host %q", apperr.ErrTenantRequired, host)
	}

	t, err := r.lookups.SystemGetTenantBySlug(ctx, slug)
	if err != nil {
		return Context{}, fmt.Errorf("lookup tenant by slug: %w", err)
	}
	if t == nil || t.Slug == "" {
		return Context{}, fmt.Errorf("%w: slug %q", apperr.ErrTenantNotFound, slug)
	}

	tc := Context{TenantID: t.ID, TenantSlug: t.Slug}
	r.cachePut(ctx, normalized, tc)
	return tc, nil
}

// InvalidateHost drops a cached resolution. Called on every domain
// lifecycle transition and on admin slug changes so stale mappings never
// outlive the records behind them.
func (r *Resolver) InvalidateHost(ctx context.Context, host string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKey(NormalizeHost(host))).Err(); err != nil {
		r.logger.Warn("failed to invalidate host cache",
			zap.String("host", host), zap.Error(err))
	}
}

func cacheKey(host string) string {
	return "tenanthost:" + host
}

func (r *Resolver) cacheGet(ctx context.Context, host string) (Context, bool) {
	if r.cache == nil {
		return Context{}, false
	}
	val, err := r.cache.Get(ctx, cacheKey(host)).Result()
	if err != nil {
		// Cache misses and cache outages are both just misses; the DB
		// path below is authoritative.
		return Context{}, false
	}
	id, slug, ok := strings.Cut(val, "|")
	if !ok {
		return Context{}, false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Context{}, false
	}
	return Context{TenantID: parsed, TenantSlug: slug}, true
}

func (r *Resolver) cachePut(ctx context.Context, host string, tc Context) {
	if r.cache == nil {
		return
	}
	val := tc.TenantID.String() + "|" + tc.TenantSlug
	if err := r.cache.Set(ctx, cacheKey(host), val, cacheTTL).Err(); err != nil {
		r.logger.Warn("failed to cache host resolution",
			zap.String("host", host), zap.Error(err))
	}
}
