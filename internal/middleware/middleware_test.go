package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/auth"
	"github.com/calebds/proofstream/internal/middleware"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/scope"
	"github.com/calebds/proofstream/internal/tenant"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeDirectory backs SessionAuth and the resolver with canned rows.
type fakeDirectory struct {
	tenants map[uuid.UUID]*models.Tenant
	domains map[string]*models.TenantDomain
	slugs   map[string]*models.Tenant
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		tenants: map[uuid.UUID]*models.Tenant{},
		domains: map[string]*models.TenantDomain{},
		slugs:   map[string]*models.Tenant{},
	}
}

func (d *fakeDirectory) addTenant(slug, status, billing string) *models.Tenant {
	t := &models.Tenant{ID: uuid.New(), Slug: slug, Status: status, BillingStatus: billing}
	d.tenants[t.ID] = t
	d.slugs[slug] = t
	return t
}

func (d *fakeDirectory) SystemGetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	return d.tenants[id], nil
}

func (d *fakeDirectory) SystemGetTenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	return d.slugs[slug], nil
}

func (d *fakeDirectory) SystemGetDomainByHostname(_ context.Context, hostname string) (*models.TenantDomain, error) {
	return d.domains[hostname], nil
}

func sessionToken(t *testing.T, tn *models.Tenant, role string) string {
	t.Helper()
	token, err := auth.GenerateSessionToken(uuid.New(), tn.ID, "owner@example.com", role, secret, time.Hour)
	require.NoError(t, err)
	return token
}

// sessionRouter wires SessionAuth in front of a probe that reports the
// ambient scope.
func sessionRouter(dir *fakeDirectory) *gin.Engine {
	r := gin.New()
	r.GET("/probe",
		middleware.SessionAuth(secret, sessionDirectory{dir}, zap.NewNop()),
		func(c *gin.Context) {
			tenantID, ok := scope.TenantID(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"scoped": ok, "tenant_id": tenantID})
		})
	return r
}

// sessionDirectory narrows fakeDirectory to the one Directory method
// SessionAuth calls; the rest would be dead weight here.
type sessionDirectory struct{ d *fakeDirectory }

func (s sessionDirectory) SystemGetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.d.SystemGetTenant(ctx, id)
}
func (s sessionDirectory) SystemGetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.d.SystemGetTenantBySlug(ctx, slug)
}
func (s sessionDirectory) SystemGetDomainByHostname(ctx context.Context, hostname string) (*models.TenantDomain, error) {
	return s.d.SystemGetDomainByHostname(ctx, hostname)
}
func (s sessionDirectory) SystemGetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, nil
}
func (s sessionDirectory) CreateSignup(context.Context, string, string, string, string) (*models.Tenant, *models.User, error) {
	return nil, nil, nil
}
func (s sessionDirectory) SystemUpdateTenantStatus(context.Context, uuid.UUID, string) error {
	return nil
}
func (s sessionDirectory) SystemUpdateBillingStatus(context.Context, uuid.UUID, string) error {
	return nil
}
func (s sessionDirectory) SystemUpdateSlug(context.Context, uuid.UUID, string) error { return nil }
func (s sessionDirectory) SystemGetTenantByPaymentAccount(context.Context, string) (*models.Tenant, error) {
	return nil, nil
}
func (s sessionDirectory) SystemSetPaymentAccount(context.Context, uuid.UUID, string) error {
	return nil
}
func (s sessionDirectory) SystemMarkOnboardingComplete(context.Context, uuid.UUID) error { return nil }

func TestSessionAuth_MissingOrBadToken(t *testing.T) {
	dir := newFakeDirectory()
	r := sessionRouter(dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_OpensScopeForActiveTenant(t *testing.T) {
	dir := newFakeDirectory()
	tn := dir.addTenant("mira", models.TenantActive, models.BillingActive)
	r := sessionRouter(dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tn, models.RoleTenant))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scoped":true`)
	assert.Contains(t, w.Body.String(), tn.ID.String())
}

func TestSessionAuth_InactiveTenantIs401(t *testing.T) {
	dir := newFakeDirectory()
	for _, status := range []string{models.TenantSuspended, models.TenantDeleted} {
		tn := dir.addTenant("studio-"+status, status, models.BillingActive)
		r := sessionRouter(dir)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, tn, models.RoleTenant))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, status)
	}
}

func TestSessionAuth_LapsedBillingIs402(t *testing.T) {
	dir := newFakeDirectory()
	tn := dir.addTenant("mira", models.TenantActive, models.BillingPastDue)
	r := sessionRouter(dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tn, models.RoleTenant))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "/billing")
}

func TestSessionAuth_MasterAdminSkipsBillingGate(t *testing.T) {
	dir := newFakeDirectory()
	tn := dir.addTenant("platform", models.TenantActive, models.BillingPastDue)
	r := sessionRouter(dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, tn, models.RoleMasterAdmin))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin",
		func(c *gin.Context) { c.Set(middleware.ContextKeyRole, models.RoleTenant) },
		middleware.AdminAuth(),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func scopeRouter(dir *fakeDirectory) *gin.Engine {
	resolver := tenant.NewResolver(dir, nil, zap.NewNop())
	r := gin.New()
	r.GET("/probe",
		middleware.TenantScope(resolver, zap.NewNop()),
		func(c *gin.Context) {
			tenantID, _ := scope.TenantID(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID})
		})
	return r
}

func TestTenantScope_ResolvesSlugHost(t *testing.T) {
	dir := newFakeDirectory()
	tn := dir.addTenant("mira", models.TenantActive, models.BillingActive)
	r := scopeRouter(dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Host = "mira.proofstream.local"
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tn.ID.String())
}

func TestTenantScope_UnknownSlugIs404(t *testing.T) {
	r := scopeRouter(newFakeDirectory())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Host = "ghost.proofstream.local"
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTenantScope_UnparseableHostIs400(t *testing.T) {
	r := scopeRouter(newFakeDirectory())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Host = "localhost:8081"
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantScope_ExistingScopeWins(t *testing.T) {
	dir := newFakeDirectory()
	resolver := tenant.NewResolver(dir, nil, zap.NewNop())
	sessionTenant := uuid.New()

	r := gin.New()
	r.GET("/probe",
		func(c *gin.Context) {
			ctx := scope.WithTenant(c.Request.Context(), sessionTenant)
			c.Request = c.Request.WithContext(ctx)
		},
		middleware.TenantScope(resolver, zap.NewNop()),
		func(c *gin.Context) {
			tenantID, _ := scope.TenantID(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID})
		})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Host = "ghost.proofstream.local" // would 404 if it were consulted
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sessionTenant.String())
}

func TestGalleryAuth_TenantMismatchIs401(t *testing.T) {
	galleryID := uuid.New()
	tokenTenant := uuid.New()
	hostTenant := uuid.New()

	token, err := auth.GenerateGalleryToken(tokenTenant, galleryID, "client-a", secret, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/probe",
		func(c *gin.Context) {
			ctx := scope.WithTenant(c.Request.Context(), hostTenant)
			c.Request = c.Request.WithContext(ctx)
		},
		middleware.GalleryAuth(secret),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGalleryAuth_MatchStoresClaims(t *testing.T) {
	galleryID := uuid.New()
	tenantID := uuid.New()

	token, err := auth.GenerateGalleryToken(tenantID, galleryID, "client-a", secret, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/probe",
		func(c *gin.Context) {
			ctx := scope.WithTenant(c.Request.Context(), tenantID)
			c.Request = c.Request.WithContext(ctx)
		},
		middleware.GalleryAuth(secret),
		func(c *gin.Context) {
			claims := middleware.GetGalleryClaims(c)
			require.NotNil(t, claims)
			c.JSON(http.StatusOK, gin.H{"gallery_id": claims.GalleryID, "client": claims.ClientUsername})
		})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), galleryID.String())
}

func TestMainDomainOnly(t *testing.T) {
	r := gin.New()
	r.GET("/signup", middleware.MainDomainOnly("proofstream.local"),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/signup", nil)
	req.Host = "proofstream.local:8081"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/signup", nil)
	req.Host = "mira.proofstream.local"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
