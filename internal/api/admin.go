package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/domainconn"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
	"github.com/calebds/proofstream/internal/tenant"
)

// AdminHandler is the platform operator console: tenant status and
// billing overrides, slug changes, and domain verification. It is the
// one surface that opens a scope for a tenant other than the caller's
// own — deliberately, and only behind AdminAuth.
type AdminHandler struct {
	directory  repository.Directory
	lifecycle  *domainconn.Lifecycle
	resolver   *tenant.Resolver
	mainDomain string
	logger     *zap.Logger
}

func NewAdminHandler(directory repository.Directory, lifecycle *domainconn.Lifecycle, resolver *tenant.Resolver, mainDomain string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		directory:  directory,
		lifecycle:  lifecycle,
		resolver:   resolver,
		mainDomain: mainDomain,
		logger:     logger,
	}
}

func (h *AdminHandler) targetTenant(c *gin.Context) (*models.Tenant, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return nil, false
	}
	t, err := h.directory.SystemGetTenant(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if t == nil {
		respondError(c, h.logger, apperr.ErrTenantNotFound)
		return nil, false
	}
	return t, true
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE SUSPENDED DELETED"`
}

// UpdateTenantStatus handles PUT /v1/admin/tenants/:id/status.
// DELETED is a status flip, never a row deletion.
func (h *AdminHandler) UpdateTenantStatus(c *gin.Context) {
	t, ok := h.targetTenant(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.directory.SystemUpdateTenantStatus(c.Request.Context(), t.ID, req.Status); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("tenant status updated",
		zap.String("tenant_id", t.ID.String()),
		zap.String("status", req.Status))
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "status": req.Status})
}

type updateBillingRequest struct {
	BillingStatus string `json:"billing_status" binding:"required,oneof=PENDING ACTIVE PAST_DUE CANCELED"`
}

// UpdateBillingStatus handles PUT /v1/admin/tenants/:id/billing —
// manual override for support cases; the webhook is the normal path.
func (h *AdminHandler) UpdateBillingStatus(c *gin.Context) {
	t, ok := h.targetTenant(c)
	if !ok {
		return
	}

	var req updateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.directory.SystemUpdateBillingStatus(c.Request.Context(), t.ID, req.BillingStatus); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "billing_status": req.BillingStatus})
}

type updateSlugRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// UpdateSlug handles PUT /v1/admin/tenants/:id/slug. The old subdomain
// must stop resolving immediately, so its cache entry is dropped along
// with the new one's.
func (h *AdminHandler) UpdateSlug(c *gin.Context) {
	t, ok := h.targetTenant(c)
	if !ok {
		return
	}

	var req updateSlugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := tenant.ValidateSlug(req.Slug); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.directory.SystemUpdateSlug(c.Request.Context(), t.ID, req.Slug); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.resolver.InvalidateHost(c.Request.Context(), t.Slug+"."+h.mainDomain)
	h.resolver.InvalidateHost(c.Request.Context(), req.Slug+"."+h.mainDomain)

	h.logger.Info("tenant slug updated",
		zap.String("tenant_id", t.ID.String()),
		zap.String("old_slug", t.Slug),
		zap.String("new_slug", req.Slug))
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "slug": req.Slug})
}

// VerifyDomain handles POST /v1/admin/tenants/:id/domain/verify — the
// operator confirms the TXT record is in place. Runs the lifecycle
// under the target tenant's scope.
func (h *AdminHandler) VerifyDomain(c *gin.Context) {
	t, ok := h.targetTenant(c)
	if !ok {
		return
	}

	ctx := scope.WithTenant(c.Request.Context(), t.ID)
	d, err := h.lifecycle.MarkVerified(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ActivateDomain handles POST /v1/admin/tenants/:id/domain/activate.
func (h *AdminHandler) ActivateDomain(c *gin.Context) {
	t, ok := h.targetTenant(c)
	if !ok {
		return
	}

	ctx := scope.WithTenant(c.Request.Context(), t.ID)
	d, err := h.lifecycle.Activate(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
