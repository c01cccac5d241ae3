package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/domainconn"
)

type DomainHandler struct {
	lifecycle *domainconn.Lifecycle
	logger    *zap.Logger
}

func NewDomainHandler(lifecycle *domainconn.Lifecycle, logger *zap.Logger) *DomainHandler {
	return &DomainHandler{lifecycle: lifecycle, logger: logger}
}

type startConnectionRequest struct {
	Hostname string `json:"hostname" binding:"required"`
}

// StartConnection handles POST /v1/domain — begins (or replaces) the
// studio's custom-domain attempt and returns the TXT challenge to
// publish.
func (h *DomainHandler) StartConnection(c *gin.Context) {
	var req startConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, err := h.lifecycle.StartConnection(c.Request.Context(), req.Hostname)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Status handles GET /v1/domain. No connection attempt yet is an empty
// 200, not a 404 — the settings page renders either way.
func (h *DomainHandler) Status(c *gin.Context) {
	d, err := h.lifecycle.Status(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if d == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Disconnect handles DELETE /v1/domain — disables the hostname from
// whatever live status it is in. Traffic falls back to the subdomain.
func (h *DomainHandler) Disconnect(c *gin.Context) {
	d, err := h.lifecycle.Disable(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
