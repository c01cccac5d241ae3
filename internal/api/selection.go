package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/auth"
	"github.com/calebds/proofstream/internal/middleware"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
	"github.com/calebds/proofstream/internal/selection"
)

const galleryTTL = 12 * time.Hour

// SelectionHandler is the client-facing proofing surface: gallery
// login, then draft/add/remove/submit against the selection engine.
// Every route here runs behind host-based tenant scoping; the mutating
// routes additionally run behind GalleryAuth.
type SelectionHandler struct {
	galleries repository.Galleries
	engine    *selection.Engine
	secret    string
	logger    *zap.Logger
}

func NewSelectionHandler(galleries repository.Galleries, engine *selection.Engine, secret string, logger *zap.Logger) *SelectionHandler {
	return &SelectionHandler{galleries: galleries, engine: engine, secret: secret, logger: logger}
}

type galleryLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GalleryLogin handles POST /v1/client/galleries/:id/login. A valid
// username + password pair yields a session pinned to this tenant and
// this gallery. Wrong username and wrong password are the same 401.
func (h *SelectionHandler) GalleryLogin(c *gin.Context) {
	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return
	}

	var req galleryLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.galleries.GetByID(c.Request.Context(), galleryID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if g == nil {
		respondError(c, h.logger, apperr.ErrGalleryNotFound)
		return
	}
	if g.AccessMode != models.AccessPrivate {
		respondError(c, h.logger, apperr.ErrGalleryNotPrivate)
		return
	}

	if g.ClientUsername != req.Username ||
		bcrypt.CompareHashAndPassword([]byte(g.ClientPasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid gallery credentials"})
		return
	}

	tenantID, _ := scope.TenantID(c.Request.Context())
	token, err := auth.GenerateGalleryToken(tenantID, g.ID, g.ClientUsername, h.secret, galleryTTL)
	if err != nil {
		h.logger.Error("sign gallery token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"gallery_id": g.ID,
		"username":   g.ClientUsername,
	})
}

// clientGallery checks the route's gallery against the session's
// pinned gallery. A token for gallery A used on gallery B is a 401 —
// same shape as a bad password, no hint that B exists.
func (h *SelectionHandler) clientGallery(c *gin.Context) (uuid.UUID, string, bool) {
	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return uuid.Nil, "", false
	}

	claims := middleware.GetGalleryClaims(c)
	if claims == nil || claims.GalleryID != galleryID {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session does not match this gallery"})
		return uuid.Nil, "", false
	}
	return galleryID, claims.ClientUsername, true
}

// GetSelection handles GET /v1/client/galleries/:id/selection. No
// selection yet reads as an empty draft shape, not a 404 — the client
// UI starts from zero either way.
func (h *SelectionHandler) GetSelection(c *gin.Context) {
	galleryID, username, ok := h.clientGallery(c)
	if !ok {
		return
	}

	sel, err := h.engine.GetWithItems(c.Request.Context(), galleryID, username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if sel == nil {
		// Same schema as a persisted selection so clients parse one
		// shape; id and submitted_at are null until first touch.
		c.JSON(http.StatusOK, gin.H{
			"id":           nil,
			"status":       models.SelectionDraft,
			"submitted_at": nil,
			"items":        []models.ProofSelectionItem{},
		})
		return
	}
	c.JSON(http.StatusOK, sel)
}

// StartDraft handles POST /v1/client/galleries/:id/selection.
func (h *SelectionHandler) StartDraft(c *gin.Context) {
	galleryID, username, ok := h.clientGallery(c)
	if !ok {
		return
	}

	sel, err := h.engine.CreateOrGetDraft(c.Request.Context(), galleryID, username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// AddItem handles PUT /v1/client/galleries/:id/selection/photos/:photoID.
func (h *SelectionHandler) AddItem(c *gin.Context) {
	galleryID, username, ok := h.clientGallery(c)
	if !ok {
		return
	}
	photoID, err := uuid.Parse(c.Param("photoID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo ID"})
		return
	}

	sel, err := h.engine.AddItem(c.Request.Context(), galleryID, username, photoID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// RemoveItem handles DELETE /v1/client/galleries/:id/selection/photos/:photoID.
func (h *SelectionHandler) RemoveItem(c *gin.Context) {
	galleryID, username, ok := h.clientGallery(c)
	if !ok {
		return
	}
	photoID, err := uuid.Parse(c.Param("photoID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo ID"})
		return
	}

	sel, err := h.engine.RemoveItem(c.Request.Context(), galleryID, username, photoID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// Submit handles POST /v1/client/galleries/:id/selection/submit.
func (h *SelectionHandler) Submit(c *gin.Context) {
	galleryID, username, ok := h.clientGallery(c)
	if !ok {
		return
	}

	sel, err := h.engine.Submit(c.Request.Context(), galleryID, username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}
