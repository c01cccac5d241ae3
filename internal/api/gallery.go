package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
)

type GalleryHandler struct {
	galleries repository.Galleries
	logger    *zap.Logger
}

func NewGalleryHandler(galleries repository.Galleries, logger *zap.Logger) *GalleryHandler {
	return &GalleryHandler{galleries: galleries, logger: logger}
}

type galleryRequest struct {
	Title          string `json:"title" binding:"required"`
	AccessMode     string `json:"access_mode" binding:"required,oneof=PUBLIC PRIVATE"`
	ClientUsername string `json:"client_username"`
	ClientPassword string `json:"client_password"`
	MaxSelections  *int32 `json:"max_selections"`
}

// toParams validates the mode-dependent fields and hashes the client
// password. PRIVATE galleries must carry client credentials; PUBLIC
// galleries must not.
func (r galleryRequest) toParams() (repository.CreateGalleryParams, error) {
	params := repository.CreateGalleryParams{
		Title:         r.Title,
		AccessMode:    r.AccessMode,
		MaxSelections: r.MaxSelections,
	}

	if r.MaxSelections != nil && *r.MaxSelections < 1 {
		return params, errBadRequest("max_selections must be at least 1")
	}

	switch r.AccessMode {
	case models.AccessPrivate:
		if r.ClientUsername == "" || r.ClientPassword == "" {
			return params, errBadRequest("private galleries require client_username and client_password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(r.ClientPassword), bcrypt.DefaultCost)
		if err != nil {
			return params, err
		}
		params.ClientUsername = r.ClientUsername
		params.ClientPasswordHash = string(hash)
	case models.AccessPublic:
		if r.ClientUsername != "" || r.ClientPassword != "" {
			return params, errBadRequest("public galleries cannot carry client credentials")
		}
	}

	return params, nil
}

// Create handles POST /v1/galleries.
func (h *GalleryHandler) Create(c *gin.Context) {
	var req galleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params, err := req.toParams()
	if err != nil {
		h.respondParamsErr(c, err)
		return
	}

	g, err := h.galleries.Create(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// List handles GET /v1/galleries.
func (h *GalleryHandler) List(c *gin.Context) {
	galleries, err := h.galleries.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, galleries)
}

// Get handles GET /v1/galleries/:id.
func (h *GalleryHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return
	}

	g, err := h.galleries.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if g == nil {
		respondError(c, h.logger, apperr.ErrGalleryNotFound)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Update handles PUT /v1/galleries/:id.
func (h *GalleryHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return
	}

	var req galleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params, err := req.toParams()
	if err != nil {
		h.respondParamsErr(c, err)
		return
	}

	g, err := h.galleries.Update(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if g == nil {
		respondError(c, h.logger, apperr.ErrGalleryNotFound)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Delete handles DELETE /v1/galleries/:id.
func (h *GalleryHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return
	}

	if err := h.galleries.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GalleryHandler) respondParamsErr(c *gin.Context, err error) {
	var bad badRequestError
	if ok := asBadRequest(err, &bad); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": bad.msg})
		return
	}
	h.logger.Error("build gallery params", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
