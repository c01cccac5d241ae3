package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/storage"
)

type PhotoHandler struct {
	storage *storage.Service
	photos  repository.Photos
	logger  *zap.Logger
}

func NewPhotoHandler(svc *storage.Service, photos repository.Photos, logger *zap.Logger) *PhotoHandler {
	return &PhotoHandler{storage: svc, photos: photos, logger: logger}
}

type prepareUploadRequest struct {
	OriginalFilename string `json:"original_filename" binding:"required"`
	MimeType         string `json:"mime_type" binding:"required"`
	Bytes            int64  `json:"bytes" binding:"required"`
	Caption          string `json:"caption"`
	SortOrder        int32  `json:"sort_order"`
}

// PrepareUpload handles POST /v1/galleries/:id/photos — quota check,
// pending row, upload target.
func (h *PhotoHandler) PrepareUpload(c *gin.Context) {
	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return
	}

	var req prepareUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	up, err := h.storage.PrepareUpload(c.Request.Context(), storage.PrepareUploadParams{
		GalleryID:        galleryID,
		OriginalFilename: req.OriginalFilename,
		MimeType:         req.MimeType,
		DeclaredBytes:    req.Bytes,
		Caption:          req.Caption,
		SortOrder:        req.SortOrder,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, up)
}

type finalizeUploadRequest struct {
	Bytes  int64 `json:"bytes" binding:"required"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// FinalizeUpload handles POST /v1/photos/:id/finalize — records the
// landed object and charges the quota.
func (h *PhotoHandler) FinalizeUpload(c *gin.Context) {
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo ID"})
		return
	}

	var req finalizeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	photo, err := h.storage.FinalizeUpload(c.Request.Context(), photoID, req.Bytes, req.Width, req.Height)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// List handles GET /v1/galleries/:id/photos.
func (h *PhotoHandler) List(c *gin.Context) {
	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
		return
	}

	photos, err := h.photos.List(c.Request.Context(), galleryID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

// Delete handles DELETE /v1/photos/:id — row and quota refund together.
func (h *PhotoHandler) Delete(c *gin.Context) {
	photoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo ID"})
		return
	}

	if err := h.storage.DeletePhoto(c.Request.Context(), photoID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
