package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/middleware"
	"github.com/calebds/proofstream/internal/realtime"
	"github.com/calebds/proofstream/internal/repository"
)

// ActivityHandler streams live selection events to the studio
// dashboard over a websocket.
type ActivityHandler struct {
	galleries repository.Galleries
	feed      *realtime.Feed
	logger    *zap.Logger
}

func NewActivityHandler(galleries repository.Galleries, feed *realtime.Feed, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{galleries: galleries, feed: feed, logger: logger}
}

// Feed handles GET /v1/galleries/:id/activity/ws. Runs behind
// SessionAuth, so the scope is already open; the gallery lookup both
// validates existence and pins the stream to the caller's own tenant.
func (h *ActivityHandler) Feed(c *gin.Context) {
	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gallery ID"})
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

	h.feed.Serve(c, middleware.GetTenantID(c), g.ID)
}
