package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
)

// badRequestError marks handler-level validation failures that carry a
// message safe to show the client.
type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return badRequestError{msg: msg} }

func asBadRequest(err error, target *badRequestError) bool {
	return errors.As(err, target)
}

// respondError is the single place errors become HTTP statuses. Lower
// layers return apperr sentinels (usually wrapped); handlers hand them
// here untouched. Anything unrecognized is a logged 500 with a generic
// body — internal detail never reaches the wire.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrTenantNotFound),
		errors.Is(err, apperr.ErrGalleryNotFound),
		errors.Is(err, apperr.ErrPhotoNotFound),
		errors.Is(err, apperr.ErrSelectionNotFound),
		errors.Is(err, apperr.ErrDomainNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, apperr.ErrTenantRequired),
		errors.Is(err, apperr.ErrGalleryNotPrivate),
		errors.Is(err, apperr.ErrInvalidSlug),
		errors.Is(err, apperr.ErrInvalidHostname),
		errors.Is(err, apperr.ErrInvalidBytes):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// A selection over its limit is a conflict with the gallery's
	// configured cap, not a malformed request: the client resolves it by
	// removing items and retrying.
	case errors.Is(err, apperr.ErrMaxSelectionsExceeded),
		errors.Is(err, apperr.ErrSelectionSubmitted),
		errors.Is(err, apperr.ErrSlugTaken),
		errors.Is(err, apperr.ErrEmailTaken),
		errors.Is(err, apperr.ErrDomainTaken),
		errors.Is(err, apperr.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, apperr.ErrStorageQuotaExceeded):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})

	default:
		// ErrTenantScopeMissing lands here on purpose: a request that
		// reaches a store without a scope is a routing bug, not a client
		// error.
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
