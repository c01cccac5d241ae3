package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/auth"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/scope"
)

// Context keys for claims stored in gin.Context. Constants so a typo
// fails at compile time instead of silently reading nil.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyTenantID = "tenant_id"
	ContextKeyEmail    = "email"
	ContextKeyRole     = "role"
	ContextKeyGallery  = "gallery_claims"
)

// bearerToken pulls the token out of "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// SessionAuth validates the platform session token and opens the tenant
// scope for the rest of the request.
//
// Beyond the signature check, it re-reads the tenant row on every
// request: a token outlives a suspension, the row does not. A tenant
// that is not ACTIVE gets 401 no matter how fresh the token is, and a
// tenant whose billing has lapsed gets 402 with a pointer at the
// billing page. Master admins skip the billing gate — locking the
// operators out of their own console would be self-defeating.
func SessionAuth(secret string, directory repository.Directory, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := auth.ParseSessionToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		t, err := directory.SystemGetTenant(c.Request.Context(), claims.TenantID)
		if err != nil {
			logger.Error("session tenant lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if t == nil || t.Status != models.TenantActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant is not active"})
			return
		}

		if claims.Role != models.RoleMasterAdmin &&
			(t.BillingStatus == models.BillingPastDue || t.BillingStatus == models.BillingCanceled) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":    "billing is not active",
				"redirect": "/billing",
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)

		ctx := scope.WithTenant(c.Request.Context(), claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AdminAuth guards the platform operator surface. Runs after
// SessionAuth, which has already verified the token.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != models.RoleMasterAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// GalleryAuth validates a client gallery session token. The tenant in
// the token must match the tenant the host resolved to — a gallery
// token presented on another studio's domain is a plain 401, no matter
// how valid its signature is. The per-gallery binding is checked by the
// handlers against the route's gallery id.
func GalleryAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := auth.ParseGalleryToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		tenantID, ok := scope.TenantID(c.Request.Context())
		if !ok || tenantID != claims.TenantID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token does not match this studio"})
			return
		}

		c.Set(ContextKeyGallery, claims)
		c.Next()
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetTenantID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetEmail(c *gin.Context) string {
	val, exists := c.Get(ContextKeyEmail)
	if !exists {
		return ""
	}
	email, ok := val.(string)
	if !ok {
		return ""
	}
	return email
}

func GetRole(c *gin.Context) string {
	val, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	role, ok := val.(string)
	if !ok {
		return ""
	}
	return role
}

// GetGalleryClaims returns the client gallery session stored by
// GalleryAuth, or nil outside client gallery routes.
func GetGalleryClaims(c *gin.Context) *auth.GallerySessionClaims {
	val, exists := c.Get(ContextKeyGallery)
	if !exists {
		return nil
	}
	claims, ok := val.(*auth.GallerySessionClaims)
	if !ok {
		return nil
	}
	return claims
}
