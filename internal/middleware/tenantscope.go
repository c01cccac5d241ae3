package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/apperr"
	"github.com/calebds/proofstream/internal/scope"
	"github.com/calebds/proofstream/internal/tenant"
)

// TenantScope opens the tenant scope from the request's Host header.
// The fallback chain is: a scope opened earlier in the chain (by
// SessionAuth) wins; otherwise the host is resolved — active custom
// domain first, then subdomain slug. A host that resolves to nothing is
// 404; a host that does not even carry a slug is 400.
func TenantScope(resolver *tenant.Resolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := scope.TenantID(c.Request.Context()); ok {
			c.Next()
			return
		}

		tc, err := resolver.RequireTenantContext(c.Request.Context(), c.Request.Host)
		if err != nil {
			switch {
			case errors.Is(err, apperr.ErrTenantRequired):
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no studio for this address"})
			case errors.Is(err, apperr.ErrTenantNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "studio not found"})
			default:
				logger.Error("tenant resolution failed",
					zap.String("host", c.Request.Host), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.Set(ContextKeyTenantID, tc.TenantID)
		ctx := scope.WithTenant(c.Request.Context(), tc.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// MainDomainOnly restricts a route group to the platform's own apex.
// Signup and the admin console do not exist on tenant hosts; asking for
// them there is a 404, not a redirect.
func MainDomainOnly(mainDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenant.NormalizeHost(c.Request.Host) != tenant.NormalizeHost(mainDomain) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Next()
	}
}
