package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/calebds/proofstream/internal/auth"
	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
	"github.com/calebds/proofstream/internal/tenant"
)

const sessionTTL = 24 * time.Hour

type AuthHandler struct {
	directory repository.Directory
	secret    string
	logger    *zap.Logger
}

func NewAuthHandler(directory repository.Directory, secret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{directory: directory, secret: secret, logger: logger}
}

type signupRequest struct {
	StudioName string `json:"studio_name" binding:"required"`
	Slug       string `json:"slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
}

// Signup handles POST /v1/auth/signup — creates the studio and its
// owner in one transaction and returns a ready session. Only served on
// the platform's main domain.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := tenant.ValidateSlug(req.Slug); err != nil {
		respondError(c, h.logger, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	tn, user, err := h.directory.CreateSignup(c.Request.Context(), req.StudioName, req.Slug, req.Email, string(hash))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := auth.GenerateSessionToken(user.ID, tn.ID, user.Email, user.Role, h.secret, sessionTTL)
	if err != nil {
		h.logger.Error("sign session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.Info("studio signed up",
		zap.String("tenant_id", tn.ID.String()),
		zap.String("slug", tn.Slug))

	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"tenant": tn,
		"user":   user,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login. Unknown email and wrong password
// produce the same 401 — no account enumeration.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.directory.SystemGetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	tn, err := h.directory.SystemGetTenant(c.Request.Context(), user.TenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if tn == nil || tn.Status != models.TenantActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "tenant is not active"})
		return
	}

	token, err := auth.GenerateSessionToken(user.ID, user.TenantID, user.Email, user.Role, h.secret, sessionTTL)
	if err != nil {
		h.logger.Error("sign session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"tenant": tn,
		"user":   user,
	})
}
