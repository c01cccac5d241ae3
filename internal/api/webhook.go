package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calebds/proofstream/internal/models"
	"github.com/calebds/proofstream/internal/repository"
)

// parseUUID is lenient on purpose: a malformed id becomes uuid.Nil,
// which the directory lookup treats as not-found.
func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// signatureHeader carries the hex HMAC-SHA256 of the raw body, keyed
// with the shared webhook secret.
const signatureHeader = "X-Billing-Signature"

// BillingWebhookHandler ingests payment-provider events. The provider
// retries on non-2xx, so events the handler cannot act on (unknown
// account, unknown type) are acknowledged with 200 and logged instead
// of bounced forever.
type BillingWebhookHandler struct {
	directory repository.Directory
	secret    string
	logger    *zap.Logger
}

func NewBillingWebhookHandler(directory repository.Directory, secret string, logger *zap.Logger) *BillingWebhookHandler {
	return &BillingWebhookHandler{directory: directory, secret: secret, logger: logger}
}

type billingEvent struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	// TenantID is only present on account.created, which links a fresh
	// payment account to the tenant that started onboarding.
	TenantID string `json:"tenant_id"`
	// Status is the provider's subscription state on subscription.updated.
	Status string `json:"status"`
}

// Handle processes POST /v1/webhooks/billing.
func (h *BillingWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event billingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.apply(c, event); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *BillingWebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (h *BillingWebhookHandler) apply(c *gin.Context, event billingEvent) error {
	ctx := c.Request.Context()

	switch event.Type {
	case "account.created":
		t, err := h.directory.SystemGetTenant(ctx, parseUUID(event.TenantID))
		if err != nil {
			return err
		}
		if t == nil {
			h.logger.Warn("billing event for unknown tenant",
				zap.String("type", event.Type), zap.String("tenant_id", event.TenantID))
			return nil
		}
		return h.directory.SystemSetPaymentAccount(ctx, t.ID, event.AccountID)

	case "account.onboarded":
		t, err := h.directory.SystemGetTenantByPaymentAccount(ctx, event.AccountID)
		if err != nil {
			return err
		}
		if t == nil {
			h.logger.Warn("billing event for unknown account",
				zap.String("type", event.Type), zap.String("account_id", event.AccountID))
			return nil
		}
		return h.directory.SystemMarkOnboardingComplete(ctx, t.ID)

	case "subscription.updated":
		t, err := h.directory.SystemGetTenantByPaymentAccount(ctx, event.AccountID)
		if err != nil {
			return err
		}
		if t == nil {
			h.logger.Warn("billing event for unknown account",
				zap.String("type", event.Type), zap.String("account_id", event.AccountID))
			return nil
		}
		status, ok := billingStatusFor(event.Status)
		if !ok {
			h.logger.Warn("unknown subscription status", zap.String("status", event.Status))
			return nil
		}
		return h.directory.SystemUpdateBillingStatus(ctx, t.ID, status)

	default:
		h.logger.Info("ignoring billing event", zap.String("type", event.Type))
		return nil
	}
}

// billingStatusFor maps the provider's subscription states onto ours.
func billingStatusFor(provider string) (string, bool) {
	switch provider {
	case "active", "trialing":
		return models.BillingActive, true
	case "past_due", "unpaid":
		return models.BillingPastDue, true
	case "canceled", "incomplete_expired":
		return models.BillingCanceled, true
	case "incomplete":
		return models.BillingPending, true
	default:
		return "", false
	}
}
