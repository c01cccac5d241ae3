package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebds/proofstream/internal/auth"
	"github.com/calebds/proofstream/internal/models"
)

const secret = "test-secret"

func TestSessionToken_RoundTrip(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()

	token, err := auth.GenerateSessionToken(userID, tenantID, "mira@example.com", models.RoleTenant, secret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseSessionToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, "mira@example.com", claims.Email)
	assert.Equal(t, models.RoleTenant, claims.Role)
}

func TestSessionToken_WrongSecret(t *testing.T) {
	token, err := auth.GenerateSessionToken(uuid.New(), uuid.New(), "a@b.c", models.RoleTenant, secret, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseSessionToken(token, "other-secret")
	assert.Error(t, err)
}

func TestSessionToken_Expired(t *testing.T) {
	token, err := auth.GenerateSessionToken(uuid.New(), uuid.New(), "a@b.c", models.RoleTenant, secret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseSessionToken(token, secret)
	assert.Error(t, err)
}

func TestGalleryToken_RoundTrip(t *testing.T) {
	tenantID, galleryID := uuid.New(), uuid.New()

	token, err := auth.GenerateGalleryToken(tenantID, galleryID, "client-a", secret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseGalleryToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, galleryID, claims.GalleryID)
	assert.Equal(t, "client-a", claims.ClientUsername)
}

// A session token must not parse as a gallery token with valid bindings:
// the claim shapes differ and the zero values would fail the tenant and
// gallery match downstream anyway.
func TestGalleryToken_SessionTokenHasNoGalleryBinding(t *testing.T) {
	token, err := auth.GenerateSessionToken(uuid.New(), uuid.New(), "a@b.c", models.RoleTenant, secret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseGalleryToken(token, secret)
	if err == nil {
		assert.Equal(t, uuid.Nil, claims.GalleryID)
	}
}
