package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "proofstream"

// SessionClaims is the payload of a tenant or master-admin session token.
// The middleware reads it back on every request — this is how the server
// knows who is calling without a DB hit per request (the tenant's status
// and billing state are still re-checked, see middleware.SessionAuth).
type SessionClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	jwt.RegisteredClaims
}

// GallerySessionClaims is the payload of a client gallery session — the
// token a gallery client gets after presenting the gallery password. It
// is pinned to one tenant and one gallery; presenting it anywhere else
// is a 401, never a wider grant.
type GallerySessionClaims struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	GalleryID      uuid.UUID `json:"gallery_id"`
	ClientUsername string    `json:"client_username"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs an HS256 session token for a platform user.
func GenerateSessionToken(userID, tenantID uuid.UUID, email, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		TenantID: tenantID,
		Email:    email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates signature, expiry, and signing method.
func ParseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, hmacKeyFunc(secret))
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}
	return claims, nil
}

// GenerateGalleryToken signs a client gallery session token.
func GenerateGalleryToken(tenantID, galleryID uuid.UUID, clientUsername, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := GallerySessionClaims{
		TenantID:       tenantID,
		GalleryID:      galleryID,
		ClientUsername: clientUsername,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign gallery token: %w", err)
	}
	return signed, nil
}

// ParseGalleryToken validates a client gallery session token.
func ParseGalleryToken(tokenString, secret string) (*GallerySessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &GallerySessionClaims{}, hmacKeyFunc(secret))
	if err != nil {
		return nil, fmt.Errorf("parse gallery token: %w", err)
	}
	claims, ok := token.Claims.(*GallerySessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid gallery claims")
	}
	return claims, nil
}

// hmacKeyFunc rejects any token not signed with HMAC before signature
// verification runs — closes the classic algorithm-confusion hole.
func hmacKeyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}
