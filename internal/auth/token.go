package auth

import (
	"fmt"
	"time"

	"github.com/calebmartin/daybook/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// SessionVerifier validates a session token and reconstructs the
// session claims. Verification is pure computation over the token, the
// signing key, and the clock, so it can run in the edge environment
// with no database access.
type SessionVerifier interface {
	VerifySession(tokenString string) (*models.SessionClaims, error)
}

// EdgeVerifier is the restricted-environment implementation of
// SessionVerifier. It holds only the signing key and performs no I/O.
type EdgeVerifier struct {
	secret []byte
}

// NewEdgeVerifier creates a verifier from the shared signing key.
func NewEdgeVerifier(secret string) *EdgeVerifier {
	return &EdgeVerifier{secret: []byte(secret)}
}

// VerifySession parses and validates a session token. Bad signatures,
// expired tokens, and structurally malformed payloads (including
// unknown role values) all collapse to models.ErrUnauthorized; a
// partial or default session is never returned.
func (v *EdgeVerifier) VerifySession(tokenString string) (*models.SessionClaims, error) {
	if tokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, models.ErrUnauthorized
	}

	// The payload must parse into the exact session shape
	if claims.UserID <= 0 || !claims.Role.Valid() {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// RefreshFields carries the mutable session fields for a token refresh.
// The caller must have re-fetched them from the user store; the codec
// itself never queries the store.
type RefreshFields struct {
	Role        models.Role
	IsActive    bool
	Timezone    string
	Theme       string
	DisplayName string
}

// SessionManager is the full-environment session codec: it can issue
// and refresh tokens in addition to verifying them. Issuance only ever
// follows a successful credential check, which is why it lives behind
// the store-backed authentication path.
type SessionManager struct {
	*EdgeVerifier
	expiry time.Duration
}

// NewSessionManager creates a SessionManager signing with the shared
// key and issuing tokens valid for the given duration.
func NewSessionManager(secret string, expiry time.Duration) *SessionManager {
	return &SessionManager{
		EdgeVerifier: NewEdgeVerifier(secret),
		expiry:       expiry,
	}
}

// IssueSession creates a signed session token for an authenticated
// user. The token carries the safe subset of user fields; the password
// hash never enters the payload.
func (m *SessionManager) IssueSession(user *models.User) (string, error) {
	now := time.Now()

	claims := &models.SessionClaims{
		UserID:      user.ID,
		Role:        user.Role,
		IsActive:    user.IsActive,
		Timezone:    user.Timezone,
		Theme:       user.Theme,
		DisplayName: user.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// RefreshSession issues a replacement token for a verified session,
// with the mutable fields supplied explicitly by the caller. The
// replacement gets a fresh issuance and expiry; the original is never
// mutated in place.
func (m *SessionManager) RefreshSession(claims *models.SessionClaims, fields RefreshFields) (string, error) {
	if claims == nil || claims.UserID <= 0 {
		return "", models.ErrUnauthorized
	}
	if !fields.Role.Valid() {
		return "", fmt.Errorf("refresh with invalid role: %q", fields.Role)
	}

	now := time.Now()

	refreshed := &models.SessionClaims{
		UserID:      claims.UserID,
		Role:        fields.Role,
		IsActive:    fields.IsActive,
		Timezone:    fields.Timezone,
		Theme:       fields.Theme,
		DisplayName: fields.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshed)

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refreshed token: %w", err)
	}

	return tokenString, nil
}
