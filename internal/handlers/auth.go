package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/calebmartin/daybook/internal/services"
	pkghttp "github.com/calebmartin/daybook/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, identifier, password string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshSession(ctx context.Context, tokenString string) (*services.AuthResponse, error)
	Logout(ctx context.Context, claims *models.SessionClaims, meta services.RequestMeta)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service       AuthServiceInterface
	ipConfig      *pkghttp.IPConfig
	cookieConfig  auth.CookieConfig
	sessionExpiry time.Duration
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig, sessionExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		service:       service,
		ipConfig:      ipConfig,
		cookieConfig:  cookieConfig,
		sessionExpiry: sessionExpiry,
	}
}

// LoginRequest represents the request body for login. The identifier
// is a username or email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,min=1,max=255"`
	Password   string `json:"password" validate:"required"`
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Login handles user login. On success the session token is both set
// as an httpOnly cookie and returned in the body for API clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)

	authResp, err := h.service.Login(r.Context(), req.Identifier, req.Password, h.requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrServiceUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountLocked),
			errors.Is(err, models.ErrAccountInactive):
			// Account state never leaks through the response; the audit
			// trail records the distinction.
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, authResp.Token, h.sessionExpiry, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout clears the session cookie and records the event
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetSessionFromContext(r.Context())
	h.service.Logout(r.Context(), claims, h.requestMeta(r))

	auth.ClearSessionCookie(w, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Session returns the verified claims for the current session. The
// edge middleware has already verified the token, so this is a pure
// read of the request context.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetSessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      claims.UserID,
		"role":         claims.Role.String(),
		"is_active":    claims.IsActive,
		"timezone":     claims.Timezone,
		"theme":        claims.Theme,
		"display_name": claims.DisplayName,
	})
}

// Refresh exchanges the current session token for a fresh one carrying
// the user's current role and preferences.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := auth.GetSessionCookie(r)
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	authResp, err := h.service.RefreshSession(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrServiceUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Session refresh failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, authResp.Token, h.sessionExpiry, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}
