package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/calebmartin/daybook/internal/services"
	pkgauth "github.com/calebmartin/daybook/pkg/auth"
	pkghttp "github.com/calebmartin/daybook/pkg/http"
)

// UserServiceInterface defines the interface for user account logic
type UserServiceInterface interface {
	Register(ctx context.Context, req services.RegisterRequest, meta services.RequestMeta) (*services.UserResponse, error)
	GetUserByID(ctx context.Context, id int64) (*services.UserResponse, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string, meta services.RequestMeta) error
	UpdatePreferences(ctx context.Context, userID int64, req services.PreferencesRequest) (*services.UserResponse, error)
}

// UserHandler handles user account HTTP requests
type UserHandler struct {
	service  UserServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface, ipConfig *pkghttp.IPConfig) *UserHandler {
	return &UserHandler{service: service, ipConfig: ipConfig}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// PreferencesRequest represents the request body for preference updates
type PreferencesRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Timezone    string `json:"timezone" validate:"required"`
	Theme       string `json:"theme" validate:"required,oneof=light dark"`
}

func (h *UserHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Register handles account creation. New accounts start in the PENDING
// role and wait for admin approval.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), services.RegisterRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}, h.requestMeta(r))
	if err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteBadRequest(w, validationErr.Error())
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username or email already in use")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration details")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

// Me returns the full profile of the authenticated user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetSessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword replaces the authenticated user's password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetSessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword, h.requestMeta(r))
	if err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteBadRequest(w, validationErr.Error())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.Is(err, models.ErrServiceUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// UpdatePreferences updates display name, timezone, and theme
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetSessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	var req PreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdatePreferences(r.Context(), claims.UserID, services.PreferencesRequest{
		DisplayName: req.DisplayName,
		Timezone:    req.Timezone,
		Theme:       req.Theme,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid preferences")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}
