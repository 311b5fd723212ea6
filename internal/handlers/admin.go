package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/calebmartin/daybook/internal/services"
	pkghttp "github.com/calebmartin/daybook/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the interface for admin operations
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, actor *models.SessionClaims, limit, offset int) ([]*services.UserResponse, error)
	AssignRole(ctx context.Context, actor *models.SessionClaims, targetID int64, newRole models.Role, meta services.RequestMeta) (*services.UserResponse, error)
	SetUserStatus(ctx context.Context, actor *models.SessionClaims, targetID int64, isActive bool, meta services.RequestMeta) (*services.UserResponse, error)
	GetAuditTrail(ctx context.Context, actor *models.SessionClaims, userID *int64, limit, offset int) ([]*models.AuditLog, error)
}

// AdminHandler handles administrative HTTP requests. Route-level
// admin gating happens in the edge middleware; the service layer
// re-checks permissions as defense against misrouting.
type AdminHandler struct {
	service  AdminServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminServiceInterface, ipConfig *pkghttp.IPConfig) *AdminHandler {
	return &AdminHandler{service: service, ipConfig: ipConfig}
}

// AssignRoleRequest represents the request body for a role change
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=PENDING USER ADMIN"`
}

// SetStatusRequest represents the request body for activation changes
type SetStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *AdminHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func targetUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Insufficient privileges")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// ListUsers returns a page of user accounts
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetSessionFromContext(r.Context())
	limit, offset := parsePagination(r)

	users, err := h.service.ListUsers(r.Context(), claims, limit, offset)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// AssignRole changes a user's role
func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetSessionFromContext(r.Context())

	targetID, err := targetUserID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid role")
		return
	}

	user, err := h.service.AssignRole(r.Context(), claims, targetID, role, h.requestMeta(r))
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// SetStatus activates or deactivates an account
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetSessionFromContext(r.Context())

	targetID, err := targetUserID(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.SetUserStatus(r.Context(), claims, targetID, *req.IsActive, h.requestMeta(r))
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// AuditTrail returns recent audit entries, optionally filtered by user
func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetSessionFromContext(r.Context())
	limit, offset := parsePagination(r)

	var userID *int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid user_id filter")
			return
		}
		userID = &parsed
	}

	logs, err := h.service.GetAuditTrail(r.Context(), claims, userID, limit, offset)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs})
}
