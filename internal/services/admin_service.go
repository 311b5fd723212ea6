package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/calebmartin/daybook/internal/authz"
	"github.com/calebmartin/daybook/internal/models"
	pkglogger "github.com/calebmartin/daybook/pkg/logger"
)

// AdminService handles administrative user management
type AdminService struct {
	repo     UserRepository
	audit    *AuditService
	notifier ApprovalNotifier
	logger   *slog.Logger
}

// NewAdminService creates a new AdminService. The notifier may be nil
// when email delivery is disabled.
func NewAdminService(repo UserRepository, audit *AuditService, notifier ApprovalNotifier, logger *slog.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// ListUsers returns a page of user accounts
func (s *AdminService) ListUsers(ctx context.Context, actor *models.SessionClaims, limit, offset int) ([]*UserResponse, error) {
	if actor == nil || !authz.IsAdmin(actor.Role) {
		return nil, models.ErrForbidden
	}

	limit, offset = clampPage(limit, offset)

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userModelToResponse(user))
	}
	return responses, nil
}

// AssignRole changes a user's role. Assignment is restricted to admins
// and is monotonic in privilege; promoting a pending account also
// triggers a best-effort approval notification.
func (s *AdminService) AssignRole(ctx context.Context, actor *models.SessionClaims, targetID int64, newRole models.Role, meta RequestMeta) (*UserResponse, error) {
	if actor == nil || !authz.CanAssignRole(actor.Role, newRole) {
		s.logger.Warn("role assignment denied",
			slog.Int64("target_id", targetID),
			slog.String("new_role", string(newRole)))
		return nil, models.ErrForbidden
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for role change",
			slog.Int64("target_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	wasPending := target.Role == models.RolePending

	updated, err := s.repo.UpdateRole(ctx, targetID, newRole)
	if err != nil {
		s.logger.Error("failed to update role",
			slog.Int64("target_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("role changed",
		slog.Int64("actor_id", actor.UserID),
		slog.Int64("target_id", targetID),
		slog.String("old_role", string(target.Role)),
		slog.String("new_role", string(newRole)))
	s.audit.Record(ctx, pkglogger.AuditEvent{
		UserID:    &actor.UserID,
		Action:    models.AuditActionRoleChange,
		Resource:  models.AuditResourceUser,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
		Details: map[string]interface{}{
			"target_id": targetID,
			"old_role":  string(target.Role),
			"new_role":  string(newRole),
		},
	})

	// Approval email is best-effort; delivery failure never rolls back
	// the role change.
	if wasPending && newRole.AtLeast(models.RoleUser) && s.notifier != nil && updated.Email != nil {
		if err := s.notifier.SendApprovalEmail(ctx, *updated.Email, updated.DisplayName); err != nil {
			s.logger.Error("failed to send approval email",
				slog.Int64("target_id", targetID), slog.Any("error", err))
		}
	}

	return userModelToResponse(updated), nil
}

// SetUserStatus activates or deactivates an account. A deactivated
// account keeps its data but cannot log in or refresh a session.
func (s *AdminService) SetUserStatus(ctx context.Context, actor *models.SessionClaims, targetID int64, isActive bool, meta RequestMeta) (*UserResponse, error) {
	if actor == nil || !authz.IsAdmin(actor.Role) {
		return nil, models.ErrForbidden
	}

	// Admins cannot deactivate themselves; that would strand the
	// instance with no active administrator.
	if actor.UserID == targetID && !isActive {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdateActive(ctx, targetID, isActive)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update account status",
			slog.Int64("target_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account status changed",
		slog.Int64("actor_id", actor.UserID),
		slog.Int64("target_id", targetID),
		slog.Bool("is_active", isActive))
	s.audit.Record(ctx, pkglogger.AuditEvent{
		UserID:    &actor.UserID,
		Action:    models.AuditActionStatusChange,
		Resource:  models.AuditResourceUser,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
		Details: map[string]interface{}{
			"target_id": targetID,
			"is_active": isActive,
		},
	})

	return userModelToResponse(updated), nil
}

// GetAuditTrail returns audit entries, either for one user or across
// all users, gated on the audit read permission.
func (s *AdminService) GetAuditTrail(ctx context.Context, actor *models.SessionClaims, userID *int64, limit, offset int) ([]*models.AuditLog, error) {
	if actor == nil || !authz.HasPermission(actor.Role, authz.PermReadAuditLog, false) {
		return nil, models.ErrForbidden
	}

	if userID != nil {
		return s.audit.GetUserAuditTrail(ctx, *userID, limit, offset)
	}
	return s.audit.GetRecentAuditTrail(ctx, limit, offset)
}
