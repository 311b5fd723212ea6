package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/calebmartin/daybook/internal/models"
	pkgauth "github.com/calebmartin/daybook/pkg/auth"
	pkglogger "github.com/calebmartin/daybook/pkg/logger"
)

// UserService handles user account business logic
type UserService struct {
	repo   UserRepository
	audit  *AuditService
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, audit *AuditService, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// UserResponse represents a user in the HTTP response. The password
// hash never appears here.
type UserResponse struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       *string `json:"email,omitempty"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	IsActive    bool    `json:"is_active"`
	Timezone    string  `json:"timezone"`
	Theme       string  `json:"theme"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func userModelToResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role.String(),
		IsActive:    user.IsActive,
		Timezone:    user.Timezone,
		Theme:       user.Theme,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		formatted := user.LastLoginAt.UTC().Format(time.RFC3339)
		resp.LastLoginAt = &formatted
	}
	return resp
}

// RegisterRequest carries the fields for account creation
type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Register creates a new account in the PENDING role. Pending accounts
// can log in and see their approval status but nothing else until an
// admin promotes them.
func (s *UserService) Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         models.RolePending,
		IsActive:     true,
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		user.Email = &email
	}
	if user.DisplayName == "" {
		user.DisplayName = username
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("registration rejected: username or email taken",
				slog.String("username", pkglogger.SanitizedIdentifier(username)))
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	s.audit.Record(ctx, pkglogger.AuditEvent{
		UserID:    &created.ID,
		Action:    models.AuditActionRegister,
		Resource:  models.AuditResourceUser,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return userModelToResponse(created), nil
}

// GetUserByID fetches a single user
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return userModelToResponse(user), nil
}

// ChangePassword replaces a user's password after verifying the
// current one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string, meta RequestMeta) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for password change",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrServiceUnavailable
	}

	if !pkgauth.VerifyPassword(currentPassword, user.PasswordHash) {
		s.logger.Info("password change rejected: bad current password", slog.Int64("user_id", userID))
		s.audit.Record(ctx, pkglogger.AuditEvent{
			UserID:        &userID,
			Action:        models.AuditActionPasswordChange,
			Resource:      models.AuditResourceUser,
			FailureReason: models.AuditReasonBadPassword,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			Success:       false,
		})
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error("failed to update password",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.Int64("user_id", userID))
	s.audit.Record(ctx, pkglogger.AuditEvent{
		UserID:    &userID,
		Action:    models.AuditActionPasswordChange,
		Resource:  models.AuditResourceUser,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return nil
}

// PreferencesRequest carries updatable profile fields
type PreferencesRequest struct {
	DisplayName string
	Timezone    string
	Theme       string
}

// UpdatePreferences updates the user's display preferences. Changes
// propagate into the session on the next refresh.
func (s *UserService) UpdatePreferences(ctx context.Context, userID int64, req PreferencesRequest) (*UserResponse, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, models.ErrBadRequest
	}

	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, models.ErrBadRequest
	}

	switch req.Theme {
	case "light", "dark":
	default:
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdatePreferences(ctx, userID, displayName, req.Timezone, req.Theme)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update preferences",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(updated), nil
}
