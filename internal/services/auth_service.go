package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/models"
	pkgauth "github.com/calebmartin/daybook/pkg/auth"
	pkglogger "github.com/calebmartin/daybook/pkg/logger"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateLockout(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateRole(ctx context.Context, id int64, role models.Role) (*models.User, error)
	UpdateActive(ctx context.Context, id int64, isActive bool) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdatePreferences(ctx context.Context, id int64, displayName, timezone, theme string) (*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

// RequestMeta carries the request-level context recorded with audit
// events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthService handles authentication business logic
type AuthService struct {
	repo     UserRepository
	sessions *auth.SessionManager
	lockout  auth.LockoutPolicy
	audit    *AuditService
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, sessions *auth.SessionManager, lockout auth.LockoutPolicy, audit *AuditService, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		sessions: sessions,
		lockout:  lockout,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// Login authenticates a user and returns a signed session token.
//
// The checks run in a fixed order: account lookup, lock state, then
// password verification. Lock state is checked before the password so
// that a locked account rejects even correct credentials without
// touching the hash, and a failed attempt against a locked account does
// not advance the failure counter.
func (s *AuthService) Login(ctx context.Context, identifier, password string, meta RequestMeta) (*AuthResponse, error) {
	if identifier = strings.TrimSpace(identifier); identifier == "" {
		s.logger.Warn("login attempt with empty identifier")
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials",
				slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)))
			s.audit.Record(ctx, pkglogger.AuditEvent{
				Action:        models.AuditActionLoginFailed,
				Resource:      models.AuditResourceAuth,
				FailureReason: models.AuditReasonUserNotFound,
				IPAddress:     meta.IPAddress,
				UserAgent:     meta.UserAgent,
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		// The account's lock state is unknown, so fail closed rather
		// than risk verifying a password against a locked account.
		s.logger.Error("failed to look up user for login", slog.Any("error", err))
		return nil, models.ErrServiceUnavailable
	}

	now := s.now()

	if s.lockout.State(user.LockedUntil, now) == auth.Locked {
		s.logger.Info("login rejected: account locked", slog.Int64("user_id", user.ID))
		s.audit.Record(ctx, pkglogger.AuditEvent{
			UserID:        &user.ID,
			Action:        models.AuditActionLoginFailed,
			Resource:      models.AuditResourceAuth,
			FailureReason: models.AuditReasonAccountLocked,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			Success:       false,
		})
		return nil, models.ErrAccountLocked
	}

	if !pkgauth.VerifyPassword(password, user.PasswordHash) {
		return nil, s.recordFailedAttempt(ctx, user, now, meta)
	}

	if !user.IsActive {
		s.logger.Info("login rejected: account inactive", slog.Int64("user_id", user.ID))
		s.audit.Record(ctx, pkglogger.AuditEvent{
			UserID:        &user.ID,
			Action:        models.AuditActionLoginFailed,
			Resource:      models.AuditResourceAuth,
			FailureReason: models.AuditReasonAccountInactive,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			Success:       false,
		})
		return nil, models.ErrAccountInactive
	}

	// Successful login: reset the failure counter and clear any expired
	// lock. These persistence steps are best-effort; a write failure
	// here must not turn a correct password into a rejection.
	attempts, lockedUntil := s.lockout.RecordSuccess()
	if err := s.repo.UpdateLockout(ctx, user.ID, attempts, lockedUntil); err != nil {
		s.logger.Error("failed to reset lockout counters", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("failed to update last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	user.FailedLoginAttempts = attempts
	user.LockedUntil = lockedUntil
	user.LastLoginAt = &now

	token, err := s.sessions.IssueSession(user)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.audit.Record(ctx, pkglogger.AuditEvent{
		UserID:    &user.ID,
		Action:    models.AuditActionLoginSuccess,
		Resource:  models.AuditResourceAuth,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return &AuthResponse{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// recordFailedAttempt applies the failed-login transition and persists
// the updated counters.
func (s *AuthService) recordFailedAttempt(ctx context.Context, user *models.User, now time.Time, meta RequestMeta) error {
	attempts, lockedUntil := s.lockout.RecordFailure(user.FailedLoginAttempts, now)

	if err := s.repo.UpdateLockout(ctx, user.ID, attempts, lockedUntil); err != nil {
		s.logger.Error("failed to persist lockout counters",
			slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	event := pkglogger.AuditEvent{
		UserID:        &user.ID,
		Action:        models.AuditActionLoginFailed,
		Resource:      models.AuditResourceAuth,
		FailureReason: models.AuditReasonBadPassword,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		Success:       false,
		Details: map[string]interface{}{
			"failed_attempts": attempts,
		},
	}

	if lockedUntil != nil {
		event.Action = models.AuditActionAccountLocked
		event.Details["locked_until"] = lockedUntil.UTC().Format(time.RFC3339)
		s.logger.Warn("account locked after repeated failures",
			slog.Int64("user_id", user.ID),
			slog.Int("failed_attempts", attempts))
	} else {
		s.logger.Info("login failed: invalid credentials", slog.Int64("user_id", user.ID))
	}

	s.audit.Record(ctx, event)
	return models.ErrUnauthorized
}

// RefreshSession verifies an existing token and issues a replacement
// carrying the user's current role and preferences. The user record is
// re-fetched so a role change or deactivation takes effect on the next
// refresh rather than waiting out the old token's full lifetime.
func (s *AuthService) RefreshSession(ctx context.Context, tokenString string) (*AuthResponse, error) {
	claims, err := s.sessions.VerifySession(tokenString)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found for session refresh", slog.Int64("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for session refresh",
			slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrServiceUnavailable
	}

	if !user.IsActive {
		s.logger.Info("refresh rejected: account inactive", slog.Int64("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	token, err := s.sessions.RefreshSession(claims, auth.RefreshFields{
		Role:        user.Role,
		IsActive:    user.IsActive,
		Timezone:    user.Timezone,
		Theme:       user.Theme,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		s.logger.Error("failed to refresh session token",
			slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		Token: token,
		User:  userModelToResponse(user),
	}, nil
}

// Logout records the logout event. Session tokens are stateless, so
// the actual invalidation is the handler clearing the cookie.
func (s *AuthService) Logout(ctx context.Context, claims *models.SessionClaims, meta RequestMeta) {
	if claims == nil {
		return
	}

	s.logger.Info("user logged out", slog.Int64("user_id", claims.UserID))
	s.audit.Record(ctx, pkglogger.AuditEvent{
		UserID:    &claims.UserID,
		Action:    models.AuditActionLogout,
		Resource:  models.AuditResourceSession,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})
}
