package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/calebmartin/daybook/internal/models"
	pkglogger "github.com/calebmartin/daybook/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id int64) (*models.User, error)
	FindByIdentifierFunc  func(ctx context.Context, identifier string) (*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	ListFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateLockoutFunc     func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	UpdateLastLoginFunc   func(ctx context.Context, id int64, at time.Time) error
	UpdateRoleFunc        func(ctx context.Context, id int64, role models.Role) (*models.User, error)
	UpdateActiveFunc      func(ctx context.Context, id int64, isActive bool) (*models.User, error)
	UpdatePasswordFunc    func(ctx context.Context, id int64, passwordHash string) error
	UpdatePreferencesFunc func(ctx context.Context, id int64, displayName, timezone, theme string) (*models.User, error)
	CountByRoleFunc       func(ctx context.Context, role models.Role) (int, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if m.FindByIdentifierFunc != nil {
		return m.FindByIdentifierFunc(ctx, identifier)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) UpdateLockout(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	if m.UpdateLockoutFunc != nil {
		return m.UpdateLockoutFunc(ctx, id, attempts, lockedUntil)
	}
	return nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return nil
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateActive(ctx context.Context, id int64, isActive bool) (*models.User, error) {
	if m.UpdateActiveFunc != nil {
		return m.UpdateActiveFunc(ctx, id, isActive)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) UpdatePreferences(ctx context.Context, id int64, displayName, timezone, theme string) (*models.User, error) {
	if m.UpdatePreferencesFunc != nil {
		return m.UpdatePreferencesFunc(ctx, id, displayName, timezone, theme)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	if m.CountByRoleFunc != nil {
		return m.CountByRoleFunc(ctx, role)
	}
	return 0, nil
}

// MockAuditLogStore implements AuditLogStore for testing
type MockAuditLogStore struct {
	CreateFunc     func(ctx context.Context, entry *models.AuditLog) error
	ListByUserFunc func(ctx context.Context, userID int64, limit, offset int) ([]*models.AuditLog, error)
	ListRecentFunc func(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)

	Entries []*models.AuditLog
}

func (m *MockAuditLogStore) Create(ctx context.Context, entry *models.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockAuditLogStore) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditLogStore) ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

// MockApprovalNotifier implements ApprovalNotifier for testing
type MockApprovalNotifier struct {
	SendApprovalEmailFunc func(ctx context.Context, email, displayName string) error

	Sent []string
}

func (m *MockApprovalNotifier) SendApprovalEmail(ctx context.Context, email, displayName string) error {
	if m.SendApprovalEmailFunc != nil {
		return m.SendApprovalEmailFunc(ctx, email, displayName)
	}
	m.Sent = append(m.Sent, email)
	return nil
}

// testLogger returns a logger that discards output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAuditService wires an AuditService over the given store with
// discarded log output.
func testAuditService(store AuditLogStore) *AuditService {
	logger := testLogger()
	return NewAuditService(store, pkglogger.NewAuditLogger(logger), logger)
}
