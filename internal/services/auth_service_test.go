package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/models"
	pkgauth "github.com/calebmartin/daybook/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-9"

func testSessionManager() *auth.SessionManager {
	return auth.NewSessionManager("test-secret-key-for-auth-service", time.Hour)
}

func newTestUser(t *testing.T) *models.User {
	t.Helper()

	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)

	email := "aki@example.com"
	return &models.User{
		ID:           42,
		Username:     "aki",
		Email:        &email,
		PasswordHash: hash,
		DisplayName:  "Aki",
		Role:         models.RoleUser,
		IsActive:     true,
		Timezone:     "Asia/Tokyo",
		Theme:        "dark",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func newAuthService(repo UserRepository, store *MockAuditLogStore) *AuthService {
	return NewAuthService(repo, testSessionManager(), auth.DefaultLockoutPolicy(), testAuditService(store), testLogger())
}

func lastAuditAction(store *MockAuditLogStore) string {
	if len(store.Entries) == 0 {
		return ""
	}
	return store.Entries[len(store.Entries)-1].Action
}

func TestLogin_Success(t *testing.T) {
	user := newTestUser(t)
	store := &MockAuditLogStore{}
	var lockoutReset, lastLoginSet bool

	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			assert.Equal(t, "aki", identifier)
			return user, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			assert.Equal(t, 0, attempts)
			assert.Nil(t, lockedUntil)
			lockoutReset = true
			return nil
		},
		UpdateLastLoginFunc: func(ctx context.Context, id int64, at time.Time) error {
			lastLoginSet = true
			return nil
		},
	}

	svc := newAuthService(repo, store)

	resp, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(42), resp.User.ID)
	assert.Equal(t, "USER", resp.User.Role)
	assert.True(t, lockoutReset)
	assert.True(t, lastLoginSet)
	assert.Equal(t, models.AuditActionLoginSuccess, lastAuditAction(store))

	// The issued token verifies against the same key
	claims, err := svc.sessions.VerifySession(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestLogin_UnknownUser(t *testing.T) {
	store := &MockAuditLogStore{}
	repo := &MockUserRepository{} // FindByIdentifier defaults to ErrNotFound

	svc := newAuthService(repo, store)

	_, err := svc.Login(context.Background(), "ghost", "whatever1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	require.Len(t, store.Entries, 1)
	assert.Equal(t, models.AuditActionLoginFailed, store.Entries[0].Action)
	assert.Equal(t, models.AuditReasonUserNotFound, store.Entries[0].Details["failure_reason"])
	assert.Nil(t, store.Entries[0].UserID)
}

func TestLogin_EmptyIdentifier(t *testing.T) {
	svc := newAuthService(&MockUserRepository{}, &MockAuditLogStore{})

	_, err := svc.Login(context.Background(), "   ", testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogin_StoreFailureFailsClosed(t *testing.T) {
	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	svc := newAuthService(repo, &MockAuditLogStore{})

	_, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrServiceUnavailable)
}

func TestLogin_BadPasswordIncrementsCounter(t *testing.T) {
	user := newTestUser(t)
	user.FailedLoginAttempts = 2
	store := &MockAuditLogStore{}

	var gotAttempts int
	var gotLockedUntil *time.Time
	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			gotAttempts = attempts
			gotLockedUntil = lockedUntil
			return nil
		},
	}

	svc := newAuthService(repo, store)

	_, err := svc.Login(context.Background(), "aki", "wrong-password-1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	assert.Equal(t, 3, gotAttempts)
	assert.Nil(t, gotLockedUntil)
	assert.Equal(t, models.AuditActionLoginFailed, lastAuditAction(store))
}

func TestLogin_FifthFailureLocksAccount(t *testing.T) {
	user := newTestUser(t)
	user.FailedLoginAttempts = 4
	store := &MockAuditLogStore{}

	var gotAttempts int
	var gotLockedUntil *time.Time
	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			gotAttempts = attempts
			gotLockedUntil = lockedUntil
			return nil
		},
	}

	svc := newAuthService(repo, store)
	start := time.Now()

	_, err := svc.Login(context.Background(), "aki", "wrong-password-1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	assert.Equal(t, 5, gotAttempts)
	require.NotNil(t, gotLockedUntil)
	assert.WithinDuration(t, start.Add(15*time.Minute), *gotLockedUntil, time.Minute)
	assert.Equal(t, models.AuditActionAccountLocked, lastAuditAction(store))
}

func TestLogin_LockedAccountRejectsCorrectPassword(t *testing.T) {
	user := newTestUser(t)
	user.FailedLoginAttempts = 5
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &lockedUntil
	store := &MockAuditLogStore{}

	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			t.Fatal("counters must not change while the account is locked")
			return nil
		},
	}

	svc := newAuthService(repo, store)

	_, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountLocked)

	require.Len(t, store.Entries, 1)
	assert.Equal(t, models.AuditReasonAccountLocked, store.Entries[0].Details["failure_reason"])
}

func TestLogin_ExpiredLockAllowsLogin(t *testing.T) {
	user := newTestUser(t)
	user.FailedLoginAttempts = 5
	expired := time.Now().Add(-time.Minute)
	user.LockedUntil = &expired
	store := &MockAuditLogStore{}

	var lockoutReset bool
	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			assert.Equal(t, 0, attempts)
			assert.Nil(t, lockedUntil)
			lockoutReset = true
			return nil
		},
	}

	svc := newAuthService(repo, store)

	resp, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, lockoutReset)
}

func TestLogin_InactiveAccount(t *testing.T) {
	user := newTestUser(t)
	user.IsActive = false
	store := &MockAuditLogStore{}

	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newAuthService(repo, store)

	_, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountInactive)
	assert.Equal(t, models.AuditReasonAccountInactive, store.Entries[0].Details["failure_reason"])
}

func TestLogin_SuccessPersistFailureStillLogsIn(t *testing.T) {
	user := newTestUser(t)
	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			return user, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			return fmt.Errorf("write timeout")
		},
		UpdateLastLoginFunc: func(ctx context.Context, id int64, at time.Time) error {
			return fmt.Errorf("write timeout")
		},
	}

	svc := newAuthService(repo, &MockAuditLogStore{})

	resp, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

// TestLogin_FullLockoutCycle drives the complete lockout lifecycle
// against a stateful repository: repeated failures lock the account,
// the lock rejects even correct credentials, and after the window
// passes a correct login succeeds and resets the counters.
func TestLogin_FullLockoutCycle(t *testing.T) {
	user := newTestUser(t)
	store := &MockAuditLogStore{}

	repo := &MockUserRepository{
		FindByIdentifierFunc: func(ctx context.Context, identifier string) (*models.User, error) {
			copied := *user
			return &copied, nil
		},
		UpdateLockoutFunc: func(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
			user.FailedLoginAttempts = attempts
			user.LockedUntil = lockedUntil
			return nil
		},
	}

	svc := newAuthService(repo, store)
	now := time.Now()
	svc.now = func() time.Time { return now }

	// Five wrong passwords lock the account
	for i := 0; i < 5; i++ {
		_, err := svc.Login(context.Background(), "aki", "wrong-password-1", RequestMeta{})
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}
	assert.Equal(t, 5, user.FailedLoginAttempts)
	require.NotNil(t, user.LockedUntil)

	// While locked, the correct password is rejected too
	_, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Equal(t, 5, user.FailedLoginAttempts)

	// After the lockout window, the correct password succeeds
	now = now.Add(15*time.Minute + time.Second)

	resp, err := svc.Login(context.Background(), "aki", testPassword, RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 0, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)
	assert.Equal(t, models.AuditActionLoginSuccess, lastAuditAction(store))
}

func TestRefreshSession_ReflectsRoleChange(t *testing.T) {
	user := newTestUser(t)
	svc := newAuthService(&MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			promoted := *user
			promoted.Role = models.RoleAdmin
			return &promoted, nil
		},
	}, &MockAuditLogStore{})

	token, err := svc.sessions.IssueSession(user)
	require.NoError(t, err)

	resp, err := svc.RefreshSession(context.Background(), token)
	require.NoError(t, err)

	claims, err := svc.sessions.VerifySession(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestRefreshSession_InactiveUserRejected(t *testing.T) {
	user := newTestUser(t)
	svc := newAuthService(&MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			deactivated := *user
			deactivated.IsActive = false
			return &deactivated, nil
		},
	}, &MockAuditLogStore{})

	token, err := svc.sessions.IssueSession(user)
	require.NoError(t, err)

	_, err = svc.RefreshSession(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRefreshSession_DeletedUserRejected(t *testing.T) {
	user := newTestUser(t)
	svc := newAuthService(&MockUserRepository{}, &MockAuditLogStore{})

	token, err := svc.sessions.IssueSession(user)
	require.NoError(t, err)

	_, err = svc.RefreshSession(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRefreshSession_GarbageTokenRejected(t *testing.T) {
	svc := newAuthService(&MockUserRepository{}, &MockAuditLogStore{})

	_, err := svc.RefreshSession(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLogout_RecordsAuditEvent(t *testing.T) {
	store := &MockAuditLogStore{}
	svc := newAuthService(&MockUserRepository{}, store)

	claims := &models.SessionClaims{UserID: 42, Role: models.RoleUser}
	svc.Logout(context.Background(), claims, RequestMeta{IPAddress: "10.0.0.1"})

	require.Len(t, store.Entries, 1)
	assert.Equal(t, models.AuditActionLogout, store.Entries[0].Action)
	assert.Equal(t, int64(42), *store.Entries[0].UserID)
}
