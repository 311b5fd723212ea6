package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calebmartin/daybook/internal/auth"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/calebmartin/daybook/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, identifier, password string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshSessionFunc func(ctx context.Context, tokenString string) (*services.AuthResponse, error)
	LogoutCalled       bool
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password, meta)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) RefreshSession(ctx context.Context, tokenString string) (*services.AuthResponse, error) {
	if m.RefreshSessionFunc != nil {
		return m.RefreshSessionFunc(ctx, tokenString)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.SessionClaims, meta services.RequestMeta) {
	m.LogoutCalled = true
}

func newAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, nil, auth.CookieConfig{}, time.Hour)
}

func loginBody(t *testing.T, identifier, password string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestLoginHandler_Success(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
			assert.Equal(t, "aki", identifier)
			return &services.AuthResponse{
				Token: "signed-token",
				User:  &services.UserResponse{ID: 42, Username: "aki", Role: "USER"},
			}, nil
		},
	}

	handler := newAuthHandler(service)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "aki", "correct-horse-9"))

	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// Session cookie set alongside the JSON body
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	var resp services.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "signed-token", resp.Token)
}

func TestLoginHandler_AccountStateCollapsesToGeneric(t *testing.T) {
	// Locked, inactive, and plain bad-password all yield the same 401
	for _, svcErr := range []error{
		models.ErrUnauthorized,
		models.ErrAccountLocked,
		models.ErrAccountInactive,
	} {
		service := &MockAuthService{
			LoginFunc: func(ctx context.Context, identifier, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
				return nil, svcErr
			},
		}

		handler := newAuthHandler(service)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "aki", "wrong"))

		handler.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authentication failed")
	}
}

func TestLoginHandler_StoreOutageReturns503(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, identifier, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
			return nil, models.ErrServiceUnavailable
		},
	}

	handler := newAuthHandler(service)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "aki", "correct-horse-9"))

	handler.Login(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginHandler_MalformedBody(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not-json"))

	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MissingFields(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", loginBody(t, "", ""))

	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	service := &MockAuthService{}
	handler := newAuthHandler(service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)

	claims := &models.SessionClaims{UserID: 42, Role: models.RoleUser}
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, claims)

	handler.Logout(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, service.LogoutCalled)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestSessionHandler(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)

	claims := &models.SessionClaims{
		UserID:      42,
		Role:        models.RoleUser,
		IsActive:    true,
		Timezone:    "Asia/Tokyo",
		Theme:       "dark",
		DisplayName: "Aki",
	}
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, claims)

	handler.Session(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, float64(42), body["user_id"])
	assert.Equal(t, "USER", body["role"])
	assert.Equal(t, "Asia/Tokyo", body["timezone"])
}

func TestSessionHandler_NoSession(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)

	handler.Session(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshHandler_UsesCookieToken(t *testing.T) {
	service := &MockAuthService{
		RefreshSessionFunc: func(ctx context.Context, tokenString string) (*services.AuthResponse, error) {
			assert.Equal(t, "old-token", tokenString)
			return &services.AuthResponse{
				Token: "new-token",
				User:  &services.UserResponse{ID: 42},
			}, nil
		},
	}

	handler := newAuthHandler(service)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "old-token"})

	handler.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "new-token", cookies[0].Value)
}

func TestRefreshHandler_InvalidToken(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)

	handler.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
