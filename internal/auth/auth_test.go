package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:  "test-secret",
		JWTIssuer:  "tareas-test",
		TokenTTL:   60,
		BcryptCost: 4,
		APIKey:     "api-key-123",
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testAuthConfig())
	staffID := uint(7)
	account := &domain.Account{ID: 42, Username: "mzambrano", Email: "m@example.com", Role: domain.RoleCoordinator}

	token, expiresAt, err := tm.Issue(account, &staffID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	user, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), user.AccountID)
	require.NotNil(t, user.StaffID)
	assert.Equal(t, uint(7), *user.StaffID)
	assert.Equal(t, "mzambrano", user.Username)
	assert.Equal(t, domain.RoleCoordinator, user.Role)
}

func TestTokenManager_Rejects(t *testing.T) {
	cfg := testAuthConfig()
	tm := NewTokenManager(cfg)
	account := &domain.Account{ID: 1, Username: "a", Role: domain.RoleStaff}

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(cfg)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue(account, nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testAuthConfig()
		other.JWTSecret = "other"
		token, _, err := NewTokenManager(other).Issue(account, nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := testAuthConfig()
		other.JWTIssuer = "someone-else"
		token, _, err := NewTokenManager(other).Issue(account, nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))

	assert.NoError(t, ValidatePasswordLength("short"))
	assert.ErrorIs(t, ValidatePasswordLength(string(make([]byte, 73))), ErrPasswordTooLong)
}

func TestUserContext_Permissions(t *testing.T) {
	tests := []struct {
		role  domain.UserRoleType
		perm  Permission
		allow bool
	}{
		{domain.RoleSuperuser, PermissionOrganizationManage, true},
		{domain.RoleAdmin, PermissionStaffDelete, true},
		{domain.RoleCoordinator, PermissionDepartmentsWrite, true},
		{domain.RoleCoordinator, PermissionStaffCreate, false},
		{domain.RoleStaff, PermissionTasksWrite, true},
		{domain.RoleStaff, PermissionTasksManage, false},
		{domain.RoleStaff, PermissionStaffDelete, false},
		{domain.UserRoleType("unknown"), PermissionStaffRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			u := &UserContext{Role: tt.role}
			assert.Equal(t, tt.allow, u.HasPermission(tt.perm))
		})
	}

	assert.Len(t, (&UserContext{Role: domain.RoleSuperuser}).Permissions(), len(allPermissions))
	assert.Contains(t, (&UserContext{Role: domain.RoleStaff}).Permissions(), "tasks:read")
}

func TestMiddleware(t *testing.T) {
	cfg := testAuthConfig()
	tm := NewTokenManager(cfg)
	mw := NewMiddleware(cfg, tm, zap.NewNop())

	staffToken, _, err := tm.Issue(&domain.Account{ID: 3, Username: "staff", Role: domain.RoleStaff}, nil)
	require.NoError(t, err)

	var seen *UserContext
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		handler http.Handler
		headers map[string]string
		status  int
		user    string
	}{
		{"missing credentials", mw.Authenticate(ok), nil, http.StatusUnauthorized, ""},
		{"bad scheme", mw.Authenticate(ok), map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, ""},
		{"valid bearer", mw.Authenticate(ok), map[string]string{"Authorization": "Bearer " + staffToken}, http.StatusNoContent, "staff"},
		{"valid api key", mw.Authenticate(ok), map[string]string{"X-API-Key": "api-key-123"}, http.StatusNoContent, "system"},
		{"invalid api key", mw.Authenticate(ok), map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
		{"optional anonymous", mw.OptionalAuthenticate(ok), nil, http.StatusNoContent, ""},
		{"optional invalid", mw.OptionalAuthenticate(ok), map[string]string{"Authorization": "Bearer junk"}, http.StatusNoContent, ""},
		{"optional valid", mw.OptionalAuthenticate(ok), map[string]string{"Authorization": "Bearer " + staffToken}, http.StatusNoContent, "staff"},
		{"permission denied", mw.Authenticate(mw.RequirePermission(PermissionStaffDelete)(ok)), map[string]string{"Authorization": "Bearer " + staffToken}, http.StatusForbidden, ""},
		{"permission granted", mw.Authenticate(mw.RequirePermission(PermissionTasksRead)(ok)), map[string]string{"Authorization": "Bearer " + staffToken}, http.StatusNoContent, "staff"},
		{"superuser only", mw.Authenticate(mw.RequireSuperuser(ok)), map[string]string{"Authorization": "Bearer " + staffToken}, http.StatusForbidden, ""},
		{"superuser via api key", mw.Authenticate(mw.RequireSuperuser(ok)), map[string]string{"X-API-Key": "api-key-123"}, http.StatusNoContent, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.user != "" {
				require.NotNil(t, seen)
				assert.Equal(t, tt.user, seen.Username)
			} else {
				assert.Nil(t, seen)
			}
			if rec.Code >= 400 {
				var problem domain.APIError
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, tt.status, problem.Status)
			}
		})
	}
}

func TestTrackActor(t *testing.T) {
	ctx, actor := TrackActor(context.Background())
	_, ok := actor()
	assert.False(t, ok)

	inner := WithUserContext(ctx, &UserContext{Username: "lgomez", Role: domain.RoleStaff})
	user, ok := FromContext(inner)
	require.True(t, ok)
	assert.Equal(t, "lgomez", user.Username)

	tracked, ok := actor()
	require.True(t, ok)
	assert.Same(t, user, tracked)

	_, ok = FromContext(ctx)
	assert.False(t, ok)
}
