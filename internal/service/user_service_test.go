package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/repository/memory"
)

func newUserService(t *testing.T) (*UserService, *memory.UserStore) {
	t.Helper()
	store := memory.NewUserStore()
	svc, err := NewUserService(store, memory.NewSessionStore(), 16, TokenTTL{Access: time.Hour, Refresh: 24 * time.Hour}, zap.NewNop())
	require.NoError(t, err)
	return svc, store
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	user, err := svc.Register(ctx, "Jane", " Jane@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	_, err = svc.Register(ctx, "Jane", "jane@example.com", "secret1")
	assert.ErrorIs(t, err, model.ErrEmailTaken)

	_, _, err = svc.Login(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	tokens, logged, err := svc.Login(ctx, "JANE@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Access)
	assert.Equal(t, user.ID, logged.ID)
	assert.Equal(t, model.ProviderLocal, logged.Provider)

	me, err := svc.Authenticate(ctx, tokens.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	require.NoError(t, svc.Logout(ctx, tokens.Access, tokens.Refresh))
	_, err = svc.Authenticate(ctx, tokens.Access)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, _, err = svc.Refresh(ctx, tokens.Refresh)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newUserService(t)

	tests := []struct {
		name, userName, email, password string
	}{
		{name: "short password", userName: "a", email: "a@example.com", password: "12345"},
		{name: "no name", userName: " ", email: "a@example.com", password: "123456"},
		{name: "bad email", userName: "a", email: "not-an-email", password: "123456"},
		{name: "empty email", userName: "a", email: "", password: "123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	admin, err := svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	again, err := svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	user, err := svc.Register(ctx, "Bob", "bob@example.com", "bobbob")
	require.NoError(t, err)

	// прогреваем кэш, повышение роли должно его сбросить
	cached, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, cached.IsAdmin())

	_, err = svc.EnsureAdmin(ctx, "", "bob@example.com", "")
	require.NoError(t, err)

	promoted, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
}

func TestRefreshRotatesTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	user, err := svc.Register(ctx, "Jane", "jane@example.com", "secret1")
	require.NoError(t, err)
	first, _, err := svc.Login(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Access, first.Refresh)

	// refresh токен не годится как токен доступа
	_, err = svc.Authenticate(ctx, first.Refresh)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.Authenticate(ctx, "refresh:"+first.Refresh)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	second, refreshed, err := svc.Refresh(ctx, first.Refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.ID)
	assert.NotEqual(t, first.Refresh, second.Refresh)

	me, err := svc.Authenticate(ctx, second.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	// повторное использование погашенного токена
	_, _, err = svc.Refresh(ctx, first.Refresh)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, _, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, _, err = svc.Refresh(ctx, second.Refresh)
	require.NoError(t, err)
}

func TestRefreshTTLNotShorterThanAccess(t *testing.T) {
	svc, err := NewUserService(memory.NewUserStore(), memory.NewSessionStore(), 1, TokenTTL{Access: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.RefreshTTL())
}
