package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
)

func newTestAuth(t *testing.T, users *memUserStore, admins ...string) (*AuthService, *IdentityService) {
	t.Helper()
	_, rdb := newTestRedis(t)
	identity := NewIdentityService(users, rdb, logger.Nop())
	return NewAuthService(users, rdb, middleware.NewJWTAuth("auth-secret"), identity, admins), identity
}

func TestAuthService_RefreshRotatesTokens(t *testing.T) {
	users := newMemUserStore()
	svc, _ := newTestAuth(t, users)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, models.RegisterRequest{Email: "ana@example.com", Password: "bouquet2026"})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, int(middleware.AccessTokenTTL.Seconds()), rotated.ExpiresIn)

	_, err = svc.RefreshToken(ctx, tokens.RefreshToken)
	var unauthorized *UnauthorizedError
	require.ErrorAs(t, err, &unauthorized, "a refresh token is single use")

	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_LogoutRevokesAndInvalidates(t *testing.T) {
	users := newMemUserStore()
	svc, identity := newTestAuth(t, users)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, models.RegisterRequest{Email: "ana@example.com", Password: "bouquet2026"})
	require.NoError(t, err)
	user, err := users.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	_, err = identity.Lookup(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, users.lookups())

	require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))

	_, err = svc.RefreshToken(ctx, tokens.RefreshToken)
	var unauthorized *UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)

	_, err = identity.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, users.lookups(), "logout drops the identity cell")
}

func TestAuthService_RegisterValidatesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newTestAuth(t, newMemUserStore())
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "not-an-email", Password: "short"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "ana@example.com", Password: "bouquet2026"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, models.RegisterRequest{Email: "ana@example.com", Password: "bouquet2026"})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAuthService_AdminEmailsBootstrap(t *testing.T) {
	users := newMemUserStore()
	existing := users.add("owner@bloomweddings.com", models.RoleCustomer)
	svc, identity := newTestAuth(t, users, " Owner@BloomWeddings.com ", "studio@bloomweddings.com", "nobody@bloomweddings.com")
	ctx := context.Background()

	// Warm the cell so the promotion has to invalidate it.
	before, err := identity.Lookup(ctx, existing.ID)
	require.NoError(t, err)
	require.False(t, before.IsAdmin())

	promoted, err := svc.PromoteAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
	assert.Equal(t, models.RoleAdmin, users.role(existing.ID))

	after, err := identity.Lookup(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, after.IsAdmin())

	again, err := svc.PromoteAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "Studio@bloomweddings.com", Password: "bouquet2026"})
	require.NoError(t, err)
	studio, err := users.GetByEmail(ctx, "studio@bloomweddings.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, studio.Role)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "guest@example.com", Password: "bouquet2026"})
	require.NoError(t, err)
	guest, err := users.GetByEmail(ctx, "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, guest.Role)
}

func TestAuthService_SetRole(t *testing.T) {
	users := newMemUserStore()
	svc, _ := newTestAuth(t, users)
	ctx := context.Background()
	user := users.add("ana@example.com", models.RoleCustomer)

	var verr *ValidationError
	assert.ErrorAs(t, svc.SetRole(ctx, user.ID, "owner"), &verr)

	var notFound *NotFoundError
	assert.ErrorAs(t, svc.SetRole(ctx, uuid.New(), models.RoleAdmin), &notFound)

	require.NoError(t, svc.SetRole(ctx, user.ID, models.RoleAdmin))
	assert.Equal(t, models.RoleAdmin, users.role(user.ID))
}
