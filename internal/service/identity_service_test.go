package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/repository/memory"
	"github.com/aryan0dhankhar/aptlease/internal/security/auth"
)

func newIdentityService(store *memory.Store) *IdentityService {
	return NewIdentityService(store.Identities(), auth.NewTokenManager("secret", "test", time.Hour), nil, discardLogger()).
		WithHashCost(bcrypt.MinCost)
}

func TestCreateIdentityAndAuthenticate(t *testing.T) {
	store := memory.New()
	svc := newIdentityService(store)
	ctx := context.Background()

	identity, err := svc.CreateIdentity(ctx, " Alice@Example.com ", "Password123", domain.RoleTenant)
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.NotEqual(t, "Password123", identity.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "Password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateIdentityRejectsDuplicateEmail(t *testing.T) {
	svc := newIdentityService(memory.New())
	ctx := context.Background()

	_, err := svc.CreateIdentity(ctx, "bob@example.com", "Password123", domain.RoleTenant)
	require.NoError(t, err)

	_, err = svc.CreateIdentity(ctx, "bob@example.com", "Password456", domain.RoleManager)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateIdentityValidation(t *testing.T) {
	svc := newIdentityService(memory.New())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		role     domain.Role
	}{
		{"empty email", "", "Password123", domain.RoleTenant},
		{"bad email", "not-an-email", "Password123", domain.RoleTenant},
		{"short password", "a@example.com", "123", domain.RoleTenant},
		{"no role", "a@example.com", "Password123", domain.RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateIdentity(ctx, tt.email, tt.password, tt.role)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestTokenRoundTripAndRevocation(t *testing.T) {
	svc := newIdentityService(memory.New())
	ctx := context.Background()

	identity, err := svc.CreateIdentity(ctx, "mgr@example.com", "Password123", domain.RoleManager)
	require.NoError(t, err)

	token, expiresAt, err := svc.IssueToken(identity)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	p, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, p.UserID)
	assert.Equal(t, domain.RoleManager, p.Role)
	assert.NotEmpty(t, p.TokenID)

	require.NoError(t, svc.RevokeToken(ctx, p))
	_, err = svc.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	svc := newIdentityService(memory.New())
	other := auth.NewTokenManager("another-secret", "test", time.Hour)

	token, _, err := other.GenerateToken(&domain.Identity{ID: "u1", Email: "u1@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestDeleteIdentity(t *testing.T) {
	svc := newIdentityService(memory.New())
	ctx := context.Background()

	identity, err := svc.CreateIdentity(ctx, "gone@example.com", "Password123", domain.RoleTenant)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteIdentity(ctx, identity.ID))
	assert.ErrorIs(t, svc.DeleteIdentity(ctx, identity.ID), domain.ErrNotFound)
}

func TestVerifyTokenRejectsDeletedAccount(t *testing.T) {
	svc := newIdentityService(memory.New())
	ctx := context.Background()

	identity, err := svc.CreateIdentity(ctx, "leaving@example.com", "Password123", domain.RoleManager)
	require.NoError(t, err)
	token, _, err := svc.IssueToken(identity)
	require.NoError(t, err)

	_, err = svc.VerifyToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteIdentity(ctx, identity.ID))
	_, err = svc.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, ErrAccountGone)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

// failingManagers rejects every manager row insert
type failingManagers struct {
	*memory.ManagerRepository
}

func (failingManagers) Create(context.Context, *domain.Manager) error {
	return errors.New("disk full")
}

func TestRegisterTenant(t *testing.T) {
	store := memory.New()
	identity := newIdentityService(store)
	svc := NewAccountService(identity, store.Tenants(), store.Managers(), nil, nil, discardLogger())
	ctx := context.Background()

	profile, err := svc.RegisterTenant(ctx, TenantRegistration{
		Email: "t@example.com", Password: "Password123", FullName: "Tina",
		Gender: "F", DateOfBirth: "24/12/1999", PhoneNumber: "0900", IdentityCardNumber: "ID-1",
	})
	require.NoError(t, err)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, "1999-12-24", *profile.DateOfBirth)

	login, err := svc.Login(ctx, "t@example.com", "Password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTenant, login.Identity.Role)
	assert.NotEmpty(t, login.Token)
	tenantProfile, ok := login.Profile.(*domain.TenantProfile)
	require.True(t, ok)
	assert.Equal(t, "Tina", tenantProfile.FullName)
}

func TestRegisterTenantValidation(t *testing.T) {
	store := memory.New()
	svc := NewAccountService(newIdentityService(store), store.Tenants(), store.Managers(), nil, nil, discardLogger())

	base := TenantRegistration{
		Email: "t@example.com", Password: "Password123", FullName: "Tina",
		Gender: "F", DateOfBirth: "24/12/1999", PhoneNumber: "0900", IdentityCardNumber: "ID-1",
	}

	missing := base
	missing.PhoneNumber = ""
	_, err := svc.RegisterTenant(context.Background(), missing)
	assert.ErrorIs(t, err, domain.ErrValidation)

	badDate := base
	badDate.DateOfBirth = "1999-12-24"
	_, err = svc.RegisterTenant(context.Background(), badDate)
	assert.ErrorIs(t, err, domain.ErrValidation)

	impossible := base
	impossible.DateOfBirth = "31/02/1999"
	_, err = svc.RegisterTenant(context.Background(), impossible)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateManagerRollsBackIdentityOnProfileFailure(t *testing.T) {
	store := memory.New()
	identity := newIdentityService(store)
	svc := NewAccountService(identity, store.Tenants(), failingManagers{store.Managers()}, nil, nil, discardLogger())
	ctx := context.Background()

	_, err := svc.CreateManager(ctx, adminPrincipal, "m@example.com", "Password123")
	require.Error(t, err)

	_, err = store.Identities().GetByEmail(ctx, "m@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound, "identity removed after profile failure")
}

func TestCreateManagerAndDeleteAccount(t *testing.T) {
	store := memory.New()
	svc := NewAccountService(newIdentityService(store), store.Tenants(), store.Managers(), nil, nil, discardLogger())
	ctx := context.Background()

	_, err := svc.CreateManager(ctx, managerPrincipal, "m@example.com", "Password123")
	assert.ErrorIs(t, err, domain.ErrForbidden, "only admins create managers")

	manager, err := svc.CreateManager(ctx, adminPrincipal, "m@example.com", "Password123")
	require.NoError(t, err)

	login, err := svc.Login(ctx, "m@example.com", "Password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, login.Identity.Role)
	assert.Equal(t, manager, login.Profile)

	require.NoError(t, svc.DeleteAccount(ctx, adminPrincipal, manager.UserID))
	assert.ErrorIs(t, svc.DeleteAccount(ctx, adminPrincipal, manager.UserID), domain.ErrNotFound)
}
