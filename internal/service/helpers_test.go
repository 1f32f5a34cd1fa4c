package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/repository/memory"
)

var (
	managerPrincipal = domain.Principal{UserID: "mgr-1", Email: "mgr@example.com", Role: domain.RoleManager}
	adminPrincipal   = domain.Principal{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}
	tenantPrincipal  = domain.Principal{UserID: "tenant-1", Email: "t1@example.com", Role: domain.RoleTenant}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedStore creates a manager, two tenants, a room type and apartment A101
// with the given status
func seedStore(t *testing.T, status domain.ApartmentStatus) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	for _, identity := range []*domain.Identity{
		{ID: "mgr-1", Email: "mgr@example.com", Role: domain.RoleManager},
		{ID: "tenant-1", Email: "t1@example.com", Role: domain.RoleTenant},
		{ID: "tenant-2", Email: "t2@example.com", Role: domain.RoleTenant},
	} {
		require.NoError(t, store.Identities().Create(ctx, identity))
	}
	require.NoError(t, store.Managers().Create(ctx, &domain.Manager{UserID: "mgr-1", Email: "mgr@example.com"}))
	require.NoError(t, store.Tenants().Create(ctx, &domain.TenantProfile{UserID: "tenant-1", FullName: "Alice"}))
	require.NoError(t, store.Tenants().Create(ctx, &domain.TenantProfile{UserID: "tenant-2", FullName: "Bob"}))
	require.NoError(t, store.RoomTypes().Create(ctx, &domain.RoomType{ID: "STD", Name: "Standard", BasePrice: 500}))
	require.NoError(t, store.Apartments().Create(ctx, &domain.Apartment{
		ID: "A101", TypeID: "STD", ManagerID: "mgr-1", Number: "101", Area: 40, Price: 700, Status: status,
	}))
	return store
}

func leaseRequest(contractID, tenantID string) domain.LeaseRequest {
	return domain.LeaseRequest{
		ContractID:    contractID,
		TenantID:      tenantID,
		ApartmentID:   "A101",
		StartDate:     "2025-01-01",
		EndDate:       "2025-12-31",
		DepositAmount: 1000,
	}
}
