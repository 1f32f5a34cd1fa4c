package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/repository/memory"
)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Identities().Create(ctx, &domain.Identity{ID: "mgr", Email: "m@example.com", Role: domain.RoleManager}))
	require.NoError(t, store.Identities().Create(ctx, &domain.Identity{ID: "ten", Email: "t@example.com", Role: domain.RoleTenant}))
	require.NoError(t, store.Tenants().Create(ctx, &domain.TenantProfile{UserID: "ten", FullName: "Tenant"}))
	require.NoError(t, store.RoomTypes().Create(ctx, &domain.RoomType{ID: "STD", Name: "Standard", BasePrice: 100}))

	apartments := []struct {
		id     string
		status domain.ApartmentStatus
	}{
		{"A1", domain.StatusOccupied},  // consistent, has contract
		{"A2", domain.StatusAvailable}, // consistent
		{"A3", domain.StatusOccupied},  // no contract
		{"A4", domain.StatusAvailable}, // contract but not occupied
	}
	for _, a := range apartments {
		require.NoError(t, store.Apartments().Create(ctx, &domain.Apartment{
			ID: a.id, TypeID: "STD", ManagerID: "mgr", Number: a.id, Area: 10, Price: 100, Status: a.status,
		}))
	}
	for _, c := range []struct{ id, apt string }{{"C1", "A1"}, {"C4", "A4"}} {
		require.NoError(t, store.Contracts().Create(ctx, &domain.Contract{
			ID: c.id, TenantID: "ten", ApartmentID: c.apt, StartDate: "2025-01-01", EndDate: "2025-12-31",
			DepositAmount: 100, IsActive: true,
		}))
	}
	return store
}

func TestFindDrift(t *testing.T) {
	store := seed(t)
	w := NewReconcileWorker(store.Apartments(), store.Contracts(), slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)

	drifts, err := w.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, drifts, 2)

	assert.Equal(t, "A3", drifts[0].ApartmentID)
	assert.Equal(t, DriftOccupiedWithoutContract, drifts[0].Kind)

	assert.Equal(t, "A4", drifts[1].ApartmentID)
	assert.Equal(t, DriftContractNotOccupied, drifts[1].Kind)
	assert.Equal(t, []string{"C4"}, drifts[1].ContractIDs)
}

func TestCheckDoesNotRepair(t *testing.T) {
	store := seed(t)
	w := NewReconcileWorker(store.Apartments(), store.Contracts(), slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	ctx := context.Background()

	_, err := w.Check(ctx)
	require.NoError(t, err)

	status, err := store.Apartments().GetStatus(ctx, "A3")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, status)
}

func TestStartStopsOnCancel(t *testing.T) {
	store := seed(t)
	w := NewReconcileWorker(store.Apartments(), store.Contracts(), slog.New(slog.NewTextHandler(io.Discard, nil)), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
