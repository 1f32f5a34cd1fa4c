package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/featureflags"
	"github.com/aryan0dhankhar/aptlease/internal/repository/memory"
)

// failingTransition makes the guarded status update error out
type failingTransition struct {
	*memory.ApartmentRepository
	err error
}

func (f *failingTransition) TransitionStatus(context.Context, string, domain.ApartmentStatus, domain.ApartmentStatus) (bool, error) {
	return false, f.err
}

// racingApartments lets another writer change the status right after it has
// been read, the window between the availability check and the update
type racingApartments struct {
	*memory.ApartmentRepository
	raceTo domain.ApartmentStatus
}

func (r *racingApartments) GetStatus(ctx context.Context, id string) (domain.ApartmentStatus, error) {
	status, err := r.ApartmentRepository.GetStatus(ctx, id)
	if err != nil {
		return status, err
	}
	if _, err := r.ApartmentRepository.SetStatus(ctx, id, r.raceTo); err != nil {
		return "", err
	}
	return status, nil
}

// failingDelete makes contract compensation fail
type failingDelete struct {
	*memory.ContractRepository
}

func (f *failingDelete) Delete(context.Context, string) error {
	return errors.New("connection reset")
}

func newLeaseService(apartments domain.ApartmentRepository, contracts domain.ContractRepository, flags featureflags.Source) *LeaseService {
	if flags == nil {
		flags = featureflags.Static{}
	}
	return NewLeaseService(apartments, contracts, nil, nil, flags, discardLogger())
}

func TestCreateLeaseSuccess(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)
	ctx := context.Background()

	result, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "tenant-1"))
	require.NoError(t, err)

	assert.Equal(t, domain.LeaseSucceeded, result.Outcome)
	assert.Equal(t, domain.StatusOccupied, result.ApartmentStatus)
	require.NotNil(t, result.Contract)
	assert.Equal(t, "C1", result.Contract.ID)
	assert.True(t, result.Contract.IsActive)

	status, err := store.Apartments().GetStatus(ctx, "A101")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, status)

	active, err := store.Contracts().ListActiveByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateLeaseRejectsUnavailableApartmentWithoutWrites(t *testing.T) {
	for _, status := range []domain.ApartmentStatus{domain.StatusOccupied, domain.StatusUnderMaintenance} {
		t.Run(string(status), func(t *testing.T) {
			store := seedStore(t, status)
			svc := newLeaseService(store.Apartments(), store.Contracts(), nil)
			ctx := context.Background()

			result, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "tenant-1"))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConflict)
			assert.Equal(t, domain.LeaseRejectedConflict, result.Outcome)
			assert.Nil(t, result.Contract)

			active, err := store.Contracts().ListActive(ctx)
			require.NoError(t, err)
			assert.Empty(t, active, "no contract may be written")

			got, err := store.Apartments().GetStatus(ctx, "A101")
			require.NoError(t, err)
			assert.Equal(t, status, got)
		})
	}
}

func TestCreateLeaseSecondAttemptConflicts(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)
	ctx := context.Background()

	_, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "tenant-1"))
	require.NoError(t, err)

	result, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C2", "tenant-2"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.LeaseRejectedConflict, result.Outcome)

	active, err := store.Contracts().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "C1", active[0].ID)
}

func TestCreateLeaseMissingApartment(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)

	req := leaseRequest("C1", "tenant-1")
	req.ApartmentID = "Z999"
	_, err := svc.CreateLease(context.Background(), managerPrincipal, req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateLeaseUnknownTenantIsInvalidReference(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)
	ctx := context.Background()

	_, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "ghost"))
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	status, err := store.Apartments().GetStatus(ctx, "A101")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, status, "apartment untouched")
}

func TestCreateLeaseToNonTenantIsInvalidReference(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)
	ctx := context.Background()

	result, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "mgr-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	assert.NotEqual(t, domain.LeaseSucceeded, result.Outcome)

	active, err := store.Contracts().ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	status, err := store.Apartments().GetStatus(ctx, "A101")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, status)
}

func TestCreateLeaseDuplicateContractID(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	ctx := context.Background()
	require.NoError(t, store.Apartments().Create(ctx, &domain.Apartment{
		ID: "A102", TypeID: "STD", ManagerID: "mgr-1", Number: "102", Area: 40, Price: 700, Status: domain.StatusAvailable,
	}))
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)

	_, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "tenant-1"))
	require.NoError(t, err)

	req := leaseRequest("C1", "tenant-2")
	req.ApartmentID = "A102"
	result, err := svc.CreateLease(ctx, managerPrincipal, req)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.LeaseRejectedConflict, result.Outcome)

	status, err := store.Apartments().GetStatus(ctx, "A102")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, status)
}

func TestCreateLeaseValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.LeaseRequest)
	}{
		{"missing contract id", func(r *domain.LeaseRequest) { r.ContractID = "" }},
		{"missing tenant", func(r *domain.LeaseRequest) { r.TenantID = " " }},
		{"zero deposit", func(r *domain.LeaseRequest) { r.DepositAmount = 0 }},
		{"negative deposit", func(r *domain.LeaseRequest) { r.DepositAmount = -5 }},
		{"deposit beyond column precision", func(r *domain.LeaseRequest) { r.DepositAmount = 1e20 }},
		{"bad start date", func(r *domain.LeaseRequest) { r.StartDate = "2025-02-30" }},
		{"bad end date", func(r *domain.LeaseRequest) { r.EndDate = "31/12/2025" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore(t, domain.StatusAvailable)
			svc := newLeaseService(store.Apartments(), store.Contracts(), nil)

			req := leaseRequest("C1", "tenant-1")
			tt.mutate(&req)
			_, err := svc.CreateLease(context.Background(), managerPrincipal, req)
			assert.ErrorIs(t, err, domain.ErrValidation)

			active, _ := store.Contracts().ListActive(context.Background())
			assert.Empty(t, active)
		})
	}
}

func TestCreateLeaseDateOrderBehindFlag(t *testing.T) {
	req := leaseRequest("C1", "tenant-1")
	req.StartDate, req.EndDate = "2025-12-31", "2025-01-01"

	t.Run("flag off accepts reversed dates", func(t *testing.T) {
		store := seedStore(t, domain.StatusAvailable)
		svc := newLeaseService(store.Apartments(), store.Contracts(), featureflags.Static{})
		_, err := svc.CreateLease(context.Background(), managerPrincipal, req)
		assert.NoError(t, err)
	})

	t.Run("flag on rejects reversed dates", func(t *testing.T) {
		store := seedStore(t, domain.StatusAvailable)
		svc := newLeaseService(store.Apartments(), store.Contracts(), featureflags.Static{featureflags.LeaseDateOrder: true})
		_, err := svc.CreateLease(context.Background(), managerPrincipal, req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCreateLeaseRequiresManager(t *testing.T) {
	for _, p := range []domain.Principal{adminPrincipal, tenantPrincipal, {}} {
		store := seedStore(t, domain.StatusAvailable)
		svc := newLeaseService(store.Apartments(), store.Contracts(), nil)

		_, err := svc.CreateLease(context.Background(), p, leaseRequest("C1", "tenant-1"))
		assert.ErrorIs(t, err, domain.ErrForbidden, p.Role.String())
	}
}

func TestCreateLeasePartialFailure(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	storeErr := errors.New("deadlock detected")
	apartments := &failingTransition{ApartmentRepository: store.Apartments(), err: storeErr}
	svc := newLeaseService(apartments, store.Contracts(), nil)
	ctx := context.Background()

	result, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "tenant-1"))
	require.Error(t, err)

	var pf *domain.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "C1", pf.ContractID)
	assert.ErrorIs(t, err, storeErr, "raw store error is preserved")
	assert.Equal(t, domain.LeasePartialFailure, result.Outcome)
	require.NotNil(t, result.Contract)
	assert.Equal(t, "C1", result.Contract.ID)

	active, err := store.Contracts().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1, "contract stays committed")

	status, err := store.Apartments().GetStatus(ctx, "A101")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, status, "status left unchanged")
}

func TestCreateLeaseLostRaceCompensates(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	apartments := &racingApartments{ApartmentRepository: store.Apartments(), raceTo: domain.StatusUnderMaintenance}
	svc := newLeaseService(apartments, store.Contracts(), nil)
	ctx := context.Background()

	result, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest("C1", "tenant-1"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, domain.IsPartialFailure(err))
	assert.Equal(t, domain.LeaseRejectedConflict, result.Outcome)

	active, err := store.Contracts().ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active, "contract rolled back")
}

func TestCreateLeaseFailedCompensationIsPartialFailure(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	apartments := &racingApartments{ApartmentRepository: store.Apartments(), raceTo: domain.StatusUnderMaintenance}
	contracts := &failingDelete{ContractRepository: store.Contracts()}
	svc := newLeaseService(apartments, contracts, nil)

	result, err := svc.CreateLease(context.Background(), managerPrincipal, leaseRequest("C1", "tenant-1"))
	assert.True(t, domain.IsPartialFailure(err))
	assert.Equal(t, domain.LeasePartialFailure, result.Outcome)
}

func TestCreateLeaseConcurrentAtMostOneSucceeds(t *testing.T) {
	store := seedStore(t, domain.StatusAvailable)
	ctx := context.Background()
	const n = 16
	for i := 0; i < n; i++ {
		require.NoError(t, store.Identities().Create(ctx, &domain.Identity{
			ID: fmt.Sprintf("racer-%d", i), Email: fmt.Sprintf("racer-%d@example.com", i), Role: domain.RoleTenant,
		}))
		require.NoError(t, store.Tenants().Create(ctx, &domain.TenantProfile{
			UserID: fmt.Sprintf("racer-%d", i), FullName: fmt.Sprintf("Racer %d", i),
		}))
	}
	svc := newLeaseService(store.Apartments(), store.Contracts(), nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateLease(ctx, managerPrincipal, leaseRequest(fmt.Sprintf("C%d", i), fmt.Sprintf("racer-%d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	active, err := store.Contracts().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	status, err := store.Apartments().GetStatus(ctx, "A101")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, status)
}
