package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/featureflags"
	"github.com/aryan0dhankhar/aptlease/internal/repository/memory"
	"github.com/aryan0dhankhar/aptlease/internal/security/auth"
	"github.com/aryan0dhankhar/aptlease/internal/security/ratelimit"
	"github.com/aryan0dhankhar/aptlease/internal/service"
	"github.com/aryan0dhankhar/aptlease/pkg/cache"
)

type testAPI struct {
	t       *testing.T
	server  *httptest.Server
	store   *memory.Store
	manager string
	admin   string
}

type brokenTransition struct {
	*memory.ApartmentRepository
}

func (brokenTransition) TransitionStatus(context.Context, string, domain.ApartmentStatus, domain.ApartmentStatus) (bool, error) {
	return false, errors.New("connection reset by peer")
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithStore(t, memory.New(), nil)
}

// newTestAPIWithStore serves the full router over store. A nil apartments
// repository uses the store's own.
func newTestAPIWithStore(t *testing.T, store *memory.Store, apartments domain.ApartmentRepository) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if apartments == nil {
		apartments = store.Apartments()
	}

	identity := service.NewIdentityService(
		store.Identities(),
		auth.NewTokenManager("test-secret", "aptlease-test", time.Hour),
		auth.NewCacheRevocationStore(cache.New()),
		log,
	).WithHashCost(bcrypt.MinCost)
	accounts := service.NewAccountService(identity, store.Tenants(), store.Managers(), nil, nil, log)
	leases := service.NewLeaseService(apartments, store.Contracts(), nil, nil, featureflags.Static{}, log)
	tenants := service.NewTenantService(store.Tenants(), store.Contracts(), identity, nil, nil, log)
	roomTypes := service.NewRoomTypeService(store.RoomTypes(), nil, cache.New(), time.Minute, log)
	apartmentSvc := service.NewApartmentService(apartments, nil, log)

	limiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	router := NewRouter(RouterDeps{
		Accounts:   NewAccountHandler(accounts, identity, log),
		RoomTypes:  NewRoomTypeHandler(roomTypes, log),
		Apartments: NewApartmentHandler(apartmentSvc, log),
		Tenants:    NewTenantHandler(tenants, log),
		Contracts:  NewContractHandler(leases, log),
		Health:     NewHealthHandler(PingFunc(func(context.Context) error { return nil }), nil, log),
		Verifier:   identity,
		Limiter:    limiter,
		LoginLimit: 100,
		Logger:     log,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	for _, acct := range []struct {
		email string
		role  domain.Role
	}{
		{"admin@example.com", domain.RoleAdmin},
		{"mgr@example.com", domain.RoleManager},
	} {
		created, err := identity.CreateIdentity(ctx, acct.email, "Password123", acct.role)
		require.NoError(t, err)
		require.NoError(t, store.Managers().Create(ctx, &domain.Manager{UserID: created.ID, Email: created.Email}))
	}

	api := &testAPI{t: t, server: server, store: store}
	api.admin = api.login("admin@example.com", "Password123")
	api.manager = api.login("mgr@example.com", "Password123")
	return api
}

func (a *testAPI) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, status, body)
	return body["token"].(string)
}

func (a *testAPI) registerTenant(email, name string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/register", "", map[string]string{
		"email":        email,
		"password":     "Password123",
		"fullName":     name,
		"gender":       "female",
		"dob":          "15/04/1995",
		"phoneNumber":  "0900000000",
		"idCardNumber": "ID-" + name,
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	return body["user"].(map[string]any)["uid"].(string)
}

func (a *testAPI) seedApartment() {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/roomtype", a.admin, map[string]any{
		"type_id": "STD", "type_name": "Standard", "base_price": 500,
	})
	require.Equal(a.t, http.StatusCreated, status, body)

	status, body = a.do(http.MethodPost, "/api/apartments", a.manager, map[string]any{
		"apartment_id": "A101", "type_id": "STD", "apartment_number": "101", "area": 40, "price": 700,
	})
	require.Equal(a.t, http.StatusCreated, status, body)
}

func contractBody(id, tenantID string) map[string]any {
	return map[string]any{
		"contract_id":    id,
		"tenant_id":      tenantID,
		"apartment_id":   "A101",
		"start_date":     "2025-01-01",
		"end_date":       "2025-12-31",
		"deposit_amount": 1000,
	}
}

func TestLeaseAndTenantDeletionFlow(t *testing.T) {
	api := newTestAPI(t)
	api.seedApartment()
	t1 := api.registerTenant("t1@example.com", "Alice")
	t2 := api.registerTenant("t2@example.com", "Bob")

	status, body := api.do(http.MethodPost, "/api/contracts", api.manager, contractBody("C1", t1))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Occupied", body["apartment_status"])
	assert.Equal(t, "C1", body["contract"].(map[string]any)["contract_id"])

	status, body = api.do(http.MethodPost, "/api/contracts", api.manager, contractBody("C2", t2))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])

	status, body = api.do(http.MethodGet, "/api/apartments/A101", api.manager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Occupied", body["data"].(map[string]any)["status"])

	status, body = api.do(http.MethodDelete, "/api/tenants/"+t1, api.manager, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.EqualValues(t, 1, body["activeContracts"])

	status, _ = api.do(http.MethodDelete, "/api/tenants/"+t2, api.manager, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodDelete, "/api/tenants/"+t2, api.manager, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(http.MethodGet, "/api/tenants", api.manager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["totalCount"])

	status, body = api.do(http.MethodGet, "/api/tenants/"+t1, api.manager, nil)
	require.Equal(t, http.StatusOK, status)
	contracts := body["data"].(map[string]any)["contracts"].([]any)
	assert.Len(t, contracts, 1)
}

func TestContractValidationAndNotFound(t *testing.T) {
	api := newTestAPI(t)
	api.seedApartment()
	t1 := api.registerTenant("t1@example.com", "Alice")

	bad := contractBody("C1", t1)
	bad["deposit_amount"] = 0
	status, _ := api.do(http.MethodPost, "/api/contracts", api.manager, bad)
	assert.Equal(t, http.StatusBadRequest, status)

	missing := contractBody("C1", t1)
	missing["apartment_id"] = "NOPE"
	status, _ = api.do(http.MethodPost, "/api/contracts", api.manager, missing)
	assert.Equal(t, http.StatusNotFound, status)

	ghost := contractBody("C1", "no-such-tenant")
	status, _ = api.do(http.MethodPost, "/api/contracts", api.manager, ghost)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	api := newTestAPI(t)
	api.seedApartment()

	huge := contractBody("C1", "t1")
	huge["contract_id"] = strings.Repeat("a", maxBodyBytes+1)
	status, body := api.do(http.MethodPost, "/api/contracts", api.manager, huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, false, body["success"])
}

func TestLeaseToNonTenantIdentity(t *testing.T) {
	api := newTestAPI(t)
	api.seedApartment()

	mgr, err := api.store.Identities().GetByEmail(context.Background(), "mgr@example.com")
	require.NoError(t, err)
	status, _ := api.do(http.MethodPost, "/api/contracts", api.manager, contractBody("C1", mgr.ID))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := api.do(http.MethodGet, "/api/apartments/A101", api.manager, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Available", body["data"].(map[string]any)["status"])
}

func TestPartialFailureResponse(t *testing.T) {
	store := memory.New()
	api := newTestAPIWithStore(t, store, brokenTransition{store.Apartments()})
	api.seedApartment()
	t1 := api.registerTenant("t1@example.com", "Alice")

	status, body := api.do(http.MethodPost, "/api/contracts", api.manager, contractBody("C1", t1))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "C1", body["contract"].(map[string]any)["contract_id"])
	assert.Contains(t, body["apartment_error"], "connection reset")
}

func TestAuthenticationAndRoles(t *testing.T) {
	api := newTestAPI(t)
	api.registerTenant("t1@example.com", "Alice")
	tenant := api.login("t1@example.com", "Password123")

	status, _ := api.do(http.MethodGet, "/api/apartments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodGet, "/api/apartments", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodPost, "/api/contracts", tenant, contractBody("C1", "x"))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/api/roomtype", api.manager, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodGet, "/api/tenants", api.admin, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "t1@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodPost, "/api/auth/logout", tenant, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPost, "/api/auth/logout", tenant, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked token is rejected")
}

func TestAdminAccountManagement(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodPost, "/api/user", api.admin, map[string]string{
		"email": "mgr2@example.com", "password": "Password123",
	})
	require.Equal(t, http.StatusCreated, status, body)
	uid := body["userId"].(string)

	status, body = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "mgr2@example.com", "password": "Password123"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "manager", body["user"].(map[string]any)["role"])

	status, _ = api.do(http.MethodPost, "/api/user", api.admin, map[string]string{
		"email": "mgr2@example.com", "password": "Password123",
	})
	assert.Equal(t, http.StatusConflict, status)

	mgr2 := api.login("mgr2@example.com", "Password123")
	status, _ = api.do(http.MethodGet, "/api/apartments", mgr2, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodDelete, "/api/user/"+uid, api.admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodDelete, "/api/user/"+uid, api.admin, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodGet, "/api/apartments", mgr2, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "token of a deleted account is rejected")
}

func TestApartmentStatusAndCatalogConflicts(t *testing.T) {
	api := newTestAPI(t)
	api.seedApartment()

	status, _ := api.do(http.MethodPatch, "/api/apartments/A101/status", api.manager, map[string]string{"status": "Demolished"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := api.do(http.MethodPatch, "/api/apartments/A101/status", api.manager, map[string]string{"status": "UnderMaintenance"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "UnderMaintenance", body["data"].(map[string]any)["status"])

	status, _ = api.do(http.MethodPost, "/api/roomtype", api.admin, map[string]any{"type_id": "STD", "type_name": "Again", "base_price": 1})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodDelete, "/api/roomtype/STD", api.admin, nil)
	assert.Equal(t, http.StatusConflict, status, "room type still referenced by A101")
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = api.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "not configured", body["checks"].(map[string]any)["redis"])

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHealthHandler(PingFunc(func(context.Context) error { return errors.New("refused") }), nil, log)
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
