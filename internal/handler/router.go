package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/aptlease/internal/observability/metrics"
	"github.com/aryan0dhankhar/aptlease/internal/security"
	"github.com/aryan0dhankhar/aptlease/internal/security/audit"
	"github.com/aryan0dhankhar/aptlease/internal/security/middleware"
	"github.com/aryan0dhankhar/aptlease/internal/security/ratelimit"
)

const maxBodyBytes = 1 << 20

// RouterDeps is everything NewRouter needs to assemble the API
type RouterDeps struct {
	Accounts   *AccountHandler
	RoomTypes  *RoomTypeHandler
	Apartments *ApartmentHandler
	Tenants    *TenantHandler
	Contracts  *ContractHandler
	Health     *HealthHandler

	Verifier middleware.TokenVerifier
	Authz    *security.AuthorizationService
	Audit    *audit.Logger
	Limiter  *ratelimit.Limiter
	// LoginLimit caps login and registration attempts per client address per minute
	LoginLimit     int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler for the whole API
func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	if d.Authz == nil {
		d.Authz = security.NewAuthorizationService(log)
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(log)
	}

	authenticate := middleware.Authenticate(d.Verifier, log)
	rateLimit := middleware.RateLimit(d.Limiter, log)
	strict := middleware.StrictRateLimit(d.Limiter, d.LoginLimit, time.Minute)

	public := func(h http.HandlerFunc) http.Handler {
		return strict(rateLimit(h))
	}
	protected := func(perm security.Permission, h http.HandlerFunc) http.Handler {
		return authenticate(rateLimit(middleware.RequirePermission(d.Authz, perm, d.Audit)(h)))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", d.Health.Health)
	mux.HandleFunc("GET /readyz", d.Health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/register", public(d.Accounts.Register))
	mux.Handle("POST /api/auth/login", public(d.Accounts.Login))
	mux.Handle("POST /api/auth/logout", protected(security.PermLogout, d.Accounts.Logout))

	mux.Handle("POST /api/user", protected(security.PermManageAccounts, d.Accounts.CreateUser))
	mux.Handle("DELETE /api/user/{uid}", protected(security.PermManageAccounts, d.Accounts.DeleteUser))

	mux.Handle("GET /api/roomtype", protected(security.PermManageRoomTypes, d.RoomTypes.List))
	mux.Handle("POST /api/roomtype", protected(security.PermManageRoomTypes, d.RoomTypes.Create))
	mux.Handle("GET /api/roomtype/{id}", protected(security.PermManageRoomTypes, d.RoomTypes.Get))
	mux.Handle("PATCH /api/roomtype/{id}", protected(security.PermManageRoomTypes, d.RoomTypes.Update))
	mux.Handle("DELETE /api/roomtype/{id}", protected(security.PermManageRoomTypes, d.RoomTypes.Delete))

	mux.Handle("GET /api/apartments", protected(security.PermManageApartment, d.Apartments.List))
	mux.Handle("POST /api/apartments", protected(security.PermManageApartment, d.Apartments.Create))
	mux.Handle("GET /api/apartments/{id}", protected(security.PermManageApartment, d.Apartments.Get))
	mux.Handle("PATCH /api/apartments/{id}", protected(security.PermManageApartment, d.Apartments.Update))
	mux.Handle("DELETE /api/apartments/{id}", protected(security.PermManageApartment, d.Apartments.Delete))
	mux.Handle("PATCH /api/apartments/{id}/status", protected(security.PermManageApartment, d.Apartments.SetStatus))

	mux.Handle("GET /api/tenants", protected(security.PermManageTenants, d.Tenants.List))
	mux.Handle("GET /api/tenants/{id}", protected(security.PermManageTenants, d.Tenants.Get))
	mux.Handle("PATCH /api/tenants/{id}", protected(security.PermManageTenants, d.Tenants.Update))
	mux.Handle("DELETE /api/tenants/{id}", protected(security.PermDeleteTenant, d.Tenants.Delete))

	mux.Handle("POST /api/contracts", protected(security.PermCreateLease, d.Contracts.Create))

	// The metrics middleware must wrap the mux directly so r.Pattern is set
	// on the request it holds.
	var h http.Handler = metrics.HTTPMetricsMiddleware(mux)
	h = middleware.ValidateJSONContentType(log)(h)
	h = middleware.LimitBody(maxBodyBytes)(h)
	h = middleware.CORS(d.AllowedOrigins)(h)
	h = middleware.RequestID(log)(h)
	return h
}
