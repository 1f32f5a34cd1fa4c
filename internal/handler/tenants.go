package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/service"
)

// TenantHandler serves the manager-facing /api/tenants endpoints
type TenantHandler struct {
	tenants *service.TenantService
	logger  *slog.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants *service.TenantService, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{tenants: tenants, logger: logger}
}

type tenantPatch struct {
	FullName           *string `json:"fullname"`
	PhoneNumber        *string `json:"phone_number"`
	IdentityCardNumber *string `json:"identity_card_number"`
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.tenants.ListTenants(r.Context(), principal(r))
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", envelope{"data": list, "totalCount": len(list)})
}

// Get returns the profile and contract history, newest first
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.tenants.GetTenant(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", envelope{
		"data": envelope{"profile": detail.Profile, "contracts": detail.Contracts},
	})
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch tenantPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	profile, err := h.tenants.UpdateTenant(r.Context(), principal(r), r.PathValue("id"), domain.TenantProfileUpdate{
		FullName:           patch.FullName,
		PhoneNumber:        patch.PhoneNumber,
		IdentityCardNumber: patch.IdentityCardNumber,
	})
	if err != nil {
		writeError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, http.StatusOK, "tenant updated", envelope{"data": profile})
}

// Delete handles DELETE /api/tenants/{id}. A tenant with active contracts is
// refused with 409 and the active contract count.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := h.tenants.DeleteTenant(r.Context(), principal(r), id)
	if err != nil {
		var payload envelope
		if result != nil && result.ActiveContracts > 0 && errors.Is(err, domain.ErrConflict) {
			payload = envelope{"activeContracts": result.ActiveContracts}
		}
		writeError(w, h.logger, err, payload)
		return
	}
	writeSuccess(w, http.StatusOK, "tenant deleted", envelope{"tenantId": id})
}
