package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/service"
)

// ContractHandler serves POST /api/contracts
type ContractHandler struct {
	leases *service.LeaseService
	logger *slog.Logger
}

// NewContractHandler creates a new contract handler
func NewContractHandler(leases *service.LeaseService, logger *slog.Logger) *ContractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractHandler{leases: leases, logger: logger}
}

// CreateContractRequest is the lease assignment body
type CreateContractRequest struct {
	ContractID    string  `json:"contract_id"`
	TenantID      string  `json:"tenant_id"`
	ApartmentID   string  `json:"apartment_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	DepositAmount float64 `json:"deposit_amount"`
}

// Create assigns an apartment to a tenant. A partial failure answers 500 but
// still returns the committed contract so an operator can reconcile it.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to decode contract request", slog.String("error", err.Error()))
		writeError(w, h.logger, err, nil)
		return
	}

	result, err := h.leases.CreateLease(r.Context(), principal(r), domain.LeaseRequest{
		ContractID:    req.ContractID,
		TenantID:      req.TenantID,
		ApartmentID:   req.ApartmentID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		var pf *domain.PartialFailureError
		if errors.As(err, &pf) {
			writeFailure(w, http.StatusInternalServerError,
				"contract created but apartment status could not be updated",
				envelope{"contract": result.Contract, "apartment_error": pf.Cause.Error()},
			)
			return
		}
		writeError(w, h.logger, err, nil)
		return
	}

	writeSuccess(w, http.StatusCreated, "contract created", envelope{
		"contract":         result.Contract,
		"apartment_status": result.ApartmentStatus,
	})
}
