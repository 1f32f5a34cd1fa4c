package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in the store
const DateLayout = "2006-01-02"

// Contract is a lease of one apartment to one tenant
type Contract struct {
	ID            string  `json:"contract_id"`
	TenantID      string  `json:"tenant_id"`
	ApartmentID   string  `json:"apartment_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	DepositAmount float64 `json:"deposit_amount"`
	IsActive      bool    `json:"is_active"`

	// Apartment is populated only by history listings
	Apartment *ApartmentSummary `json:"apartment,omitempty"`
}

// ApartmentSummary is the apartment projection joined into contract history
type ApartmentSummary struct {
	ID     string  `json:"apartment_id"`
	Number string  `json:"apartment_number"`
	Price  float64 `json:"price"`
}

// ContractRepository defines data access for contracts
type ContractRepository interface {
	Create(ctx context.Context, contract *Contract) error
	Delete(ctx context.Context, id string) error
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*Contract, error)
	// ListByTenant returns the tenant's history, newest start date first
	ListByTenant(ctx context.Context, tenantID string) ([]*Contract, error)
	ListActive(ctx context.Context) ([]*Contract, error)
}

// LeaseRequest is the input of the lease assignment workflow
type LeaseRequest struct {
	ContractID    string
	TenantID      string
	ApartmentID   string
	StartDate     string
	EndDate       string
	DepositAmount float64
}

// MaxDepositAmount is the largest value the deposit_amount NUMERIC(14, 2) column holds
const MaxDepositAmount = 999_999_999_999.99

// Validate checks presence and shape of every field. Date ordering is not
// checked here; see ValidateDateOrder.
func (r LeaseRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ContractID) == "" {
		missing = append(missing, "contract_id")
	}
	if strings.TrimSpace(r.TenantID) == "" {
		missing = append(missing, "tenant_id")
	}
	if strings.TrimSpace(r.ApartmentID) == "" {
		missing = append(missing, "apartment_id")
	}
	if strings.TrimSpace(r.StartDate) == "" {
		missing = append(missing, "start_date")
	}
	if strings.TrimSpace(r.EndDate) == "" {
		missing = append(missing, "end_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if r.DepositAmount <= 0 {
		return fmt.Errorf("%w: deposit_amount must be a positive number", ErrValidation)
	}
	if r.DepositAmount > MaxDepositAmount {
		return fmt.Errorf("%w: deposit_amount must not exceed %.2f", ErrValidation, MaxDepositAmount)
	}
	if _, err := time.Parse(DateLayout, r.StartDate); err != nil {
		return fmt.Errorf("%w: start_date must be a YYYY-MM-DD date", ErrValidation)
	}
	if _, err := time.Parse(DateLayout, r.EndDate); err != nil {
		return fmt.Errorf("%w: end_date must be a YYYY-MM-DD date", ErrValidation)
	}
	return nil
}

// ValidateDateOrder rejects leases that end before they start. Call after Validate.
func (r LeaseRequest) ValidateDateOrder() error {
	start, _ := time.Parse(DateLayout, r.StartDate)
	end, _ := time.Parse(DateLayout, r.EndDate)
	if end.Before(start) {
		return fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}
	return nil
}

// LeaseOutcome distinguishes the three observable results of a lease attempt
type LeaseOutcome int

const (
	LeaseSucceeded LeaseOutcome = iota + 1
	LeaseRejectedConflict
	LeasePartialFailure
)

func (o LeaseOutcome) String() string {
	switch o {
	case LeaseSucceeded:
		return "success"
	case LeaseRejectedConflict:
		return "rejected_conflict"
	case LeasePartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}

// LeaseResult is returned alongside the error of a lease attempt
type LeaseResult struct {
	Outcome         LeaseOutcome
	Contract        *Contract
	ApartmentStatus ApartmentStatus
}
