package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/featureflags"
	"github.com/aryan0dhankhar/aptlease/internal/observability/metrics"
	"github.com/aryan0dhankhar/aptlease/internal/observability/tracing"
	"github.com/aryan0dhankhar/aptlease/internal/security"
	"github.com/aryan0dhankhar/aptlease/internal/security/audit"
)

// LeaseService assigns apartments to tenants by creating contracts
type LeaseService struct {
	apartments domain.ApartmentRepository
	contracts  domain.ContractRepository
	authz      *security.AuthorizationService
	audit      *audit.Logger
	flags      featureflags.Source
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewLeaseService creates a new lease service
func NewLeaseService(
	apartments domain.ApartmentRepository,
	contracts domain.ContractRepository,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	flags featureflags.Source,
	logger *slog.Logger,
) *LeaseService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if flags == nil {
		flags = featureflags.Env{}
	}

	return &LeaseService{
		apartments: apartments,
		contracts:  contracts,
		authz:      authz,
		audit:      auditLog,
		flags:      flags,
		tracer:     tracing.Tracer(),
		logger:     logger,
	}
}

// CreateLease runs the lease assignment workflow:
//
//  1. read the apartment status (ErrNotFound if missing)
//  2. reject anything but Available with ErrConflict, writing nothing
//  3. insert the active contract
//  4. flip the apartment Available -> Occupied with a guarded update
//
// If step 4 fails the contract stays committed and a *domain.PartialFailureError
// is returned; the write is not retried. If step 4 changes no row another
// request claimed the apartment after step 1, so the contract is removed again
// and ErrConflict is returned.
func (s *LeaseService) CreateLease(ctx context.Context, actor domain.Principal, req domain.LeaseRequest) (domain.LeaseResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "LeaseService.CreateLease", trace.WithAttributes(
		attribute.String("contract.id", req.ContractID),
		attribute.String("apartment.id", req.ApartmentID),
	))
	defer span.End()

	logger := s.logger.With(
		slog.String("contract_id", req.ContractID),
		slog.String("apartment_id", req.ApartmentID),
		slog.String("actor_id", actor.UserID),
	)

	result, err := s.createLease(ctx, actor, req, logger)

	label := leaseResultLabel(err)
	metrics.ObserveLease(label, time.Since(start))
	span.SetAttributes(attribute.String("lease.result", label))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, label)
	}
	if !errors.Is(err, domain.ErrForbidden) && !errors.Is(err, domain.ErrValidation) {
		s.audit.LogLease(ctx, actor.UserID, req.ContractID, req.ApartmentID, label)
	}
	return result, err
}

func (s *LeaseService) createLease(ctx context.Context, actor domain.Principal, req domain.LeaseRequest, logger *slog.Logger) (domain.LeaseResult, error) {
	if err := s.authz.ValidatePermission(actor, security.PermCreateLease); err != nil {
		return domain.LeaseResult{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.LeaseResult{}, err
	}
	if s.flags.Enabled(featureflags.LeaseDateOrder) {
		if err := req.ValidateDateOrder(); err != nil {
			return domain.LeaseResult{}, err
		}
	}

	status, err := s.readStatus(ctx, req.ApartmentID)
	if err != nil {
		return domain.LeaseResult{}, err
	}
	if status != domain.StatusAvailable {
		logger.Info("apartment not available", slog.String("status", string(status)))
		return domain.LeaseResult{Outcome: domain.LeaseRejectedConflict, ApartmentStatus: status},
			fmt.Errorf("%w: apartment %s is %s", domain.ErrConflict, req.ApartmentID, status)
	}

	contract := &domain.Contract{
		ID:            req.ContractID,
		TenantID:      req.TenantID,
		ApartmentID:   req.ApartmentID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		DepositAmount: req.DepositAmount,
		IsActive:      true,
	}
	if err := s.insertContract(ctx, contract); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.LeaseResult{Outcome: domain.LeaseRejectedConflict}, err
		}
		return domain.LeaseResult{}, err
	}

	changed, err := s.occupy(ctx, req.ApartmentID)
	if err != nil {
		logger.Error("contract created but apartment status update failed",
			slog.Bool("partial_failure", true),
			slog.String("error", err.Error()),
		)
		return domain.LeaseResult{Outcome: domain.LeasePartialFailure, Contract: contract},
			&domain.PartialFailureError{Operation: "create lease", ContractID: contract.ID, Cause: err}
	}
	if !changed {
		return s.compensate(ctx, contract, logger)
	}

	logger.Info("lease created", slog.String("tenant_id", req.TenantID))
	return domain.LeaseResult{
		Outcome:         domain.LeaseSucceeded,
		Contract:        contract,
		ApartmentStatus: domain.StatusOccupied,
	}, nil
}

func (s *LeaseService) readStatus(ctx context.Context, apartmentID string) (domain.ApartmentStatus, error) {
	ctx, span := s.tracer.Start(ctx, "apartments.GetStatus")
	defer span.End()
	return s.apartments.GetStatus(ctx, apartmentID)
}

func (s *LeaseService) insertContract(ctx context.Context, c *domain.Contract) error {
	ctx, span := s.tracer.Start(ctx, "contracts.Create")
	defer span.End()
	return s.contracts.Create(ctx, c)
}

func (s *LeaseService) occupy(ctx context.Context, apartmentID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "apartments.TransitionStatus")
	defer span.End()
	return s.apartments.TransitionStatus(ctx, apartmentID, domain.StatusAvailable, domain.StatusOccupied)
}

// compensate removes a contract whose apartment was claimed concurrently.
func (s *LeaseService) compensate(ctx context.Context, contract *domain.Contract, logger *slog.Logger) (domain.LeaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "contracts.Delete")
	defer span.End()

	if err := s.contracts.Delete(ctx, contract.ID); err != nil {
		metrics.ObserveCompensation(metrics.ResultError)
		logger.Error("apartment claimed concurrently and contract rollback failed",
			slog.Bool("partial_failure", true),
			slog.String("error", err.Error()),
		)
		return domain.LeaseResult{Outcome: domain.LeasePartialFailure, Contract: contract},
			&domain.PartialFailureError{Operation: "create lease", ContractID: contract.ID, Cause: err}
	}

	metrics.ObserveCompensation(metrics.ResultSuccess)
	logger.Warn("apartment claimed concurrently, contract rolled back")
	return domain.LeaseResult{Outcome: domain.LeaseRejectedConflict},
		fmt.Errorf("%w: apartment %s is no longer available", domain.ErrConflict, contract.ApartmentID)
}

func leaseResultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case domain.IsPartialFailure(err):
		return metrics.ResultPartialFailure
	case errors.Is(err, domain.ErrForbidden):
		return metrics.ResultForbidden
	case errors.Is(err, domain.ErrValidation):
		return metrics.ResultValidation
	case errors.Is(err, domain.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrConflict):
		return metrics.ResultConflict
	case errors.Is(err, domain.ErrInvalidReference):
		return metrics.ResultInvalidReference
	default:
		return metrics.ResultError
	}
}
