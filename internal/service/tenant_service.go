package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/observability/metrics"
	"github.com/aryan0dhankhar/aptlease/internal/security"
	"github.com/aryan0dhankhar/aptlease/internal/security/audit"
)

// IdentityProvider is the part of the identity provider tenant deletion needs
type IdentityProvider interface {
	GetIdentity(ctx context.Context, userID string) (*domain.Identity, error)
	DeleteIdentity(ctx context.Context, userID string) error
}

// TenantDetail is a tenant profile with its contract history
type TenantDetail struct {
	Profile   *domain.TenantProfile
	Contracts []*domain.Contract
}

// TenantService manages tenant profiles on behalf of managers
type TenantService struct {
	tenants   domain.TenantRepository
	contracts domain.ContractRepository
	identity  IdentityProvider
	authz     *security.AuthorizationService
	audit     *audit.Logger
	logger    *slog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenants domain.TenantRepository,
	contracts domain.ContractRepository,
	identity IdentityProvider,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &TenantService{
		tenants:   tenants,
		contracts: contracts,
		identity:  identity,
		authz:     authz,
		audit:     auditLog,
		logger:    logger,
	}
}

// ListTenants returns every tenant profile ordered by full name
func (s *TenantService) ListTenants(ctx context.Context, actor domain.Principal) ([]*domain.TenantProfile, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageTenants); err != nil {
		return nil, err
	}
	return s.tenants.List(ctx)
}

// GetTenant returns a profile and its contracts, newest first
func (s *TenantService) GetTenant(ctx context.Context, actor domain.Principal, tenantID string) (*TenantDetail, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageTenants); err != nil {
		return nil, err
	}
	profile, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.contracts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &TenantDetail{Profile: profile, Contracts: contracts}, nil
}

// UpdateTenant applies a whitelisted partial update to a profile
func (s *TenantService) UpdateTenant(ctx context.Context, actor domain.Principal, tenantID string, update domain.TenantProfileUpdate) (*domain.TenantProfile, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageTenants); err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, fmt.Errorf("%w: no updatable fields supplied", domain.ErrValidation)
	}
	return s.tenants.Update(ctx, tenantID, update)
}

// DeleteTenant deletes a tenant's identity unless the tenant still holds
// active contracts. The returned TenantDeletion carries the active contract
// count; with one or more the error is ErrConflict and nothing is deleted.
// Inactive contract history is kept and detached from the identity.
func (s *TenantService) DeleteTenant(ctx context.Context, actor domain.Principal, tenantID string) (*domain.TenantDeletion, error) {
	result := &domain.TenantDeletion{TenantID: tenantID}
	if err := s.authz.ValidatePermission(actor, security.PermDeleteTenant); err != nil {
		return result, err
	}

	err := s.deleteTenant(ctx, tenantID, result)

	label := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		label = metrics.ResultNotFound
	case errors.Is(err, domain.ErrConflict):
		label = metrics.ResultConflict
	default:
		label = metrics.ResultError
	}
	metrics.ObserveTenantDeletion(label)
	s.audit.LogTenantDeletion(ctx, actor.UserID, tenantID, label, "active_contracts="+strconv.Itoa(result.ActiveContracts))
	return result, err
}

func (s *TenantService) deleteTenant(ctx context.Context, tenantID string, result *domain.TenantDeletion) error {
	active, err := s.contracts.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list active contracts: %w", err)
	}
	result.ActiveContracts = len(active)
	if len(active) > 0 {
		s.logger.Info("tenant deletion blocked by active contracts",
			slog.String("tenant_id", tenantID),
			slog.Int("active_contracts", len(active)),
		)
		return fmt.Errorf("%w: tenant %s has %d active contract(s)", domain.ErrConflict, tenantID, len(active))
	}

	// Only tenant accounts are deletable through this path
	identity, err := s.identity.GetIdentity(ctx, tenantID)
	if err != nil {
		return err
	}
	if identity.Role != domain.RoleTenant {
		return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrNotFound)
	}

	if err := s.identity.DeleteIdentity(ctx, tenantID); err != nil {
		return err
	}
	result.Deleted = true
	s.logger.Info("tenant deleted", slog.String("tenant_id", tenantID))
	return nil
}
