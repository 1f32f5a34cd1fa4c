package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/security"
	"github.com/aryan0dhankhar/aptlease/internal/security/audit"
)

// birthDateLayout is the dd/mm/yyyy format accepted at registration
const birthDateLayout = "02/01/2006"

// TenantRegistration is the self-service signup payload
type TenantRegistration struct {
	Email              string
	Password           string
	FullName           string
	Gender             string
	DateOfBirth        string // dd/mm/yyyy
	PhoneNumber        string
	IdentityCardNumber string
}

func (r TenantRegistration) validate() (string, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"email", r.Email},
		{"password", r.Password},
		{"fullName", r.FullName},
		{"gender", r.Gender},
		{"dob", r.DateOfBirth},
		{"phoneNumber", r.PhoneNumber},
		{"idCardNumber", r.IdentityCardNumber},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	dob, err := time.Parse(birthDateLayout, r.DateOfBirth)
	if err != nil {
		return "", fmt.Errorf("%w: dob must be a valid dd/mm/yyyy date", domain.ErrValidation)
	}
	return dob.Format(domain.DateLayout), nil
}

// LoginResult is what a successful login hands back to the caller
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *domain.Identity
	// Profile is a *domain.TenantProfile for tenants, a *domain.Manager for
	// managers and admins, or nil when no profile row exists
	Profile any
}

// AccountService creates and removes accounts together with their profile rows
type AccountService struct {
	identity *IdentityService
	tenants  domain.TenantRepository
	managers domain.ManagerRepository
	authz    *security.AuthorizationService
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	identity *IdentityService,
	tenants domain.TenantRepository,
	managers domain.ManagerRepository,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &AccountService{
		identity: identity,
		tenants:  tenants,
		managers: managers,
		authz:    authz,
		audit:    auditLog,
		logger:   logger,
	}
}

// RegisterTenant creates a tenant identity and its profile. If the profile
// insert fails the identity is deleted again.
func (s *AccountService) RegisterTenant(ctx context.Context, reg TenantRegistration) (*domain.TenantProfile, error) {
	dob, err := reg.validate()
	if err != nil {
		return nil, err
	}

	identity, err := s.identity.CreateIdentity(ctx, reg.Email, reg.Password, domain.RoleTenant)
	if err != nil {
		return nil, err
	}

	gender := reg.Gender
	profile := &domain.TenantProfile{
		UserID:             identity.ID,
		FullName:           strings.TrimSpace(reg.FullName),
		PhoneNumber:        reg.PhoneNumber,
		IdentityCardNumber: reg.IdentityCardNumber,
		DateOfBirth:        &dob,
		Gender:             &gender,
	}
	if err := s.tenants.Create(ctx, profile); err != nil {
		s.rollbackIdentity(ctx, identity.ID, "tenant profile", err)
		return nil, fmt.Errorf("failed to create tenant profile: %w", err)
	}

	s.audit.LogAccount(ctx, identity.ID, "register_tenant", identity.ID, "success")
	return profile, nil
}

// CreateManager lets an admin create a manager account and its manager row
func (s *AccountService) CreateManager(ctx context.Context, actor domain.Principal, email, password string) (*domain.Manager, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageAccounts); err != nil {
		return nil, err
	}

	identity, err := s.identity.CreateIdentity(ctx, email, password, domain.RoleManager)
	if err != nil {
		return nil, err
	}

	manager := &domain.Manager{UserID: identity.ID, Email: identity.Email}
	if err := s.managers.Create(ctx, manager); err != nil {
		s.rollbackIdentity(ctx, identity.ID, "manager", err)
		return nil, fmt.Errorf("failed to create manager profile: %w", err)
	}

	s.audit.LogAccount(ctx, actor.UserID, "create_manager", identity.ID, "success")
	return manager, nil
}

// DeleteAccount lets an admin delete any identity
func (s *AccountService) DeleteAccount(ctx context.Context, actor domain.Principal, userID string) error {
	if err := s.authz.ValidatePermission(actor, security.PermManageAccounts); err != nil {
		return err
	}
	if err := s.identity.DeleteIdentity(ctx, userID); err != nil {
		s.audit.LogAccount(ctx, actor.UserID, "delete_account", userID, "failed")
		return err
	}
	s.audit.LogAccount(ctx, actor.UserID, "delete_account", userID, "success")
	return nil
}

// Login authenticates and loads the profile matching the identity's role. A
// missing profile row does not fail the login.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.identity.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.identity.IssueToken(identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.String("user_id", identity.ID),
		slog.String("role", identity.Role.String()),
	)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Identity: identity, Profile: profile}, nil
}

func (s *AccountService) profileFor(ctx context.Context, identity *domain.Identity) (any, error) {
	var (
		profile any
		err     error
	)
	switch identity.Role {
	case domain.RoleTenant:
		profile, err = s.tenants.GetByID(ctx, identity.ID)
	case domain.RoleManager, domain.RoleAdmin:
		profile, err = s.managers.GetByID(ctx, identity.ID)
	case domain.RoleUnknown:
		return nil, fmt.Errorf("%w: account has no role", domain.ErrForbidden)
	default:
		return nil, fmt.Errorf("%w: account has no role", domain.ErrForbidden)
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("no profile for identity", slog.String("user_id", identity.ID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func (s *AccountService) rollbackIdentity(ctx context.Context, userID, profile string, cause error) {
	s.logger.Error("profile insert failed, removing identity",
		slog.String("user_id", userID),
		slog.String("profile", profile),
		slog.String("error", cause.Error()),
	)
	if err := s.identity.DeleteIdentity(ctx, userID); err != nil {
		s.logger.Error("failed to remove identity after profile failure",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
