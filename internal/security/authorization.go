package security

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermManageAccounts  Permission = "manage_accounts"
	PermManageRoomTypes Permission = "manage_room_types"
	PermManageApartment Permission = "manage_apartments"
	PermManageTenants   Permission = "manage_tenants"
	PermCreateLease     Permission = "create_lease"
	PermDeleteTenant    Permission = "delete_tenant"
	PermLogout          Permission = "logout"
)

// permissionsFor is an exhaustive switch over the closed role set. Adding a
// role without listing it here leaves it with no permissions.
func permissionsFor(role domain.Role) []Permission {
	switch role {
	case domain.RoleAdmin:
		return []Permission{PermManageAccounts, PermManageRoomTypes, PermLogout}
	case domain.RoleManager:
		return []Permission{PermManageApartment, PermManageTenants, PermCreateLease, PermDeleteTenant, PermLogout}
	case domain.RoleTenant:
		return []Permission{PermLogout}
	case domain.RoleUnknown:
		return nil
	default:
		return nil
	}
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	return slices.Contains(permissionsFor(role), permission)
}

// ValidatePermission returns domain.ErrForbidden unless the principal's role
// grants permission
func (as *AuthorizationService) ValidatePermission(p domain.Principal, permission Permission) error {
	if !as.HasPermission(p.Role, permission) {
		as.logger.Warn("permission denied",
			slog.String("user_id", p.UserID),
			slog.String("role", p.Role.String()),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("%w: %s role cannot %s", domain.ErrForbidden, p.Role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role domain.Role) []Permission {
	return permissionsFor(role)
}
