package domain

import (
	"context"
	"fmt"
	"time"
)

// Role is the closed set of role claims an identity can carry
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleManager
	RoleTenant
)

// ParseRole converts a stored or signed role claim into a Role
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	case "tenant":
		return RoleTenant, nil
	default:
		return RoleUnknown, fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleTenant:
		return "tenant"
	default:
		return "unknown"
	}
}

// MarshalText lets Role travel as its claim string in JSON
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Identity is an account owned by the identity provider
type Identity struct {
	ID           string // UUID
	Email        string // Unique email address
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         Role
	CreatedAt    time.Time
}

// Principal is the verified caller of an operation, passed explicitly to services
type Principal struct {
	UserID    string
	Email     string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// IdentityRepository defines data access for identities
type IdentityRepository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	Delete(ctx context.Context, id string) error
}

// Manager is the profile row linked to a manager identity
type Manager struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// ManagerRepository defines data access for manager profiles
type ManagerRepository interface {
	Create(ctx context.Context, manager *Manager) error
	GetByID(ctx context.Context, userID string) (*Manager, error)
}
