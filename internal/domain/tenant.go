package domain

import "context"

// TenantProfile is the identity-linked record of a renter
type TenantProfile struct {
	UserID             string  `json:"user_id"`
	FullName           string  `json:"fullname"`
	PhoneNumber        string  `json:"phone_number"`
	IdentityCardNumber string  `json:"identity_card_number"`
	DateOfBirth        *string `json:"dob"`
	Gender             *string `json:"gender"`
}

// TenantProfileUpdate carries the fields a manager may edit
type TenantProfileUpdate struct {
	FullName           *string
	PhoneNumber        *string
	IdentityCardNumber *string
}

// Empty reports whether the update changes nothing
func (u TenantProfileUpdate) Empty() bool {
	return u.FullName == nil && u.PhoneNumber == nil && u.IdentityCardNumber == nil
}

// TenantRepository defines data access for tenant profiles
type TenantRepository interface {
	Create(ctx context.Context, profile *TenantProfile) error
	GetByID(ctx context.Context, userID string) (*TenantProfile, error)
	// List returns profiles ordered by full name
	List(ctx context.Context) ([]*TenantProfile, error)
	Update(ctx context.Context, userID string, update TenantProfileUpdate) (*TenantProfile, error)
}

// TenantDeletion reports the outcome of a tenant deletion attempt
type TenantDeletion struct {
	TenantID        string
	ActiveContracts int
	Deleted         bool
}
