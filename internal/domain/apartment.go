package domain

import (
	"context"
	"fmt"
)

// ApartmentStatus is the stored occupancy state of an apartment
type ApartmentStatus string

const (
	StatusAvailable        ApartmentStatus = "Available"
	StatusOccupied         ApartmentStatus = "Occupied"
	StatusUnderMaintenance ApartmentStatus = "UnderMaintenance"
)

// ParseApartmentStatus validates a status coming from a request or a row
func ParseApartmentStatus(s string) (ApartmentStatus, error) {
	switch ApartmentStatus(s) {
	case StatusAvailable, StatusOccupied, StatusUnderMaintenance:
		return ApartmentStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown apartment status %q", ErrValidation, s)
	}
}

// RoomType is an apartment category managed by admins
type RoomType struct {
	ID          string  `json:"type_id"`
	Name        string  `json:"type_name"`
	BasePrice   float64 `json:"base_price"`
	Description *string `json:"description"`
}

// RoomTypeUpdate carries the whitelisted fields of a partial update
type RoomTypeUpdate struct {
	Name        *string
	BasePrice   *float64
	Description *string
}

// Empty reports whether the update changes nothing
func (u RoomTypeUpdate) Empty() bool {
	return u.Name == nil && u.BasePrice == nil && u.Description == nil
}

// RoomTypeRepository defines data access for room types
type RoomTypeRepository interface {
	Create(ctx context.Context, roomType *RoomType) error
	GetByID(ctx context.Context, id string) (*RoomType, error)
	List(ctx context.Context) ([]*RoomType, error)
	Update(ctx context.Context, id string, update RoomTypeUpdate) (*RoomType, error)
	Delete(ctx context.Context, id string) error
}

// Apartment is a rentable unit
type Apartment struct {
	ID        string          `json:"apartment_id"`
	TypeID    string          `json:"type_id"`
	ManagerID string          `json:"manager_id"`
	Number    string          `json:"apartment_number"`
	Area      float64         `json:"area"`
	Price     float64         `json:"price"`
	Furniture string          `json:"furniture"`
	Status    ApartmentStatus `json:"status"`
	RoomType  *RoomType       `json:"room_type,omitempty"`
}

// ApartmentUpdate carries the whitelisted fields of a partial update.
// Manager and status are deliberately absent.
type ApartmentUpdate struct {
	TypeID    *string
	Number    *string
	Area      *float64
	Price     *float64
	Furniture *string
}

// Empty reports whether the update changes nothing
func (u ApartmentUpdate) Empty() bool {
	return u.TypeID == nil && u.Number == nil && u.Area == nil && u.Price == nil && u.Furniture == nil
}

// ApartmentRepository defines data access for apartments
type ApartmentRepository interface {
	Create(ctx context.Context, apartment *Apartment) error
	GetByID(ctx context.Context, id string) (*Apartment, error)
	List(ctx context.Context) ([]*Apartment, error)
	Update(ctx context.Context, id string, update ApartmentUpdate) (*Apartment, error)
	SetStatus(ctx context.Context, id string, status ApartmentStatus) (*Apartment, error)
	Delete(ctx context.Context, id string) error

	// GetStatus returns ErrNotFound when the apartment does not exist.
	GetStatus(ctx context.Context, id string) (ApartmentStatus, error)
	// TransitionStatus moves the apartment from one status to another only if
	// it currently holds from. It reports whether a row was changed.
	TransitionStatus(ctx context.Context, id string, from, to ApartmentStatus) (bool, error)
}
