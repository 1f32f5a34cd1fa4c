package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
	"github.com/aryan0dhankhar/aptlease/internal/security"
	"github.com/aryan0dhankhar/aptlease/pkg/cache"
)

const (
	roomTypeCachePrefix = "roomtype:"
	roomTypeListKey     = roomTypeCachePrefix + "list"
)

// RoomTypeService is the admin-facing room type catalog. The full list is
// cached and dropped on every write.
type RoomTypeService struct {
	roomTypes domain.RoomTypeRepository
	authz     *security.AuthorizationService
	cache     *cache.Cache
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewRoomTypeService creates a new room type service
func NewRoomTypeService(
	roomTypes domain.RoomTypeRepository,
	authz *security.AuthorizationService,
	c *cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *RoomTypeService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if c == nil {
		c = cache.New()
	}
	return &RoomTypeService{roomTypes: roomTypes, authz: authz, cache: c, cacheTTL: cacheTTL, logger: logger}
}

func (s *RoomTypeService) List(ctx context.Context, actor domain.Principal) ([]*domain.RoomType, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageRoomTypes); err != nil {
		return nil, err
	}
	if list, ok := cache.GetAs[[]*domain.RoomType](s.cache, roomTypeListKey); ok {
		return list, nil
	}
	list, err := s.roomTypes.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cacheTTL > 0 {
		s.cache.Set(roomTypeListKey, list, s.cacheTTL)
	}
	return list, nil
}

func (s *RoomTypeService) Get(ctx context.Context, actor domain.Principal, id string) (*domain.RoomType, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageRoomTypes); err != nil {
		return nil, err
	}
	return s.roomTypes.GetByID(ctx, id)
}

func (s *RoomTypeService) Create(ctx context.Context, actor domain.Principal, rt *domain.RoomType) error {
	if err := s.authz.ValidatePermission(actor, security.PermManageRoomTypes); err != nil {
		return err
	}
	if strings.TrimSpace(rt.ID) == "" || strings.TrimSpace(rt.Name) == "" {
		return fmt.Errorf("%w: type_id and type_name are required", domain.ErrValidation)
	}
	if rt.BasePrice <= 0 {
		return fmt.Errorf("%w: base_price must be a positive number", domain.ErrValidation)
	}
	if err := s.roomTypes.Create(ctx, rt); err != nil {
		return err
	}
	s.cache.Invalidate(roomTypeCachePrefix)
	s.logger.Info("room type created", slog.String("type_id", rt.ID))
	return nil
}

func (s *RoomTypeService) Update(ctx context.Context, actor domain.Principal, id string, u domain.RoomTypeUpdate) (*domain.RoomType, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageRoomTypes); err != nil {
		return nil, err
	}
	if u.BasePrice != nil && *u.BasePrice <= 0 {
		return nil, fmt.Errorf("%w: base_price must be a positive number", domain.ErrValidation)
	}
	rt, err := s.roomTypes.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(roomTypeCachePrefix)
	return rt, nil
}

// Delete fails with domain.ErrInUse while apartments reference the type
func (s *RoomTypeService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if err := s.authz.ValidatePermission(actor, security.PermManageRoomTypes); err != nil {
		return err
	}
	if err := s.roomTypes.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(roomTypeCachePrefix)
	s.logger.Info("room type deleted", slog.String("type_id", id))
	return nil
}

// ApartmentService is the manager-facing apartment inventory
type ApartmentService struct {
	apartments domain.ApartmentRepository
	authz      *security.AuthorizationService
	logger     *slog.Logger
}

// NewApartmentService creates a new apartment service
func NewApartmentService(apartments domain.ApartmentRepository, authz *security.AuthorizationService, logger *slog.Logger) *ApartmentService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	return &ApartmentService{apartments: apartments, authz: authz, logger: logger}
}

// List returns every apartment ordered by apartment number
func (s *ApartmentService) List(ctx context.Context, actor domain.Principal) ([]*domain.Apartment, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageApartment); err != nil {
		return nil, err
	}
	return s.apartments.List(ctx)
}

func (s *ApartmentService) Get(ctx context.Context, actor domain.Principal, id string) (*domain.Apartment, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageApartment); err != nil {
		return nil, err
	}
	return s.apartments.GetByID(ctx, id)
}

// Create stores a new apartment owned by the calling manager. A missing status
// defaults to Available.
func (s *ApartmentService) Create(ctx context.Context, actor domain.Principal, a *domain.Apartment) error {
	if err := s.authz.ValidatePermission(actor, security.PermManageApartment); err != nil {
		return err
	}
	var missing []string
	if strings.TrimSpace(a.ID) == "" {
		missing = append(missing, "apartment_id")
	}
	if strings.TrimSpace(a.TypeID) == "" {
		missing = append(missing, "type_id")
	}
	if strings.TrimSpace(a.Number) == "" {
		missing = append(missing, "apartment_number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if a.Area <= 0 || a.Price <= 0 {
		return fmt.Errorf("%w: area and price must be positive numbers", domain.ErrValidation)
	}
	if a.Status == "" {
		a.Status = domain.StatusAvailable
	} else if _, err := domain.ParseApartmentStatus(string(a.Status)); err != nil {
		return err
	}
	a.ManagerID = actor.UserID

	if err := s.apartments.Create(ctx, a); err != nil {
		return err
	}
	s.logger.Info("apartment created",
		slog.String("apartment_id", a.ID),
		slog.String("manager_id", a.ManagerID),
	)
	return nil
}

func (s *ApartmentService) Update(ctx context.Context, actor domain.Principal, id string, u domain.ApartmentUpdate) (*domain.Apartment, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageApartment); err != nil {
		return nil, err
	}
	if (u.Area != nil && *u.Area <= 0) || (u.Price != nil && *u.Price <= 0) {
		return nil, fmt.Errorf("%w: area and price must be positive numbers", domain.ErrValidation)
	}
	return s.apartments.Update(ctx, id, u)
}

// SetStatus overwrites the stored status. It does not touch contracts, so a
// manual change can introduce drift the reconcile worker will report.
func (s *ApartmentService) SetStatus(ctx context.Context, actor domain.Principal, id, status string) (*domain.Apartment, error) {
	if err := s.authz.ValidatePermission(actor, security.PermManageApartment); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseApartmentStatus(status)
	if err != nil {
		return nil, err
	}
	a, err := s.apartments.SetStatus(ctx, id, parsed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("apartment status set",
		slog.String("apartment_id", id),
		slog.String("status", status),
		slog.String("actor_id", actor.UserID),
	)
	return a, nil
}

// Delete fails with domain.ErrInUse while contracts reference the apartment
func (s *ApartmentService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if err := s.authz.ValidatePermission(actor, security.PermManageApartment); err != nil {
		return err
	}
	return s.apartments.Delete(ctx, id)
}
