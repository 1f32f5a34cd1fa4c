// Package memory is an in-process implementation of the domain repositories.
// It enforces the same keys, foreign keys and cascades as the Postgres schema
// and backs the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

// Store holds every table behind one mutex
type Store struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	managers   map[string]*domain.Manager
	tenants    map[string]*domain.TenantProfile
	roomTypes  map[string]*domain.RoomType
	apartments map[string]*domain.Apartment
	contracts  map[string]*domain.Contract
}

// New creates an empty store
func New() *Store {
	return &Store{
		identities: map[string]*domain.Identity{},
		managers:   map[string]*domain.Manager{},
		tenants:    map[string]*domain.TenantProfile{},
		roomTypes:  map[string]*domain.RoomType{},
		apartments: map[string]*domain.Apartment{},
		contracts:  map[string]*domain.Contract{},
	}
}

func (s *Store) Identities() *IdentityRepository { return &IdentityRepository{s} }
func (s *Store) Managers() *ManagerRepository { return &ManagerRepository{s} }
func (s *Store) Tenants() *TenantRepository { return &TenantRepository{s} }
func (s *Store) RoomTypes() *RoomTypeRepository { return &RoomTypeRepository{s} }
func (s *Store) Apartments() *ApartmentRepository { return &ApartmentRepository{s} }
func (s *Store) Contracts() *ContractRepository { return &ContractRepository{s} }

// IdentityRepository implements domain.IdentityRepository
type IdentityRepository struct{ s *Store }

func (r *IdentityRepository) Create(_ context.Context, identity *domain.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.identities[identity.ID]; ok {
		return fmt.Errorf("create identity: %w", domain.ErrDuplicate)
	}
	for _, existing := range r.s.identities {
		if existing.Email == identity.Email {
			return fmt.Errorf("create identity: %w", domain.ErrDuplicate)
		}
	}
	identity.CreatedAt = time.Now()
	cp := *identity
	r.s.identities[identity.ID] = &cp
	return nil
}

func (r *IdentityRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if identity, ok := r.s.identities[id]; ok {
		cp := *identity
		return &cp, nil
	}
	return nil, fmt.Errorf("identity: %w", domain.ErrNotFound)
}

func (r *IdentityRepository) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, identity := range r.s.identities {
		if identity.Email == email {
			cp := *identity
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("identity: %w", domain.ErrNotFound)
}

// Delete cascades to manager and tenant profiles and detaches contract history,
// as the foreign keys do in Postgres. Managers still owning apartments are kept.
func (r *IdentityRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.identities[id]; !ok {
		return fmt.Errorf("identity %s: %w", id, domain.ErrNotFound)
	}
	for _, a := range r.s.apartments {
		if a.ManagerID == id {
			return fmt.Errorf("delete identity: %w", domain.ErrInUse)
		}
	}
	for _, c := range r.s.contracts {
		if c.TenantID == id {
			c.TenantID = ""
		}
	}
	delete(r.s.identities, id)
	delete(r.s.managers, id)
	delete(r.s.tenants, id)
	return nil
}

// ManagerRepository implements domain.ManagerRepository
type ManagerRepository struct{ s *Store }

func (r *ManagerRepository) Create(_ context.Context, m *domain.Manager) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.identities[m.UserID]; !ok {
		return fmt.Errorf("create manager: %w", domain.ErrInvalidReference)
	}
	if _, ok := r.s.managers[m.UserID]; ok {
		return fmt.Errorf("create manager: %w", domain.ErrDuplicate)
	}
	cp := *m
	r.s.managers[m.UserID] = &cp
	return nil
}

func (r *ManagerRepository) GetByID(_ context.Context, userID string) (*domain.Manager, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.managers[userID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, fmt.Errorf("manager: %w", domain.ErrNotFound)
}

// TenantRepository implements domain.TenantRepository
type TenantRepository struct{ s *Store }

func (r *TenantRepository) Create(_ context.Context, p *domain.TenantProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.identities[p.UserID]; !ok {
		return fmt.Errorf("create tenant profile: %w", domain.ErrInvalidReference)
	}
	if _, ok := r.s.tenants[p.UserID]; ok {
		return fmt.Errorf("create tenant profile: %w", domain.ErrDuplicate)
	}
	cp := *p
	r.s.tenants[p.UserID] = &cp
	return nil
}

func (r *TenantRepository) GetByID(_ context.Context, userID string) (*domain.TenantProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.tenants[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("tenant %s: %w", userID, domain.ErrNotFound)
}

func (r *TenantRepository) List(_ context.Context) ([]*domain.TenantProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.TenantProfile, 0, len(r.s.tenants))
	for _, p := range r.s.tenants {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r *TenantRepository) Update(_ context.Context, userID string, u domain.TenantProfileUpdate) (*domain.TenantProfile, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.tenants[userID]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", userID, domain.ErrNotFound)
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = *u.PhoneNumber
	}
	if u.IdentityCardNumber != nil {
		p.IdentityCardNumber = *u.IdentityCardNumber
	}
	cp := *p
	return &cp, nil
}

// RoomTypeRepository implements domain.RoomTypeRepository
type RoomTypeRepository struct{ s *Store }

func (r *RoomTypeRepository) Create(_ context.Context, rt *domain.RoomType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roomTypes[rt.ID]; ok {
		return fmt.Errorf("create room type: %w", domain.ErrDuplicate)
	}
	cp := *rt
	r.s.roomTypes[rt.ID] = &cp
	return nil
}

func (r *RoomTypeRepository) GetByID(_ context.Context, id string) (*domain.RoomType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rt, ok := r.s.roomTypes[id]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, fmt.Errorf("room type %s: %w", id, domain.ErrNotFound)
}

func (r *RoomTypeRepository) List(_ context.Context) ([]*domain.RoomType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.RoomType, 0, len(r.s.roomTypes))
	for _, rt := range r.s.roomTypes {
		cp := *rt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RoomTypeRepository) Update(_ context.Context, id string, u domain.RoomTypeUpdate) (*domain.RoomType, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.roomTypes[id]
	if !ok {
		return nil, fmt.Errorf("room type %s: %w", id, domain.ErrNotFound)
	}
	if u.Name != nil {
		rt.Name = *u.Name
	}
	if u.BasePrice != nil {
		rt.BasePrice = *u.BasePrice
	}
	if u.Description != nil {
		d := *u.Description
		rt.Description = &d
	}
	cp := *rt
	return &cp, nil
}

func (r *RoomTypeRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roomTypes[id]; !ok {
		return fmt.Errorf("room type %s: %w", id, domain.ErrNotFound)
	}
	for _, a := range r.s.apartments {
		if a.TypeID == id {
			return fmt.Errorf("delete room type: %w", domain.ErrInUse)
		}
	}
	delete(r.s.roomTypes, id)
	return nil
}

// ApartmentRepository implements domain.ApartmentRepository
type ApartmentRepository struct{ s *Store }

func (r *ApartmentRepository) Create(_ context.Context, a *domain.Apartment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.apartments[a.ID]; ok {
		return fmt.Errorf("create apartment: %w", domain.ErrDuplicate)
	}
	if _, ok := r.s.roomTypes[a.TypeID]; !ok {
		return fmt.Errorf("create apartment: %w", domain.ErrInvalidReference)
	}
	if _, ok := r.s.identities[a.ManagerID]; !ok {
		return fmt.Errorf("create apartment: %w", domain.ErrInvalidReference)
	}
	cp := *a
	cp.RoomType = nil
	r.s.apartments[a.ID] = &cp
	return nil
}

func (r *ApartmentRepository) GetByID(_ context.Context, id string) (*domain.Apartment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apartments[id]
	if !ok {
		return nil, fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
	}
	return r.withType(a), nil
}

func (r *ApartmentRepository) List(_ context.Context) ([]*domain.Apartment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Apartment, 0, len(r.s.apartments))
	for _, a := range r.s.apartments {
		out = append(out, r.withType(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *ApartmentRepository) Update(_ context.Context, id string, u domain.ApartmentUpdate) (*domain.Apartment, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apartments[id]
	if !ok {
		return nil, fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
	}
	if u.TypeID != nil {
		if _, ok := r.s.roomTypes[*u.TypeID]; !ok {
			return nil, fmt.Errorf("update apartment: %w", domain.ErrInvalidReference)
		}
		a.TypeID = *u.TypeID
	}
	if u.Number != nil {
		a.Number = *u.Number
	}
	if u.Area != nil {
		a.Area = *u.Area
	}
	if u.Price != nil {
		a.Price = *u.Price
	}
	if u.Furniture != nil {
		a.Furniture = *u.Furniture
	}
	cp := *a
	return &cp, nil
}

func (r *ApartmentRepository) SetStatus(_ context.Context, id string, status domain.ApartmentStatus) (*domain.Apartment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apartments[id]
	if !ok {
		return nil, fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
	}
	a.Status = status
	cp := *a
	return &cp, nil
}

func (r *ApartmentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.apartments[id]; !ok {
		return fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
	}
	for _, c := range r.s.contracts {
		if c.ApartmentID == id {
			return fmt.Errorf("delete apartment: %w", domain.ErrInUse)
		}
	}
	delete(r.s.apartments, id)
	return nil
}

func (r *ApartmentRepository) GetStatus(_ context.Context, id string) (domain.ApartmentStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apartments[id]
	if !ok {
		return "", fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
	}
	return a.Status, nil
}

func (r *ApartmentRepository) TransitionStatus(_ context.Context, id string, from, to domain.ApartmentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apartments[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

// withType must be called with the lock held
func (r *ApartmentRepository) withType(a *domain.Apartment) *domain.Apartment {
	cp := *a
	if rt, ok := r.s.roomTypes[a.TypeID]; ok {
		rtCopy := *rt
		cp.RoomType = &rtCopy
	}
	return &cp
}

// ContractRepository implements domain.ContractRepository
type ContractRepository struct{ s *Store }

// Create mirrors the primary key, both foreign keys and the partial unique
// index allowing one active contract per apartment. The tenant reference
// points at a tenant profile, not any identity.
func (r *ContractRepository) Create(_ context.Context, c *domain.Contract) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contracts[c.ID]; ok {
		return fmt.Errorf("create contract: %w", domain.ErrDuplicate)
	}
	if _, ok := r.s.tenants[c.TenantID]; !ok {
		return fmt.Errorf("create contract: %w", domain.ErrInvalidReference)
	}
	if _, ok := r.s.apartments[c.ApartmentID]; !ok {
		return fmt.Errorf("create contract: %w", domain.ErrInvalidReference)
	}
	if c.IsActive {
		for _, existing := range r.s.contracts {
			if existing.IsActive && existing.ApartmentID == c.ApartmentID {
				return fmt.Errorf("create contract: %w", domain.ErrDuplicate)
			}
		}
	}
	cp := *c
	r.s.contracts[c.ID] = &cp
	return nil
}

func (r *ContractRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contracts[id]; !ok {
		return fmt.Errorf("contract %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.contracts, id)
	return nil
}

func (r *ContractRepository) ListActiveByTenant(_ context.Context, tenantID string) ([]*domain.Contract, error) {
	return r.filter(func(c *domain.Contract) bool { return c.TenantID == tenantID && c.IsActive }), nil
}

func (r *ContractRepository) ListActive(_ context.Context) ([]*domain.Contract, error) {
	return r.filter(func(c *domain.Contract) bool { return c.IsActive }), nil
}

func (r *ContractRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.Contract, error) {
	out := r.filter(func(c *domain.Contract) bool { return c.TenantID == tenantID })
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate > out[j].StartDate })

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range out {
		if a, ok := r.s.apartments[c.ApartmentID]; ok {
			c.Apartment = &domain.ApartmentSummary{ID: a.ID, Number: a.Number, Price: a.Price}
		}
	}
	return out, nil
}

func (r *ContractRepository) filter(keep func(*domain.Contract) bool) []*domain.Contract {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Contract{}
	for _, c := range r.s.contracts {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
