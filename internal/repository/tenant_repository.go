package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

const tenantColumns = `user_id, fullname, phone_number, identity_card_number, to_char(dob, 'YYYY-MM-DD'), gender`

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant profile repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

// Create inserts the profile of a freshly registered tenant
func (r *PostgresTenantRepository) Create(ctx context.Context, p *domain.TenantProfile) error {
	query := `
		INSERT INTO tenant_profiles (user_id, fullname, phone_number, identity_card_number, dob, gender)
		VALUES ($1, $2, $3, $4, $5::date, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.FullName, p.PhoneNumber, p.IdentityCardNumber, p.DateOfBirth, p.Gender,
	)
	if err != nil {
		return classifyWrite("create tenant profile", err)
	}
	return nil
}

// GetByID retrieves a profile by its identity id
func (r *PostgresTenantRepository) GetByID(ctx context.Context, userID string) (*domain.TenantProfile, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant_profiles WHERE user_id = $1`
	p, err := scanTenant(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return p, nil
}

// List returns all tenant profiles ordered by full name
func (r *PostgresTenantRepository) List(ctx context.Context) ([]*domain.TenantProfile, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant_profiles ORDER BY fullname ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	out := []*domain.TenantProfile{}
	for rows.Next() {
		p, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies the whitelisted profile fields
func (r *PostgresTenantRepository) Update(ctx context.Context, userID string, u domain.TenantProfileUpdate) (*domain.TenantProfile, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	var set setList
	if u.FullName != nil {
		set.add("fullname", *u.FullName)
	}
	if u.PhoneNumber != nil {
		set.add("phone_number", *u.PhoneNumber)
	}
	if u.IdentityCardNumber != nil {
		set.add("identity_card_number", *u.IdentityCardNumber)
	}

	query := fmt.Sprintf(`UPDATE tenant_profiles SET %s WHERE user_id = $%d RETURNING %s`,
		set.clause(), set.next(), tenantColumns)
	p, err := scanTenant(r.db.QueryRowContext(ctx, query, append(set.args, userID)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", userID, domain.ErrNotFound)
		}
		return nil, classifyWrite("update tenant profile", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*domain.TenantProfile, error) {
	p := &domain.TenantProfile{}
	var dob, gender sql.NullString
	if err := row.Scan(&p.UserID, &p.FullName, &p.PhoneNumber, &p.IdentityCardNumber, &dob, &gender); err != nil {
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = &dob.String
	}
	if gender.Valid {
		p.Gender = &gender.String
	}
	return p, nil
}

// setList accumulates "col = $n" assignments for partial updates
type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, value any) {
	s.args = append(s.args, value)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) clause() string {
	return strings.Join(s.cols, ", ")
}

// next is the placeholder index following the assignments
func (s *setList) next() int {
	return len(s.args) + 1
}
