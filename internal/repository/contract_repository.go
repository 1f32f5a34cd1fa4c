package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

const contractColumns = `contract_id, COALESCE(tenant_id, ''), apartment_id,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), deposit_amount, is_active`

// PostgresContractRepository implements domain.ContractRepository using PostgreSQL
type PostgresContractRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresContractRepository creates a new contract repository
func NewPostgresContractRepository(db *sql.DB, logger *slog.Logger) *PostgresContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContractRepository{db: db, logger: logger}
}

// Create inserts a contract. Duplicate ids and a second active contract for the
// same apartment both surface as domain.ErrDuplicate.
func (r *PostgresContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	query := `
		INSERT INTO contracts (contract_id, tenant_id, apartment_id, start_date, end_date, deposit_amount, is_active)
		VALUES ($1, $2, $3, $4::date, $5::date, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.TenantID, c.ApartmentID, c.StartDate, c.EndDate, c.DepositAmount, c.IsActive,
	)
	if err != nil {
		r.logger.Error("failed to insert contract",
			slog.String("contract_id", c.ID),
			slog.String("error", err.Error()),
		)
		return classifyWrite("create contract", err)
	}

	r.logger.Debug("contract created", slog.String("contract_id", c.ID))
	return nil
}

// Delete removes a contract row
func (r *PostgresContractRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE contract_id = $1`, id)
	if err != nil {
		return classifyDelete("delete contract", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contract %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListActiveByTenant returns the tenant's active contracts
func (r *PostgresContractRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE tenant_id = $1 AND is_active = true`
	return r.list(ctx, query, tenantID)
}

// ListActive returns every active contract
func (r *PostgresContractRepository) ListActive(ctx context.Context) ([]*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE is_active = true ORDER BY apartment_id`
	return r.list(ctx, query)
}

// ListByTenant returns the tenant's contract history joined with apartment details
func (r *PostgresContractRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Contract, error) {
	query := `
		SELECT c.contract_id, COALESCE(c.tenant_id, ''), c.apartment_id,
		       to_char(c.start_date, 'YYYY-MM-DD'), to_char(c.end_date, 'YYYY-MM-DD'), c.deposit_amount, c.is_active,
		       a.apartment_id, a.apartment_number, a.price
		FROM contracts c
		INNER JOIN apartments a ON a.apartment_id = c.apartment_id
		WHERE c.tenant_id = $1
		ORDER BY c.start_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Contract{}
	for rows.Next() {
		c := &domain.Contract{Apartment: &domain.ApartmentSummary{}}
		err := rows.Scan(
			&c.ID, &c.TenantID, &c.ApartmentID, &c.StartDate, &c.EndDate, &c.DepositAmount, &c.IsActive,
			&c.Apartment.ID, &c.Apartment.Number, &c.Apartment.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresContractRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	out := []*domain.Contract{}
	for rows.Next() {
		c := &domain.Contract{}
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ApartmentID, &c.StartDate, &c.EndDate, &c.DepositAmount, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
