package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

// PostgresIdentityRepository implements domain.IdentityRepository using PostgreSQL
type PostgresIdentityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresIdentityRepository creates a new identity repository
func NewPostgresIdentityRepository(db *sql.DB, logger *slog.Logger) *PostgresIdentityRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresIdentityRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new identity; the caller supplies the id
func (r *PostgresIdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		identity.Role.String(),
	).Scan(&identity.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create identity",
			slog.String("email", identity.Email),
			slog.String("error", err.Error()),
		)
		return classifyWrite("create identity", err)
	}

	return nil
}

// GetByID retrieves an identity by ID
func (r *PostgresIdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM identities
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an identity by email
func (r *PostgresIdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM identities
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// Delete removes an identity. Profiles cascade through their foreign keys.
func (r *PostgresIdentityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return classifyDelete("delete identity", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("identity %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresIdentityRepository) scanOne(row *sql.Row) (*domain.Identity, error) {
	identity := &domain.Identity{}
	var role string

	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&role,
		&identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identity: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	identity.Role, err = domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("identity %s has invalid role: %w", identity.ID, err)
	}

	return identity, nil
}

// PostgresManagerRepository implements domain.ManagerRepository using PostgreSQL
type PostgresManagerRepository struct {
	db *sql.DB
}

// NewPostgresManagerRepository creates a new manager profile repository
func NewPostgresManagerRepository(db *sql.DB) *PostgresManagerRepository {
	return &PostgresManagerRepository{db: db}
}

func (r *PostgresManagerRepository) Create(ctx context.Context, manager *domain.Manager) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO managers (user_id, email) VALUES ($1, $2)`,
		manager.UserID, manager.Email,
	)
	if err != nil {
		return classifyWrite("create manager", err)
	}
	return nil
}

func (r *PostgresManagerRepository) GetByID(ctx context.Context, userID string) (*domain.Manager, error) {
	m := &domain.Manager{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email FROM managers WHERE user_id = $1`, userID,
	).Scan(&m.UserID, &m.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("manager: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get manager: %w", err)
	}
	return m, nil
}
