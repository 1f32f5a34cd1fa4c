package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

const apartmentColumns = `apartment_id, type_id, manager_id, apartment_number, area, price, furniture, status`

const apartmentWithTypeQuery = `
	SELECT a.apartment_id, a.type_id, a.manager_id, a.apartment_number, a.area, a.price, a.furniture, a.status,
	       rt.type_id, rt.type_name, rt.base_price, rt.description
	FROM apartments a
	INNER JOIN room_types rt ON rt.type_id = a.type_id
`

// PostgresApartmentRepository implements domain.ApartmentRepository using PostgreSQL
type PostgresApartmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresApartmentRepository creates a new apartment repository
func NewPostgresApartmentRepository(db *sql.DB, logger *slog.Logger) *PostgresApartmentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresApartmentRepository{db: db, logger: logger}
}

// Create inserts a new apartment
func (r *PostgresApartmentRepository) Create(ctx context.Context, a *domain.Apartment) error {
	query := `
		INSERT INTO apartments (apartment_id, type_id, manager_id, apartment_number, area, price, furniture, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.TypeID, a.ManagerID, a.Number, a.Area, a.Price, a.Furniture, string(a.Status),
	)
	if err != nil {
		r.logger.Error("failed to create apartment",
			slog.String("apartment_id", a.ID),
			slog.String("error", err.Error()),
		)
		return classifyWrite("create apartment", err)
	}
	return nil
}

// GetByID retrieves an apartment joined with its room type
func (r *PostgresApartmentRepository) GetByID(ctx context.Context, id string) (*domain.Apartment, error) {
	row := r.db.QueryRowContext(ctx, apartmentWithTypeQuery+` WHERE a.apartment_id = $1`, id)
	a, err := scanApartmentWithType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get apartment: %w", err)
	}
	return a, nil
}

// List returns every apartment ordered by unit number
func (r *PostgresApartmentRepository) List(ctx context.Context) ([]*domain.Apartment, error) {
	rows, err := r.db.QueryContext(ctx, apartmentWithTypeQuery+` ORDER BY a.apartment_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list apartments: %w", err)
	}
	defer rows.Close()

	out := []*domain.Apartment{}
	for rows.Next() {
		a, err := scanApartmentWithType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan apartment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update applies the whitelisted apartment fields
func (r *PostgresApartmentRepository) Update(ctx context.Context, id string, u domain.ApartmentUpdate) (*domain.Apartment, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	var set setList
	if u.TypeID != nil {
		set.add("type_id", *u.TypeID)
	}
	if u.Number != nil {
		set.add("apartment_number", *u.Number)
	}
	if u.Area != nil {
		set.add("area", *u.Area)
	}
	if u.Price != nil {
		set.add("price", *u.Price)
	}
	if u.Furniture != nil {
		set.add("furniture", *u.Furniture)
	}

	query := fmt.Sprintf(`UPDATE apartments SET %s WHERE apartment_id = $%d RETURNING %s`,
		set.clause(), set.next(), apartmentColumns)
	a, err := scanApartment(r.db.QueryRowContext(ctx, query, append(set.args, id)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
		}
		return nil, classifyWrite("update apartment", err)
	}
	return a, nil
}

// SetStatus overwrites the status unconditionally (manager override)
func (r *PostgresApartmentRepository) SetStatus(ctx context.Context, id string, status domain.ApartmentStatus) (*domain.Apartment, error) {
	query := `UPDATE apartments SET status = $1 WHERE apartment_id = $2 RETURNING ` + apartmentColumns
	a, err := scanApartment(r.db.QueryRowContext(ctx, query, string(status), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to set apartment status: %w", err)
	}
	return a, nil
}

// Delete removes an apartment; referenced apartments yield ErrInUse
func (r *PostgresApartmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM apartments WHERE apartment_id = $1`, id)
	if err != nil {
		return classifyDelete("delete apartment", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetStatus reads only the status column
func (r *PostgresApartmentRepository) GetStatus(ctx context.Context, id string) (domain.ApartmentStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM apartments WHERE apartment_id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("apartment %s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("failed to read apartment status: %w", err)
	}
	return domain.ApartmentStatus(status), nil
}

// TransitionStatus is a guarded update: it only matches while the row still holds from
func (r *PostgresApartmentRepository) TransitionStatus(ctx context.Context, id string, from, to domain.ApartmentStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE apartments SET status = $1 WHERE apartment_id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update apartment status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows == 1, nil
}

func scanApartment(row rowScanner) (*domain.Apartment, error) {
	a := &domain.Apartment{}
	var status string
	if err := row.Scan(&a.ID, &a.TypeID, &a.ManagerID, &a.Number, &a.Area, &a.Price, &a.Furniture, &status); err != nil {
		return nil, err
	}
	a.Status = domain.ApartmentStatus(status)
	return a, nil
}

func scanApartmentWithType(row rowScanner) (*domain.Apartment, error) {
	a := &domain.Apartment{}
	rt := &domain.RoomType{}
	var status string
	var description sql.NullString
	err := row.Scan(
		&a.ID, &a.TypeID, &a.ManagerID, &a.Number, &a.Area, &a.Price, &a.Furniture, &status,
		&rt.ID, &rt.Name, &rt.BasePrice, &description,
	)
	if err != nil {
		return nil, err
	}
	a.Status = domain.ApartmentStatus(status)
	if description.Valid {
		rt.Description = &description.String
	}
	a.RoomType = rt
	return a, nil
}
