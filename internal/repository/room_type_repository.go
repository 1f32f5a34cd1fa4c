package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aryan0dhankhar/aptlease/internal/domain"
)

// PostgresRoomTypeRepository implements domain.RoomTypeRepository using PostgreSQL
type PostgresRoomTypeRepository struct {
	db *sql.DB
}

// NewPostgresRoomTypeRepository creates a new room type repository
func NewPostgresRoomTypeRepository(db *sql.DB) *PostgresRoomTypeRepository {
	return &PostgresRoomTypeRepository{db: db}
}

func (r *PostgresRoomTypeRepository) Create(ctx context.Context, rt *domain.RoomType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_types (type_id, type_name, base_price, description) VALUES ($1, $2, $3, $4)`,
		rt.ID, rt.Name, rt.BasePrice, rt.Description,
	)
	if err != nil {
		return classifyWrite("create room type", err)
	}
	return nil
}

func (r *PostgresRoomTypeRepository) GetByID(ctx context.Context, id string) (*domain.RoomType, error) {
	rt, err := scanRoomType(r.db.QueryRowContext(ctx,
		`SELECT type_id, type_name, base_price, description FROM room_types WHERE type_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room type %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room type: %w", err)
	}
	return rt, nil
}

func (r *PostgresRoomTypeRepository) List(ctx context.Context) ([]*domain.RoomType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type_id, type_name, base_price, description FROM room_types ORDER BY type_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	defer rows.Close()

	out := []*domain.RoomType{}
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room type: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *PostgresRoomTypeRepository) Update(ctx context.Context, id string, u domain.RoomTypeUpdate) (*domain.RoomType, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}

	var set setList
	if u.Name != nil {
		set.add("type_name", *u.Name)
	}
	if u.BasePrice != nil {
		set.add("base_price", *u.BasePrice)
	}
	if u.Description != nil {
		set.add("description", *u.Description)
	}

	query := fmt.Sprintf(`UPDATE room_types SET %s WHERE type_id = $%d RETURNING type_id, type_name, base_price, description`,
		set.clause(), set.next())
	rt, err := scanRoomType(r.db.QueryRowContext(ctx, query, append(set.args, id)...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room type %s: %w", id, domain.ErrNotFound)
		}
		return nil, classifyWrite("update room type", err)
	}
	return rt, nil
}

func (r *PostgresRoomTypeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM room_types WHERE type_id = $1`, id)
	if err != nil {
		return classifyDelete("delete room type", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("room type %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanRoomType(row rowScanner) (*domain.RoomType, error) {
	rt := &domain.RoomType{}
	var description sql.NullString
	if err := row.Scan(&rt.ID, &rt.Name, &rt.BasePrice, &description); err != nil {
		return nil, err
	}
	if description.Valid {
		rt.Description = &description.String
	}
	return rt, nil
}
