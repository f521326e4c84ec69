package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pinguard/pinguard/internal/model"
)

// SeedDoors upserts doors by id. Listing order follows the slice order.
func (r *Repository) SeedDoors(ctx context.Context, doors []model.Door) error {
	query := `
		INSERT INTO doors (id, name, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, position = EXCLUDED.position
	`

	batch := &pgx.Batch{}
	for i, d := range doors {
		batch.Queue(query, d.ID, d.Name, i)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed doors: %w", err)
	}
	return nil
}

// ListDoors returns all doors in seed order.
func (r *Repository) ListDoors(ctx context.Context) ([]model.Door, error) {
	query := `SELECT id, name FROM doors ORDER BY position, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list doors: %w", err)
	}
	defer rows.Close()

	doors := []model.Door{}
	for rows.Next() {
		var d model.Door
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan door: %w", err)
		}
		doors = append(doors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate doors: %w", err)
	}

	return doors, nil
}

// GetDoor looks up a door by id.
func (r *Repository) GetDoor(ctx context.Context, id string) (model.Door, bool, error) {
	var d model.Door
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM doors WHERE id = $1`, id).Scan(&d.ID, &d.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Door{}, false, nil
		}
		return model.Door{}, false, fmt.Errorf("failed to get door: %w", err)
	}
	return d, true, nil
}
