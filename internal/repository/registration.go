package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/pinguard/pinguard/internal/model"
)

const registrationColumns = `id, owner_id, pin_code, door_ids, restrictions, created_at, updated_at`

// SaveRegistration upserts on the (owner_id, pin_code) unique constraint in one statement.
func (r *Repository) SaveRegistration(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	if !validKey(reg) {
		return nil, ErrInvalidRegistration
	}

	restrictions, err := json.Marshal(model.CloneRestrictions(reg.Restrictions))
	if err != nil {
		return nil, fmt.Errorf("marshal restrictions: %w", err)
	}

	id := reg.ID
	if id == "" {
		id = ulid.Make().String()
	}
	doorIDs := reg.DoorIDs
	if doorIDs == nil {
		doorIDs = []string{}
	}

	query := `
		INSERT INTO pin_registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (owner_id, pin_code) DO UPDATE
		SET door_ids = EXCLUDED.door_ids,
		    restrictions = EXCLUDED.restrictions,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + registrationColumns

	saved, err := scanRegistration(r.pool.QueryRow(ctx, query,
		id,
		reg.OwnerID,
		reg.PinCode,
		pq.Array(doorIDs),
		restrictions,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}
	return saved, nil
}

// GetRegistration retrieves a registration by key.
func (r *Repository) GetRegistration(ctx context.Context, ownerID, pinCode string) (*model.Registration, bool, error) {
	query := `SELECT ` + registrationColumns + ` FROM pin_registrations WHERE owner_id = $1 AND pin_code = $2`

	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, ownerID, pinCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, true, nil
}

// DeleteRegistration hard-deletes a registration by key.
func (r *Repository) DeleteRegistration(ctx context.Context, ownerID, pinCode string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM pin_registrations WHERE owner_id = $1 AND pin_code = $2`,
		ownerID, pinCode,
	)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// ListRegistrations returns all registrations, oldest first.
func (r *Repository) ListRegistrations(ctx context.Context) ([]*model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM pin_registrations ORDER BY created_at, id`
	return r.queryRegistrations(ctx, query)
}

// ListRegistrationsForOwner returns one owner's registrations, oldest first.
func (r *Repository) ListRegistrationsForOwner(ctx context.Context, ownerID string) ([]*model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM pin_registrations WHERE owner_id = $1 ORDER BY created_at, id`
	return r.queryRegistrations(ctx, query, ownerID)
}

// FindRegistrationByPinCode returns the oldest registration carrying pinCode.
func (r *Repository) FindRegistrationByPinCode(ctx context.Context, pinCode string) (*model.Registration, bool, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM pin_registrations
		WHERE pin_code = $1
		ORDER BY created_at, id
		LIMIT 1
	`

	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, pinCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, true, nil
}

func (r *Repository) queryRegistrations(ctx context.Context, query string, args ...any) ([]*model.Registration, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := []*model.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}

	return regs, nil
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg          model.Registration
		doorIDs      []string
		restrictions []byte
	)

	err := row.Scan(
		&reg.ID,
		&reg.OwnerID,
		&reg.PinCode,
		pq.Array(&doorIDs),
		&restrictions,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reg.DoorIDs = doorIDs
	if reg.DoorIDs == nil {
		reg.DoorIDs = []string{}
	}
	reg.Restrictions = []model.AccessRestriction{}
	if len(restrictions) > 0 {
		if err := json.Unmarshal(restrictions, &reg.Restrictions); err != nil {
			return nil, fmt.Errorf("unmarshal restrictions: %w", err)
		}
	}
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()

	return &reg, nil
}
