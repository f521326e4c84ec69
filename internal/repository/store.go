package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinguard/pinguard/internal/model"
)

// Common errors for registration store operations.
var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInvalidRegistration  = errors.New("registration must have an owner and a pin code")
)

// DoorDirectory is the read-only set of known doors.
type DoorDirectory interface {
	ListDoors(ctx context.Context) ([]model.Door, error)
	GetDoor(ctx context.Context, id string) (model.Door, bool, error)
}

// RegistrationStore owns the (owner, pin) -> registration index.
// It performs no business validation beyond key presence.
//
// Implementations must make SaveRegistration and DeleteRegistration atomic per key
// and must return copies, never references into their own state.
type RegistrationStore interface {
	// SaveRegistration upserts by (OwnerID, PinCode) and returns the stored record.
	// An existing record keeps its ID and CreatedAt.
	SaveRegistration(ctx context.Context, reg *model.Registration) (*model.Registration, error)
	// GetRegistration returns found=false with a nil error on a miss.
	GetRegistration(ctx context.Context, ownerID, pinCode string) (*model.Registration, bool, error)
	// DeleteRegistration returns ErrRegistrationNotFound on a miss.
	DeleteRegistration(ctx context.Context, ownerID, pinCode string) error
	ListRegistrations(ctx context.Context) ([]*model.Registration, error)
	ListRegistrationsForOwner(ctx context.Context, ownerID string) ([]*model.Registration, error)
	// FindRegistrationByPinCode scans every owner and returns the earliest-registered match.
	FindRegistrationByPinCode(ctx context.Context, pinCode string) (*model.Registration, bool, error)
}

// MissingDoors returns every id in ids the directory does not know, in input order.
func MissingDoors(ctx context.Context, dir DoorDirectory, ids []string) ([]string, error) {
	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		_, ok, err := dir.GetDoor(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup door %q: %w", id, err)
		}
		if !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func validKey(reg *model.Registration) bool {
	return reg != nil && reg.OwnerID != "" && reg.PinCode != ""
}
