package model

import (
	"strings"
	"time"
)

// PIN code length bounds.
const (
	MinPinCodeLength = 4
	MaxPinCodeLength = 10
)

// AccessRestriction is a validity window. A nil bound is unbounded on that side.
type AccessRestriction struct {
	ValidFrom *time.Time `json:"validFrom,omitempty"`
	ValidTo   *time.Time `json:"validTo,omitempty"`
}

// SatisfiedAt reports whether t falls inside the window. Both bounds are inclusive.
func (r AccessRestriction) SatisfiedAt(t time.Time) bool {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && t.After(*r.ValidTo) {
		return false
	}
	return true
}

// Inverted reports whether ValidFrom is after ValidTo, i.e. the window can never be satisfied.
func (r AccessRestriction) Inverted() bool {
	return r.ValidFrom != nil && r.ValidTo != nil && r.ValidFrom.After(*r.ValidTo)
}

// Registration binds a PIN code owned by a user to a set of doors.
// The identity key is (OwnerID, PinCode).
type Registration struct {
	ID           string              `json:"id"`
	OwnerID      string              `json:"ownerId"`
	PinCode      string              `json:"pinCode"`
	DoorIDs      []string            `json:"doorIds"`
	Restrictions []AccessRestriction `json:"restrictions"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Key returns the store key for the registration.
func (r *Registration) Key() RegistrationKey {
	return RegistrationKey{OwnerID: r.OwnerID, PinCode: r.PinCode}
}

// AllowsDoor reports whether doorID is in the registration's door set.
func (r *Registration) AllowsDoor(doorID string) bool {
	for _, id := range r.DoorIDs {
		if id == doorID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share slices or time pointers with the store.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	out := *r
	out.DoorIDs = append([]string(nil), r.DoorIDs...)
	if out.DoorIDs == nil {
		out.DoorIDs = []string{}
	}
	out.Restrictions = CloneRestrictions(r.Restrictions)
	return &out
}

// CloneRestrictions deep-copies a restriction list. The result is never nil.
func CloneRestrictions(in []AccessRestriction) []AccessRestriction {
	out := make([]AccessRestriction, len(in))
	for i, r := range in {
		if r.ValidFrom != nil {
			from := *r.ValidFrom
			out[i].ValidFrom = &from
		}
		if r.ValidTo != nil {
			to := *r.ValidTo
			out[i].ValidTo = &to
		}
	}
	return out
}

// NormalizeDoorIDs trims and deduplicates door ids, preserving first-seen order.
func NormalizeDoorIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RegistrationKey identifies a registration within the store.
type RegistrationKey struct {
	OwnerID string
	PinCode string
}

// String renders the key as "owner:pin".
func (k RegistrationKey) String() string {
	return k.OwnerID + ":" + k.PinCode
}

// MaskPinCode hides all but the last character of a PIN for logs.
func MaskPinCode(pin string) string {
	if len(pin) <= 1 {
		return "*"
	}
	return strings.Repeat("*", len(pin)-1) + pin[len(pin)-1:]
}
