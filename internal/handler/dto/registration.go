// Package dto provides the JSON request and response shapes of the API.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pinguard/pinguard/internal/model"
)

// Timestamp accepts RFC 3339 timestamps and bare "2006-01-02" dates,
// which are read as midnight UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q: expected RFC 3339 or YYYY-MM-DD", s)
}

// Restriction is one validity window on the wire.
type Restriction struct {
	ValidFrom *Timestamp `json:"validFrom,omitempty"`
	ValidTo   *Timestamp `json:"validTo,omitempty"`
}

// RestrictionResponse echoes a window with RFC 3339 bounds.
type RestrictionResponse struct {
	ValidFrom *time.Time `json:"validFrom,omitempty"`
	ValidTo   *time.Time `json:"validTo,omitempty"`
}

// RegisterRequest is the body of POST /api/v1/pin-codes.
type RegisterRequest struct {
	PinCode      string        `json:"pinCode"`
	DoorIDs      []string      `json:"doorIds"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// UpdateRequest is the body of PUT /api/v1/pin-codes/{pinCode}. Omitted
// fields keep their stored values.
type UpdateRequest struct {
	DoorIDs      []string      `json:"doorIds,omitempty"`
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// CheckAccessRequest is the body of POST /api/v1/pin-codes/{pinCode}/check.
type CheckAccessRequest struct {
	DoorID             string     `json:"doorId"`
	SimulatedTimestamp *Timestamp `json:"simulatedTimestamp,omitempty"`
}

// DoorAccessRequest is the body of POST /api/v1/doors/{doorId}.
type DoorAccessRequest struct {
	PinCode            string     `json:"pinCode"`
	SimulatedTimestamp *Timestamp `json:"simulatedTimestamp,omitempty"`
}

// RegistrationResponse represents a registration in API responses.
type RegistrationResponse struct {
	ID           string                `json:"id"`
	OwnerID      string                `json:"ownerId"`
	PinCode      string                `json:"pinCode"`
	DoorIDs      []string              `json:"doorIds"`
	Restrictions []RestrictionResponse `json:"restrictions"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// MutationResponse confirms a register or update.
type MutationResponse struct {
	Message      string                `json:"message"`
	PinCode      string                `json:"pinCode"`
	DoorIDs      []string              `json:"doorIds"`
	Restrictions []RestrictionResponse `json:"restrictions"`
}

// MessageResponse carries a bare confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccessResponse reports an access decision.
type AccessResponse struct {
	DoorID        string    `json:"doorId"`
	AccessGranted bool      `json:"accessGranted"`
	CheckedAt     time.Time `json:"checkedAt"`
}

// DoorResponse represents a door.
type DoorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// ToRestrictions converts wire windows to model windows. The result is never nil.
func ToRestrictions(in []Restriction) []model.AccessRestriction {
	out := make([]model.AccessRestriction, 0, len(in))
	for _, r := range in {
		out = append(out, model.AccessRestriction{
			ValidFrom: timePtr(r.ValidFrom),
			ValidTo:   timePtr(r.ValidTo),
		})
	}
	return out
}

// ToRestrictionResponses converts model windows for output.
func ToRestrictionResponses(in []model.AccessRestriction) []RestrictionResponse {
	out := make([]RestrictionResponse, 0, len(in))
	for _, r := range in {
		out = append(out, RestrictionResponse{ValidFrom: r.ValidFrom, ValidTo: r.ValidTo})
	}
	return out
}

// ToRegistrationResponse converts a Registration model to its DTO.
func ToRegistrationResponse(reg *model.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:           reg.ID,
		OwnerID:      reg.OwnerID,
		PinCode:      reg.PinCode,
		DoorIDs:      nonNil(reg.DoorIDs),
		Restrictions: ToRestrictionResponses(reg.Restrictions),
		CreatedAt:    reg.CreatedAt,
		UpdatedAt:    reg.UpdatedAt,
	}
}

// ToRegistrationList converts a slice of registrations; the result is never nil.
func ToRegistrationList(regs []*model.Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, ToRegistrationResponse(reg))
	}
	return out
}

// ToMutationResponse builds the confirmation for a register or update.
func ToMutationResponse(reg *model.Registration, verb string) MutationResponse {
	return MutationResponse{
		Message:      fmt.Sprintf("PIN code %s %s successfully.", reg.PinCode, verb),
		PinCode:      reg.PinCode,
		DoorIDs:      nonNil(reg.DoorIDs),
		Restrictions: ToRestrictionResponses(reg.Restrictions),
	}
}

// ToDoorList converts doors for output.
func ToDoorList(doors []model.Door) []DoorResponse {
	out := make([]DoorResponse, 0, len(doors))
	for _, d := range doors {
		out = append(out, DoorResponse{ID: d.ID, Name: d.Name})
	}
	return out
}

func timePtr(t *Timestamp) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
