package service

import (
	"fmt"
	"unicode/utf8"

	"github.com/pinguard/pinguard/internal/apperror"
	"github.com/pinguard/pinguard/internal/model"
)

func validateShape(ownerID, pinCode string, doorIDs []string, restrictions []model.AccessRestriction) error {
	details := validateKey(ownerID, pinCode)
	if len(doorIDs) == 0 {
		details = append(details, "at least one door id is required")
	}
	details = append(details, validateRestrictions(restrictions)...)

	if len(details) > 0 {
		return apperror.Validation("invalid registration", details...)
	}
	return nil
}

func validateKey(ownerID, pinCode string) []string {
	var details []string
	if ownerID == "" {
		details = append(details, "owner id is required")
	}
	if n := utf8.RuneCountInString(pinCode); n < model.MinPinCodeLength || n > model.MaxPinCodeLength {
		details = append(details, fmt.Sprintf("PIN code must be between %d and %d characters long",
			model.MinPinCodeLength, model.MaxPinCodeLength))
	}
	return details
}

func validateRestrictions(restrictions []model.AccessRestriction) []string {
	var details []string
	for i, r := range restrictions {
		if r.Inverted() {
			details = append(details, fmt.Sprintf("restriction %d: validFrom is after validTo", i))
		}
	}
	return details
}
