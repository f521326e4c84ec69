// Package handler provides HTTP request handlers.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pinguard/pinguard/internal/apperror"
	"github.com/pinguard/pinguard/internal/handler/dto"
	"github.com/pinguard/pinguard/internal/model"
	"github.com/pinguard/pinguard/internal/service"
)

// Error codes used by handlers in addition to the apperror kinds.
const (
	codeInvalidJSON      = "INVALID_JSON"
	codeUnauthorized     = "UNAUTHORIZED"
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// RegistrationService is the application surface the handlers drive.
type RegistrationService interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.Registration, error)
	Update(ctx context.Context, input service.UpdateInput) (*model.Registration, error)
	Revoke(ctx context.Context, ownerID, pinCode string) error
	CheckAccess(ctx context.Context, ownerID, pinCode, doorID string, at time.Time) (bool, error)
	ValidateAccess(ctx context.Context, doorID, pinCode string, at time.Time) (bool, error)
	ListAll(ctx context.Context) ([]*model.Registration, error)
	ListForOwner(ctx context.Context, ownerID string) ([]*model.Registration, error)
	ListDoors(ctx context.Context) ([]model.Door, error)
}

// NotFound handles unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "resource not found")
}

// MethodNotAllowed handles routes matched with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

// decodeJSON reads a single JSON object from the body. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// handleServiceError maps apperror kinds to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal("internal error", err)
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		writeErrorDetails(w, http.StatusBadRequest, string(appErr.Kind), appErr.Message, appErr.Details)
	case apperror.KindNotFound:
		writeError(w, http.StatusNotFound, string(appErr.Kind), appErr.Message)
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, string(apperror.KindInternal), "an internal error occurred")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorDetails(w, status, code, message, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details []string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
