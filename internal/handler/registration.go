package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pinguard/pinguard/internal/handler/dto"
	"github.com/pinguard/pinguard/internal/middleware"
	"github.com/pinguard/pinguard/internal/service"
)

// RegistrationHandler serves the owner-facing PIN code endpoints.
type RegistrationHandler struct {
	svc    RegistrationService
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(svc RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		svc:    svc,
		logger: logger.With("component", "registration_handler"),
		now:    time.Now,
	}
}

// Routes mounts the handler under /pin-codes. Every route except /all
// requires the owner header.
func (h *RegistrationHandler) Routes(r chi.Router) {
	r.Get("/all", h.ListAll)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOwner(h.logger))
		r.Get("/", h.ListMine)
		r.Post("/", h.Register)
		r.Put("/{pinCode}", h.Update)
		r.Delete("/{pinCode}", h.Revoke)
		r.Post("/{pinCode}/check", h.CheckAccess)
	})
}

// ListAll handles GET /api/v1/pin-codes/all.
func (h *RegistrationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRegistrationList(regs))
}

// ListMine handles GET /api/v1/pin-codes.
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	regs, err := h.svc.ListForOwner(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRegistrationList(regs))
}

// Register handles POST /api/v1/pin-codes.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), service.RegisterInput{
		OwnerID:      ownerID,
		PinCode:      req.PinCode,
		DoorIDs:      req.DoorIDs,
		Restrictions: dto.ToRestrictions(req.Restrictions),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToMutationResponse(reg, "registered"))
}

// Update handles PUT /api/v1/pin-codes/{pinCode}.
func (h *RegistrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req dto.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body: "+err.Error())
		return
	}

	input := service.UpdateInput{
		OwnerID: ownerID,
		PinCode: chi.URLParam(r, "pinCode"),
		DoorIDs: req.DoorIDs,
	}
	if req.Restrictions != nil {
		input.Restrictions = dto.ToRestrictions(req.Restrictions)
	}

	reg, err := h.svc.Update(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMutationResponse(reg, "updated"))
}

// Revoke handles DELETE /api/v1/pin-codes/{pinCode}.
func (h *RegistrationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	pinCode := chi.URLParam(r, "pinCode")
	if err := h.svc.Revoke(r.Context(), ownerID, pinCode); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "PIN code " + pinCode + " revoked successfully.",
	})
}

// CheckAccess handles POST /api/v1/pin-codes/{pinCode}/check.
func (h *RegistrationHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req dto.CheckAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body: "+err.Error())
		return
	}

	at := resolveTimestamp(req.SimulatedTimestamp, h.now)
	granted, err := h.svc.CheckAccess(r.Context(), ownerID, chi.URLParam(r, "pinCode"), req.DoorID, at)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccessResponse{
		DoorID:        req.DoorID,
		AccessGranted: granted,
		CheckedAt:     at,
	})
}

func (h *RegistrationHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid "+middleware.OwnerHeader+" header")
	}
	return ownerID, ok
}

// resolveTimestamp returns the simulated instant, or now when none was sent.
func resolveTimestamp(ts *dto.Timestamp, now func() time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return now().UTC()
	}
	return ts.Time.UTC()
}
