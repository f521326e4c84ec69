package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pinguard/pinguard/internal/handler/dto"
)

// DoorHandler serves the door-side endpoints: the directory and PIN entry.
type DoorHandler struct {
	svc    RegistrationService
	logger *slog.Logger
	now    func() time.Time
}

// NewDoorHandler creates a new DoorHandler.
func NewDoorHandler(svc RegistrationService, logger *slog.Logger) *DoorHandler {
	return &DoorHandler{
		svc:    svc,
		logger: logger.With("component", "door_handler"),
		now:    time.Now,
	}
}

// Routes mounts the handler under /doors.
func (h *DoorHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{doorId}", h.ValidateAccess)
}

// List handles GET /api/v1/doors.
func (h *DoorHandler) List(w http.ResponseWriter, r *http.Request) {
	doors, err := h.svc.ListDoors(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDoorList(doors))
}

// ValidateAccess handles POST /api/v1/doors/{doorId}: a PIN typed at a door.
func (h *DoorHandler) ValidateAccess(w http.ResponseWriter, r *http.Request) {
	var req dto.DoorAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body: "+err.Error())
		return
	}

	doorID := chi.URLParam(r, "doorId")
	at := resolveTimestamp(req.SimulatedTimestamp, h.now)

	granted, err := h.svc.ValidateAccess(r.Context(), doorID, req.PinCode, at)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccessResponse{
		DoorID:        doorID,
		AccessGranted: granted,
		CheckedAt:     at,
	})
}
