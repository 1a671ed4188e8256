package api

import (
	"encoding/json"
	"net/http"

	"github.com/scalecode-solutions/famboard/internal/db"
	"github.com/scalecode-solutions/famboard/internal/models"
)

// Device endpoints

// GetMyDevice returns the calling device.
func (h *Handler) GetMyDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := getDevice(r)

	var linkedUserName *string
	if device.LinkedUserID.Valid {
		if user, err := h.db.GetUser(ctx, device.LinkedUserID.Int64); err == nil {
			linkedUserName = &user.DisplayName
		}
	}
	writeJSON(w, http.StatusOK, toDeviceDTO(device, linkedUserName))
}

// LinkDevice links the calling device to a user identity, or unlinks it
// when userId is null.
func (h *Handler) LinkDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := getDevice(r)

	var req models.LinkDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	var linkedUserName *string
	if req.UserID != nil {
		user, err := h.db.GetUser(ctx, *req.UserID)
		if err == db.ErrNotFound {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
			return
		}
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		linkedUserName = &user.DisplayName
	}

	updated, err := h.db.LinkDevice(ctx, device.ID, req.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeviceDTO(updated, linkedUserName))
}
