package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/scalecode-solutions/famboard/internal/auth"
	"github.com/scalecode-solutions/famboard/internal/db"
	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/planimport"
	"go.uber.org/zap"
)

// Admin endpoints

// Login checks the admin password and mints a session token, returned in
// the body and as an HTTP-only cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.auth.CheckPassword(req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid password")
		return
	}

	now := time.Now().UTC()
	token, err := h.auth.IssueToken(now)
	if err != nil {
		h.log.Error("token issue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unable to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: formatTime(now.Add(auth.SessionTTL)),
	})
}

// ImportPlan parses a markdown plan document and creates the plan for the
// given assignee.
func (h *Handler) ImportPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := getDevice(r)

	var req models.ImportPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.AssigneeUserID == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "assigneeUserId is required")
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "markdown is required")
		return
	}

	parsed, err := planimport.Parse(req.Markdown)
	if err != nil {
		var parseErr *planimport.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", parseErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse plan markdown")
		return
	}

	plan, err := h.db.ImportPlan(ctx, parsed, req.AssigneeUserID, nil, device.ID)
	if err == db.ErrNotFound {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Assignee not found")
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.log.Info("plan imported",
		zap.Int64("plan_id", plan.ID),
		zap.String("title", plan.Title),
		zap.Int("days", len(plan.Days)),
	)
	writeJSON(w, http.StatusCreated, models.ImportPlanResponse{
		PlanID:  plan.ID,
		Title:   plan.Title,
		Days:    len(plan.Days),
		TotalXP: plan.TotalXP,
	})
}

// ListDevices lists every known device with its linked user name.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devices, err := h.db.ListDevices(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	users, err := h.db.ListUsers(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	userNames := make(map[int64]string, len(users))
	for _, user := range users {
		userNames[user.ID] = user.DisplayName
	}

	dtos := make([]models.DeviceDTO, 0, len(devices))
	for i := range devices {
		device := &devices[i]
		var linkedUserName *string
		if device.LinkedUserID.Valid {
			if name, ok := userNames[device.LinkedUserID.Int64]; ok {
				linkedUserName = &name
			}
		}
		dtos = append(dtos, toDeviceDTO(device, linkedUserName))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": dtos})
}

// UpdateDevice renames and/or re-links a device.
func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := mux.Vars(r)["id"]

	var req models.UpdateDeviceRequest
	body, err := readRawJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	// A present-but-null linkedUserId means unlink; an absent key means
	// leave the link alone.
	var keys map[string]json.RawMessage
	_ = json.Unmarshal(body, &keys)
	_, updateLink := keys["linkedUserId"]

	device, err := h.db.UpdateDevice(ctx, deviceID, req.FriendlyName, req.LinkedUserID, updateLink)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var linkedUserName *string
	if device.LinkedUserID.Valid {
		if user, err := h.db.GetUser(ctx, device.LinkedUserID.Int64); err == nil {
			linkedUserName = &user.DisplayName
		}
	}
	writeJSON(w, http.StatusOK, toDeviceDTO(device, linkedUserName))
}

// ListActivity returns the audit trail, newest first.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.db.ListActivity(ctx, limit, offset)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]models.ActivityEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dto := models.ActivityEntryDTO{
			ID:         entry.ID,
			Action:     entry.Action,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			DeviceID:   nullStringPtr(entry.DeviceID),
			UserID:     nullInt64Ptr(entry.UserID),
			CreatedAt:  formatTime(entry.CreatedAt),
		}
		if len(entry.Metadata) > 0 {
			var metadata interface{}
			if err := json.Unmarshal(entry.Metadata, &metadata); err == nil {
				dto.Metadata = metadata
			}
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": dtos})
}

// CreateUser creates a family member.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "displayName is required")
		return
	}
	if req.Role != "" && req.Role != models.UserRoleAdmin && req.Role != models.UserRoleUser {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid role")
		return
	}

	user, err := h.db.CreateUser(ctx, req.DisplayName, req.Role, req.Avatar)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ListUsers lists every family member with their ledger totals.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.db.ListUsers(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		total, err := h.db.UserTotalXP(ctx, user.ID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		out = append(out, map[string]interface{}{
			"id":          user.ID,
			"displayName": user.DisplayName,
			"role":        user.Role,
			"isActive":    user.IsActive,
			"totalXp":     total,
			"createdAt":   formatTime(user.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}
