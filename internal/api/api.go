// Package api provides HTTP handlers for the FamBoard portal.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/scalecode-solutions/famboard/internal/auth"
	"github.com/scalecode-solutions/famboard/internal/db"
	"github.com/scalecode-solutions/famboard/internal/imaging"
	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/review"
	"go.uber.org/zap"
)

type contextKey string

const deviceContextKey contextKey = "device"

// DeviceCookieName is the durable device identity cookie.
const DeviceCookieName = "fp_device_id"

// SessionCookieName holds the admin session JWT.
const SessionCookieName = "fb_admin_session"

const deviceCookieMaxAge = 10 * 365 * 24 * 60 * 60

// Handler provides HTTP handlers for the API.
type Handler struct {
	db     *db.DB
	auth   *auth.Authenticator
	log    *zap.Logger
	photos PhotoProcessor
}

// PhotoProcessor normalizes an uploaded photo and returns the stored
// photo and thumbnail paths.
type PhotoProcessor interface {
	Process(raw []byte) (*imaging.Result, error)
}

// New creates a new API handler.
func New(database *db.DB, authenticator *auth.Authenticator, photos PhotoProcessor, logger *zap.Logger) *Handler {
	return &Handler{
		db:     database,
		auth:   authenticator,
		photos: photos,
		log:    logger,
	}
}

// DeviceMiddleware ensures every request carries a device identity: a
// UUID cookie is minted on first contact, the matching device row is
// created or touched, and the device is placed on the request context.
func (h *Handler) DeviceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := ""
		if cookie, err := r.Cookie(DeviceCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				deviceID = cookie.Value
			}
		}
		if deviceID == "" {
			deviceID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookieName,
				Value:    deviceID,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		device, created, err := h.db.EnsureDevice(r.Context(), deviceID)
		if err != nil {
			h.log.Error("ensure device failed", zap.String("device_id", deviceID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unable to register device")
			return
		}
		if created {
			h.log.Info("device registered", zap.String("device_id", device.ID))
		}

		ctx := context.WithValue(r.Context(), deviceContextKey, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware validates the admin session JWT from the session cookie
// or a bearer header.
func (h *Handler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			token = cookie.Value
		}
		if token == "" {
			authHeader := r.Header.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing session token")
			return
		}

		if _, err := h.auth.ValidateToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs each request with its status and duration.
func (h *Handler) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func getDevice(r *http.Request) *models.Device {
	return r.Context().Value(deviceContextKey).(*models.Device)
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveActor builds the review actor for the calling device. An explicit
// acting user takes precedence over the device's linked user.
func (h *Handler) resolveActor(ctx context.Context, device *models.Device, actingUserID *int64) (review.Actor, error) {
	actor := review.Actor{Device: device}

	userID := actingUserID
	if userID == nil && device.LinkedUserID.Valid {
		id := device.LinkedUserID.Int64
		userID = &id
	}
	if userID != nil {
		user, err := h.db.GetUser(ctx, *userID)
		if err != nil {
			return actor, err
		}
		actor.User = user
	}
	return actor, nil
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// writeDomainError maps workflow errors onto the HTTP error contract.
// Callers branch on the code, not the message.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var forbidden *review.ForbiddenError
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, review.ErrInvalidMood), errors.Is(err, review.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, review.ErrNotAwaitingReview), errors.Is(err, review.ErrNoSubmission):
		writeError(w, http.StatusBadRequest, "PRECONDITION_FAILED", err.Error())
	case errors.Is(err, review.ErrStaleSubmission):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", forbidden.Message)
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// Helper functions

func readRawJSON(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	resp := models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
	writeJSON(w, status, resp)
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTimePtr(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	v := formatTime(t.Time)
	return &v
}

func toSubmissionDTO(sub *models.SubtaskSubmission) models.SubmissionDTO {
	return models.SubmissionDTO{
		ID:          sub.ID,
		SubmittedBy: sub.SubmittedByDeviceID,
		Comment:     nullStringPtr(sub.Comment),
		PhotoPath:   nullStringPtr(sub.PhotoPath),
		ThumbPath:   nullStringPtr(sub.ThumbPath),
		CreatedAt:   formatTime(sub.CreatedAt),
	}
}

func toDeviceDTO(device *models.Device, linkedUserName *string) models.DeviceDTO {
	return models.DeviceDTO{
		ID:             device.ID,
		Label:          device.Label(),
		FriendlyName:   nullStringPtr(device.FriendlyName),
		LinkedUserID:   nullInt64Ptr(device.LinkedUserID),
		LinkedUserName: linkedUserName,
		CreatedAt:      formatTime(device.CreatedAt),
		LastSeenAt:     nullTimePtr(device.LastSeenAt),
	}
}
