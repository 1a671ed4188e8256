package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/scalecode-solutions/famboard/internal/imaging"

	"go.uber.org/zap"
)

// Submission intake

// maxUploadBytes caps photo evidence uploads at 15MB.
const maxUploadBytes = 15 << 20

// CreateSubmission accepts multipart photo evidence plus an optional
// comment for a subtask and moves it into review.
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := getDevice(r)

	subtaskID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid subtask id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart form")
		return
	}

	var photoPath, thumbPath *string
	if file, _, err := r.FormFile("photo"); err == nil {
		raw, readErr := io.ReadAll(file)
		file.Close()
		if readErr != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to read uploaded photo")
			return
		}
		result, procErr := h.photos.Process(raw)
		if procErr != nil {
			var pe *imaging.ProcessingError
			if errors.As(procErr, &pe) && pe.Code != imaging.CodeStorageError {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", pe.Message)
				return
			}
			h.log.Error("photo processing failed", zap.Int64("subtask_id", subtaskID), zap.Error(procErr))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unable to store uploaded photo")
			return
		}
		photoPath = &result.PhotoPath
		thumbPath = &result.ThumbPath
	}

	var comment *string
	if c := strings.TrimSpace(r.FormValue("comment")); c != "" {
		comment = &c
	}

	if photoPath == nil && comment == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "A photo or comment is required")
		return
	}

	var userID *int64
	if v := r.FormValue("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid userId")
			return
		}
		userID = &id
	} else if device.LinkedUserID.Valid {
		id := device.LinkedUserID.Int64
		userID = &id
	}

	submission, err := h.db.CreateSubmission(ctx, subtaskID, device.ID, userID, photoPath, thumbPath, comment)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubmissionDTO(submission))
}
