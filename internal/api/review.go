package api

import (
	"encoding/json"
	"net/http"

	"github.com/scalecode-solutions/famboard/internal/db"
	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/review"
)

// Review endpoints

// GetReviewQueue lists submitted subtasks awaiting a decision, each with
// the latest submission and the calling device's can-approve verdict.
func (h *Handler) GetReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := getDevice(r)

	actor, err := h.resolveActor(ctx, device, nil)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	rows, err := h.db.ListReviewQueue(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]models.QueueItem, 0, len(rows))
	for _, row := range rows {
		var assigneeUserID *int64
		if row.AssigneeUserID.Valid {
			id := row.AssigneeUserID.Int64
			assigneeUserID = &id
		}
		allowed, message := review.CanApprove(assigneeUserID, actor)

		item := models.QueueItem{
			SubtaskID:       row.ID,
			SubtaskText:     row.Text,
			XPValue:         row.XPValue,
			PlanID:          row.PlanID,
			PlanTitle:       row.PlanTitle,
			AssigneeName:    nullStringPtr(row.AssigneeName),
			DayNumber:       row.DayIndex + 1,
			DayTitle:        row.DayTitle,
			ApprovalAllowed: allowed,
		}
		if message != "" {
			item.ApprovalMessage = &message
		}
		if row.Submission != nil {
			dto := toSubmissionDTO(row.Submission)
			item.LatestSubmission = &dto
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ApproveSubtask approves the latest submission on a subtask.
func (h *Handler) ApproveSubtask(w http.ResponseWriter, r *http.Request) {
	h.decideSubtask(w, r, models.ApprovalActionApprove)
}

// DenySubtask denies the latest submission on a subtask.
func (h *Handler) DenySubtask(w http.ResponseWriter, r *http.Request) {
	h.decideSubtask(w, r, models.ApprovalActionDeny)
}

func (h *Handler) decideSubtask(w http.ResponseWriter, r *http.Request, action models.ApprovalAction) {
	ctx := r.Context()
	device := getDevice(r)

	subtaskID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid subtask id")
		return
	}

	var req models.ReviewDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	actor, err := h.resolveActor(ctx, device, req.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var result *db.DecisionResult
	if action == models.ApprovalActionApprove {
		result, err = h.db.ApproveSubtask(ctx, subtaskID, actor, req)
	} else {
		result, err = h.db.DenySubtask(ctx, subtaskID, actor, req)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := models.DecisionResponse{
		SubtaskID:  result.Subtask.ID,
		Status:     result.Subtask.Status,
		PlanStatus: result.Plan.Status,
	}
	if result.XPEvent != nil {
		resp.XPAwarded = result.XPEvent.Delta
	}
	writeJSON(w, http.StatusOK, resp)
}
