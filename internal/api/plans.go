package api

import (
	"net/http"

	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/progress"
	"github.com/scalecode-solutions/famboard/internal/review"
	"github.com/scalecode-solutions/famboard/internal/xp"
)

// Plan endpoints

// GetPlan returns the full plan view. The lock synchronizer runs before
// the read so stale locks self-heal on display.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device := getDevice(r)

	planID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid plan id")
		return
	}

	plan, _, err := h.db.RefreshPlan(ctx, planID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	var assigneeUserID *int64
	var assigneeName *string
	if plan.AssigneeUserID.Valid {
		id := plan.AssigneeUserID.Int64
		assigneeUserID = &id
		if assignee, err := h.db.GetUser(ctx, id); err == nil {
			assigneeName = &assignee.DisplayName
		}
	}

	actor, err := h.resolveActor(ctx, device, nil)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	canReview, reviewMessage := review.CanApprove(assigneeUserID, actor)

	cache := progress.NewCache()
	planProgress := cache.PlanProgress(plan)

	resp := models.PlanDetailResponse{
		ID:               plan.ID,
		Title:            plan.Title,
		Status:           plan.Status,
		AssigneeUserID:   assigneeUserID,
		AssigneeName:     assigneeName,
		BlueprintTotalXP: xp.CalculatePlanBlueprintTotalXP(plan),
		ProjectedTotalXP: xp.CalculatePlanTotalXP(plan),
		ProgressPercent:  planProgress.PercentComplete(),
		CompletedDays:    planProgress.CompletedDays,
		TotalDays:        planProgress.TotalDays,
		CanReview:        canReview,
		Days:             make([]models.PlanDayDetail, 0, len(plan.Days)),
		CreatedAt:        formatTime(plan.CreatedAt),
		UpdatedAt:        formatTime(plan.UpdatedAt),
	}
	if reviewMessage != "" {
		resp.ReviewMessage = &reviewMessage
	}

	for _, day := range plan.Days {
		dayProgress := cache.DayProgress(day)
		dayDetail := models.PlanDayDetail{
			ID:              day.ID,
			DayIndex:        day.DayIndex,
			DayNumber:       day.DayIndex + 1,
			Title:           day.Title,
			Locked:          day.Locked,
			Complete:        dayProgress.IsComplete(),
			ProgressPercent: dayProgress.PercentComplete(),
			TotalXP:         xp.CalculateDayTotalXP(day),
			Subtasks:        make([]models.SubtaskDetail, 0, len(day.Subtasks)),
		}

		for _, st := range day.Subtasks {
			canSubmit := !day.Locked &&
				(st.Status == models.SubtaskStatusPending || st.Status == models.SubtaskStatusDenied)
			detail := models.SubtaskDetail{
				ID:          st.ID,
				OrderIndex:  st.OrderIndex,
				Text:        st.Text,
				XPValue:     st.XPValue,
				Status:      st.Status,
				CanSubmit:   canSubmit,
				Submissions: make([]models.SubmissionDTO, 0, len(st.Submissions)),
			}
			for _, sub := range st.Submissions {
				detail.Submissions = append(detail.Submissions, toSubmissionDTO(sub))
			}
			dayDetail.Subtasks = append(dayDetail.Subtasks, detail)
		}

		resp.Days = append(resp.Days, dayDetail)
	}

	writeJSON(w, http.StatusOK, resp)
}
