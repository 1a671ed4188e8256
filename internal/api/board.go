package api

import (
	"net/http"

	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/progress"
	"github.com/scalecode-solutions/famboard/internal/xp"
)

// Board endpoint

// GetBoard returns the family dashboard: every active member with their
// ledger-derived level and plan counts, plus plan summaries and the family
// XP total.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.db.ListActiveUsers(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	plans, err := h.db.ListPlans(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	userNames := make(map[int64]string, len(users))
	activePlans := make(map[int64]int)
	completedPlans := make(map[int64]int)
	for _, user := range users {
		userNames[user.ID] = user.DisplayName
	}
	for _, plan := range plans {
		if !plan.AssigneeUserID.Valid {
			continue
		}
		switch plan.Status {
		case models.PlanStatusInProgress:
			activePlans[plan.AssigneeUserID.Int64]++
		case models.PlanStatusComplete:
			completedPlans[plan.AssigneeUserID.Int64]++
		}
	}

	resp := models.BoardResponse{
		Users: make([]models.BoardUser, 0, len(users)),
		Plans: make([]models.PlanSummary, 0, len(plans)),
	}

	for _, user := range users {
		total, err := h.db.UserTotalXP(ctx, user.ID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		prog := xp.ProgressForTotalXP(total)
		resp.FamilyTotalXP += total
		resp.Users = append(resp.Users, models.BoardUser{
			ID:              user.ID,
			DisplayName:     user.DisplayName,
			Avatar:          nullStringPtr(user.Avatar),
			TotalXP:         total,
			Level:           prog.Level,
			XPIntoLevel:     prog.XPIntoLevel,
			XPToNextLevel:   prog.XPToNextLevel,
			ProgressPercent: prog.ProgressPercent,
			ActivePlans:     activePlans[user.ID],
			CompletedPlans:  completedPlans[user.ID],
		})
	}

	for _, plan := range plans {
		if plan.Status == models.PlanStatusArchived {
			continue
		}
		aggregate, err := h.db.GetPlanAggregate(ctx, plan.ID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		planProgress := progress.CalculatePlanProgress(aggregate, nil)

		summary := models.PlanSummary{
			ID:              plan.ID,
			Title:           plan.Title,
			Status:          plan.Status,
			TotalXP:         plan.TotalXP,
			AssigneeUserID:  nullInt64Ptr(plan.AssigneeUserID),
			ProgressPercent: planProgress.PercentComplete(),
			CompletedDays:   planProgress.CompletedDays,
			TotalDays:       planProgress.TotalDays,
			CreatedAt:       formatTime(plan.CreatedAt),
		}
		if plan.AssigneeUserID.Valid {
			if name, ok := userNames[plan.AssigneeUserID.Int64]; ok {
				summary.AssigneeName = &name
			}
		}
		resp.Plans = append(resp.Plans, summary)
	}

	writeJSON(w, http.StatusOK, resp)
}
