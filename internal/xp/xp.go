// Package xp converts the append-only XP event ledger and plan state into
// levels, progress metrics, and bonus totals. Everything here is a pure
// computation over loaded entities; nothing writes to the store.
package xp

import (
	"math"
	"strings"

	"github.com/scalecode-solutions/famboard/internal/models"
)

const (
	// XPPerLevel is the fixed width of every level.
	XPPerLevel = 100
	// DayCompletionBonus is awarded once per fully-approved day with
	// at least one subtask.
	DayCompletionBonus = 20
	// PlanCompletionBonus is awarded once per fully-complete plan.
	PlanCompletionBonus = 50
)

// Ledger reason codes. These are persisted verbatim in xp_events.
const (
	ReasonSubtaskApproved = "subtask.approved"
	ReasonDayCompleted    = "plan_day.completed"
	ReasonPlanCompleted   = "plan.completed"
)

var reasonLabels = map[string]string{
	ReasonSubtaskApproved: "Subtask approved",
	ReasonDayCompleted:    "Day completion bonus",
	ReasonPlanCompleted:   "Plan completion bonus",
}

// Progress describes a user's position within their current level.
type Progress struct {
	Level           int `json:"level"`
	XPIntoLevel     int `json:"xpIntoLevel"`
	XPToNextLevel   int `json:"xpToNextLevel"`
	ProgressPercent int `json:"progressPercent"`
}

// CalculateLevel returns the level for totalXP. Negative totals are level 0.
func CalculateLevel(totalXP int) int {
	if totalXP <= 0 {
		return 0
	}
	return totalXP / XPPerLevel
}

// ProgressForTotalXP returns level and intra-level metrics for totalXP.
// Negative input is clamped to zero.
func ProgressForTotalXP(totalXP int) Progress {
	if totalXP < 0 {
		totalXP = 0
	}
	level := CalculateLevel(totalXP)
	into := totalXP - level*XPPerLevel
	toNext := 0
	if into < XPPerLevel {
		toNext = XPPerLevel - into
	}
	percent := 0
	if into > 0 {
		percent = int(math.Round(float64(into) / XPPerLevel * 100))
		if percent > 100 {
			percent = 100
		}
	}
	return Progress{
		Level:           level,
		XPIntoLevel:     into,
		XPToNextLevel:   toNext,
		ProgressPercent: percent,
	}
}

// CalculateUserTotalXP sums event deltas. Order-independent.
func CalculateUserTotalXP(events []*models.XPEvent) int {
	total := 0
	for _, e := range events {
		total += e.Delta
	}
	return total
}

// IsDayComplete reports whether every subtask in the day has been approved.
// A day with no subtasks counts as complete.
func IsDayComplete(day *models.PlanDay) bool {
	for _, st := range day.Subtasks {
		if st.Status != models.SubtaskStatusApproved {
			return false
		}
	}
	return true
}

// IsDayBonusEligible reports whether the day earns the completion bonus.
func IsDayBonusEligible(day *models.PlanDay) bool {
	return len(day.Subtasks) > 0 && IsDayComplete(day)
}

// IsPlanComplete reports whether the plan has at least one subtask anywhere
// and every day is complete.
func IsPlanComplete(plan *models.Plan) bool {
	anySubtasks := false
	for _, day := range plan.Days {
		if len(day.Subtasks) > 0 {
			anySubtasks = true
		}
		if !IsDayComplete(day) {
			return false
		}
	}
	return anySubtasks
}

// DaySubtaskXP sums the XP values of approved subtasks in the day.
func DaySubtaskXP(day *models.PlanDay) int {
	total := 0
	for _, st := range day.Subtasks {
		if st.Status == models.SubtaskStatusApproved {
			total += st.XPValue
		}
	}
	return total
}

// CalculateDayTotalXP returns earned XP for the day including the
// completion bonus when eligible. Recomputation is idempotent: bonuses are
// derived from current state, never stored.
func CalculateDayTotalXP(day *models.PlanDay) int {
	total := DaySubtaskXP(day)
	if total > 0 && IsDayBonusEligible(day) {
		total += DayCompletionBonus
	}
	return total
}

// CalculatePlanTotalXP returns earned XP for the plan including day and
// plan completion bonuses when eligible.
func CalculatePlanTotalXP(plan *models.Plan) int {
	total := 0
	for _, day := range plan.Days {
		total += CalculateDayTotalXP(day)
	}
	if total > 0 && IsPlanComplete(plan) {
		total += PlanCompletionBonus
	}
	return total
}

// CalculatePlanBlueprintTotalXP returns the maximum XP the plan could ever
// yield, regardless of current status. Used for progress-bar denominators.
func CalculatePlanBlueprintTotalXP(plan *models.Plan) int {
	base := 0
	dayBonuses := 0
	anySubtasks := false
	for _, day := range plan.Days {
		if len(day.Subtasks) > 0 {
			anySubtasks = true
			dayBonuses += DayCompletionBonus
		}
		for _, st := range day.Subtasks {
			base += st.XPValue
		}
	}
	total := base + dayBonuses
	if anySubtasks {
		total += PlanCompletionBonus
	}
	return total
}

// ReasonLabel returns a human-friendly label for a ledger reason code.
func ReasonLabel(reason string) string {
	if label, ok := reasonLabels[reason]; ok {
		return label
	}
	cleaned := strings.NewReplacer("_", " ", ".", " ").Replace(reason)
	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
