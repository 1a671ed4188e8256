// Package progress computes day and plan completion metrics and keeps day
// lock flags and plan status in sync with subtask state.
package progress

import (
	"math"
	"sort"
	"time"

	"github.com/scalecode-solutions/famboard/internal/models"
)

// DayProgress holds completion counts for a single plan day.
type DayProgress struct {
	ApprovedSubtasks int `json:"approvedSubtasks"`
	TotalSubtasks    int `json:"totalSubtasks"`
}

// PercentComplete returns the percentage of approved subtasks. A day with
// no subtasks reads as 100.
func (p DayProgress) PercentComplete() int {
	if p.TotalSubtasks == 0 {
		return 100
	}
	return int(math.Round(float64(p.ApprovedSubtasks) / float64(p.TotalSubtasks) * 100))
}

// IsComplete reports whether the day has no outstanding approvals.
func (p DayProgress) IsComplete() bool {
	return p.TotalSubtasks == 0 || p.ApprovedSubtasks == p.TotalSubtasks
}

// PlanProgress holds aggregate completion counts across a plan.
type PlanProgress struct {
	ApprovedSubtasks int `json:"approvedSubtasks"`
	TotalSubtasks    int `json:"totalSubtasks"`
	CompletedDays    int `json:"completedDays"`
	TotalDays        int `json:"totalDays"`
}

// PercentComplete returns the percentage of approved subtasks plan-wide.
func (p PlanProgress) PercentComplete() int {
	if p.TotalSubtasks == 0 {
		return 0
	}
	return int(math.Round(float64(p.ApprovedSubtasks) / float64(p.TotalSubtasks) * 100))
}

// DayPercentComplete returns the percentage of days marked complete.
func (p PlanProgress) DayPercentComplete() int {
	if p.TotalDays == 0 {
		return 0
	}
	return int(math.Round(float64(p.CompletedDays) / float64(p.TotalDays) * 100))
}

// IsComplete reports whether all days of a non-empty plan are complete.
func (p PlanProgress) IsComplete() bool {
	return p.TotalDays > 0 && p.CompletedDays == p.TotalDays
}

// Cache memoizes day and plan progress within one logical operation. A
// Cache must never outlive the operation that created it; sharing one
// across requests would mask concurrent mutations.
type Cache struct {
	days  map[int64]DayProgress
	plans map[int64]PlanProgress
}

// NewCache returns an empty operation-scoped cache.
func NewCache() *Cache {
	return &Cache{
		days:  make(map[int64]DayProgress),
		plans: make(map[int64]PlanProgress),
	}
}

// DayProgress returns cached or freshly computed metrics for day.
func (c *Cache) DayProgress(day *models.PlanDay) DayProgress {
	if metrics, ok := c.days[day.ID]; ok {
		return metrics
	}
	metrics := computeDayProgress(day)
	c.days[day.ID] = metrics
	return metrics
}

// PlanProgress returns cached or freshly computed metrics for plan.
func (c *Cache) PlanProgress(plan *models.Plan) PlanProgress {
	if metrics, ok := c.plans[plan.ID]; ok {
		return metrics
	}
	metrics := computePlanProgress(plan, c)
	c.plans[plan.ID] = metrics
	return metrics
}

func computeDayProgress(day *models.PlanDay) DayProgress {
	approved := 0
	for _, st := range day.Subtasks {
		if st.Status == models.SubtaskStatusApproved {
			approved++
		}
	}
	return DayProgress{ApprovedSubtasks: approved, TotalSubtasks: len(day.Subtasks)}
}

func computePlanProgress(plan *models.Plan, cache *Cache) PlanProgress {
	var agg PlanProgress
	for _, day := range orderedDays(plan) {
		agg.TotalDays++
		metrics := cache.DayProgress(day)
		agg.ApprovedSubtasks += metrics.ApprovedSubtasks
		agg.TotalSubtasks += metrics.TotalSubtasks
		if metrics.IsComplete() {
			agg.CompletedDays++
		}
	}
	return agg
}

// CalculateDayProgress returns metrics for day, using cache when non-nil.
func CalculateDayProgress(day *models.PlanDay, cache *Cache) DayProgress {
	if cache == nil {
		cache = NewCache()
	}
	return cache.DayProgress(day)
}

// CalculatePlanProgress returns aggregate metrics for plan, using cache
// when non-nil.
func CalculatePlanProgress(plan *models.Plan, cache *Cache) PlanProgress {
	if cache == nil {
		cache = NewCache()
	}
	return cache.PlanProgress(plan)
}

func orderedDays(plan *models.Plan) []*models.PlanDay {
	days := make([]*models.PlanDay, len(plan.Days))
	copy(days, plan.Days)
	sort.Slice(days, func(i, j int) bool { return days[i].DayIndex < days[j].DayIndex })
	return days
}

// SyncResult reports what RefreshPlanDayLocks mutated so the caller can
// persist only the rows that actually changed.
type SyncResult struct {
	Changed           bool
	ChangedDayIDs     []int64
	PlanStatusChanged bool
}

// RefreshPlanDayLocks walks the plan's days in day_index order, enforcing
// the strictly-sequential unlock rule: a day is locked unless every day
// before it is complete. It also resolves plan-level completion, reverting
// a previously complete plan when a day has fallen out of completion.
//
// The walk mutates the in-memory aggregate only. It is idempotent: a
// second invocation with no intervening state change reports no changes.
func RefreshPlanDayLocks(plan *models.Plan, now time.Time) SyncResult {
	var result SyncResult
	days := orderedDays(plan)

	if len(days) == 0 {
		// A plan with zero days can never be complete via this path.
		if plan.Status == models.PlanStatusComplete {
			plan.Status = models.PlanStatusInProgress
			plan.UpdatedAt = now
			result.Changed = true
			result.PlanStatusChanged = true
		}
		return result
	}

	cache := NewCache()
	previousComplete := true
	allDaysComplete := true

	for _, day := range days {
		dayComplete := cache.DayProgress(day).IsComplete()
		allDaysComplete = allDaysComplete && dayComplete

		shouldBeLocked := !previousComplete
		if day.Locked != shouldBeLocked {
			day.Locked = shouldBeLocked
			day.UpdatedAt = now
			result.Changed = true
			result.ChangedDayIDs = append(result.ChangedDayIDs, day.ID)
		}

		previousComplete = dayComplete
	}

	if allDaysComplete {
		if plan.Status != models.PlanStatusComplete {
			plan.Status = models.PlanStatusComplete
			plan.UpdatedAt = now
			result.Changed = true
			result.PlanStatusChanged = true
		}
	} else if plan.Status == models.PlanStatusComplete {
		plan.Status = models.PlanStatusInProgress
		plan.UpdatedAt = now
		result.Changed = true
		result.PlanStatusChanged = true
	}

	return result
}
