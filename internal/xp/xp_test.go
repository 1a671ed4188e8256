package xp

import (
	"testing"

	"github.com/scalecode-solutions/famboard/internal/models"
)

func subtask(status models.SubtaskStatus, xpValue int) *models.Subtask {
	return &models.Subtask{Status: status, XPValue: xpValue}
}

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		totalXP int
		want    int
	}{
		{-50, 0},
		{0, 0},
		{99, 0},
		{100, 1},
		{199, 1},
		{200, 2},
		{1050, 10},
	}
	for _, tc := range cases {
		if got := CalculateLevel(tc.totalXP); got != tc.want {
			t.Errorf("CalculateLevel(%d) = %d, want %d", tc.totalXP, got, tc.want)
		}
	}
}

func TestProgressForTotalXP(t *testing.T) {
	got := ProgressForTotalXP(135)
	want := Progress{Level: 1, XPIntoLevel: 35, XPToNextLevel: 65, ProgressPercent: 35}
	if got != want {
		t.Fatalf("ProgressForTotalXP(135) = %+v, want %+v", got, want)
	}
}

func TestProgressForTotalXPBoundaries(t *testing.T) {
	got := ProgressForTotalXP(0)
	if got.Level != 0 || got.XPIntoLevel != 0 || got.XPToNextLevel != 100 || got.ProgressPercent != 0 {
		t.Fatalf("ProgressForTotalXP(0) = %+v", got)
	}

	got = ProgressForTotalXP(200)
	if got.Level != 2 || got.XPIntoLevel != 0 || got.ProgressPercent != 0 {
		t.Fatalf("ProgressForTotalXP(200) = %+v", got)
	}

	got = ProgressForTotalXP(-10)
	if got.Level != 0 || got.XPIntoLevel != 0 {
		t.Fatalf("ProgressForTotalXP(-10) = %+v", got)
	}
}

func TestCalculateUserTotalXP(t *testing.T) {
	events := []*models.XPEvent{
		{Delta: 30},
		{Delta: -10},
		{Delta: 25},
	}
	if got := CalculateUserTotalXP(events); got != 45 {
		t.Fatalf("CalculateUserTotalXP = %d, want 45", got)
	}
	if got := CalculateUserTotalXP(nil); got != 0 {
		t.Fatalf("CalculateUserTotalXP(nil) = %d, want 0", got)
	}
}

func TestCalculateDayTotalXP(t *testing.T) {
	day := &models.PlanDay{Subtasks: []*models.Subtask{
		subtask(models.SubtaskStatusApproved, 10),
		subtask(models.SubtaskStatusApproved, 20),
	}}
	// 30 base + 20 completion bonus.
	if got := CalculateDayTotalXP(day); got != 50 {
		t.Fatalf("complete day total = %d, want 50", got)
	}

	day.Subtasks = append(day.Subtasks, subtask(models.SubtaskStatusSubmitted, 15))
	// Incomplete day earns only the approved base.
	if got := CalculateDayTotalXP(day); got != 30 {
		t.Fatalf("incomplete day total = %d, want 30", got)
	}
}

func TestCalculateDayTotalXPEmptyDay(t *testing.T) {
	day := &models.PlanDay{}
	if !IsDayComplete(day) {
		t.Fatal("empty day should count as complete")
	}
	if IsDayBonusEligible(day) {
		t.Fatal("empty day should not earn the bonus")
	}
	if got := CalculateDayTotalXP(day); got != 0 {
		t.Fatalf("empty day total = %d, want 0", got)
	}
}

func TestCalculatePlanTotalXP(t *testing.T) {
	plan := &models.Plan{Days: []*models.PlanDay{
		{DayIndex: 0, Subtasks: []*models.Subtask{
			subtask(models.SubtaskStatusApproved, 10),
			subtask(models.SubtaskStatusApproved, 20),
		}},
		{DayIndex: 1, Subtasks: []*models.Subtask{
			subtask(models.SubtaskStatusApproved, 20),
		}},
	}}
	// 30 + 20 subtasks, two day bonuses, one plan bonus: 50+20+20+20+50.
	if got := CalculatePlanTotalXP(plan); got != 140 {
		t.Fatalf("plan total = %d, want 140", got)
	}

	plan.Days[1].Subtasks[0].Status = models.SubtaskStatusSubmitted
	// Only day 0 complete: 30 + 20 day bonus.
	if got := CalculatePlanTotalXP(plan); got != 50 {
		t.Fatalf("partial plan total = %d, want 50", got)
	}
}

func TestIsPlanComplete(t *testing.T) {
	plan := &models.Plan{Days: []*models.PlanDay{
		{Subtasks: []*models.Subtask{subtask(models.SubtaskStatusApproved, 10)}},
		{},
	}}
	if !IsPlanComplete(plan) {
		t.Fatal("plan with all days complete should be complete")
	}

	empty := &models.Plan{Days: []*models.PlanDay{{}, {}}}
	if IsPlanComplete(empty) {
		t.Fatal("plan with no subtasks anywhere should not be complete")
	}
}

func TestCalculatePlanBlueprintTotalXP(t *testing.T) {
	plan := &models.Plan{Days: []*models.PlanDay{
		{Subtasks: []*models.Subtask{
			subtask(models.SubtaskStatusPending, 10),
			subtask(models.SubtaskStatusPending, 20),
		}},
		{Subtasks: []*models.Subtask{
			subtask(models.SubtaskStatusDenied, 20),
		}},
	}}
	// 50 base + 2 day bonuses + plan bonus.
	if got := CalculatePlanBlueprintTotalXP(plan); got != 140 {
		t.Fatalf("blueprint total = %d, want 140", got)
	}

	if got := CalculatePlanBlueprintTotalXP(&models.Plan{}); got != 0 {
		t.Fatalf("empty blueprint total = %d, want 0", got)
	}
}

func TestReasonLabel(t *testing.T) {
	if got := ReasonLabel(ReasonSubtaskApproved); got != "Subtask approved" {
		t.Fatalf("ReasonLabel(%q) = %q", ReasonSubtaskApproved, got)
	}
	if got := ReasonLabel("manual.adjustment"); got != "Manual Adjustment" {
		t.Fatalf("ReasonLabel fallback = %q", got)
	}
}
