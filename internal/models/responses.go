package models

// Response shapes for the read endpoints. Levels and XP totals are always
// derived from the xp_events ledger; day and plan bonuses shown here are
// display projections, never ledger rows.

// BoardUser is one family member on the board with their ledger-derived
// level and plan counts.
type BoardUser struct {
	ID              int64   `json:"id"`
	DisplayName     string  `json:"displayName"`
	Avatar          *string `json:"avatar,omitempty"`
	TotalXP         int     `json:"totalXp"`
	Level           int     `json:"level"`
	XPIntoLevel     int     `json:"xpIntoLevel"`
	XPToNextLevel   int     `json:"xpToNextLevel"`
	ProgressPercent int     `json:"progressPercent"`
	ActivePlans     int     `json:"activePlans"`
	CompletedPlans  int     `json:"completedPlans"`
}

// PlanSummary is the board-level view of a plan.
type PlanSummary struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Status          PlanStatus `json:"status"`
	TotalXP         int        `json:"totalXp"`
	AssigneeUserID  *int64     `json:"assigneeUserId,omitempty"`
	AssigneeName    *string    `json:"assigneeName,omitempty"`
	ProgressPercent int        `json:"progressPercent"`
	CompletedDays   int        `json:"completedDays"`
	TotalDays       int        `json:"totalDays"`
	CreatedAt       string     `json:"createdAt"`
}

// BoardResponse is the family dashboard payload.
type BoardResponse struct {
	Users         []BoardUser   `json:"users"`
	Plans         []PlanSummary `json:"plans"`
	FamilyTotalXP int           `json:"familyTotalXp"`
}

// SubtaskDetail is one subtask inside a plan detail payload.
type SubtaskDetail struct {
	ID          int64           `json:"id"`
	OrderIndex  int             `json:"orderIndex"`
	Text        string          `json:"text"`
	XPValue     int             `json:"xpValue"`
	Status      SubtaskStatus   `json:"status"`
	CanSubmit   bool            `json:"canSubmit"`
	Submissions []SubmissionDTO `json:"submissions"`
}

// PlanDayDetail is one day inside a plan detail payload. TotalXP includes
// the day completion bonus projection when the day qualifies.
type PlanDayDetail struct {
	ID              int64           `json:"id"`
	DayIndex        int             `json:"dayIndex"`
	DayNumber       int             `json:"dayNumber"`
	Title           string          `json:"title"`
	Locked          bool            `json:"locked"`
	Complete        bool            `json:"complete"`
	ProgressPercent int             `json:"progressPercent"`
	TotalXP         int             `json:"totalXp"`
	Subtasks        []SubtaskDetail `json:"subtasks"`
}

// PlanDetailResponse is the full plan view: aggregate state plus progress
// and XP projections.
type PlanDetailResponse struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	Status           PlanStatus      `json:"status"`
	AssigneeUserID   *int64          `json:"assigneeUserId,omitempty"`
	AssigneeName     *string         `json:"assigneeName,omitempty"`
	BlueprintTotalXP int             `json:"blueprintTotalXp"`
	ProjectedTotalXP int             `json:"projectedTotalXp"`
	ProgressPercent  int             `json:"progressPercent"`
	CompletedDays    int             `json:"completedDays"`
	TotalDays        int             `json:"totalDays"`
	CanReview        bool            `json:"canReview"`
	ReviewMessage    *string         `json:"reviewMessage,omitempty"`
	Days             []PlanDayDetail `json:"days"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

// DecisionResponse reports the outcome of an approve or deny.
type DecisionResponse struct {
	SubtaskID  int64         `json:"subtaskId"`
	Status     SubtaskStatus `json:"status"`
	XPAwarded  int           `json:"xpAwarded"`
	PlanStatus PlanStatus    `json:"planStatus"`
}

// SubmissionResponse reports a recorded submission.
type SubmissionResponse struct {
	Submission SubmissionDTO `json:"submission"`
	Status     SubtaskStatus `json:"status"`
}

// LoginResponse carries the admin session token and its expiry.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// ImportPlanResponse reports a successful markdown import.
type ImportPlanResponse struct {
	PlanID  int64  `json:"planId"`
	Title   string `json:"title"`
	Days    int    `json:"days"`
	TotalXP int    `json:"totalXp"`
}

// ActivityEntryDTO is the public shape of an audit entry.
type ActivityEntryDTO struct {
	ID         int64       `json:"id"`
	Action     string      `json:"action"`
	EntityType string      `json:"entityType"`
	EntityID   int64       `json:"entityId"`
	Metadata   interface{} `json:"metadata,omitempty"`
	DeviceID   *string     `json:"deviceId,omitempty"`
	UserID     *int64      `json:"userId,omitempty"`
	CreatedAt  string      `json:"createdAt"`
}
