// Package models defines the data structures for the FamBoard API.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// PlanStatus is the lifecycle state of a plan. Stored as a lowercase token.
type PlanStatus string

const (
	PlanStatusDraft      PlanStatus = "draft"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusComplete   PlanStatus = "complete"
	PlanStatusArchived   PlanStatus = "archived"
)

// SubtaskStatus is the review state of a subtask. Stored as a lowercase token.
type SubtaskStatus string

const (
	SubtaskStatusPending   SubtaskStatus = "pending"
	SubtaskStatusSubmitted SubtaskStatus = "submitted"
	SubtaskStatusApproved  SubtaskStatus = "approved"
	SubtaskStatusDenied    SubtaskStatus = "denied"
)

// ApprovalAction records which decision a reviewer made.
type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionDeny    ApprovalAction = "deny"
)

// ApprovalMood is the reviewer's reaction attached to a decision.
type ApprovalMood string

const (
	MoodHappy   ApprovalMood = "happy"
	MoodNeutral ApprovalMood = "neutral"
	MoodSad     ApprovalMood = "sad"
)

// ValidMood reports whether m is one of the closed mood tokens.
func ValidMood(m ApprovalMood) bool {
	switch m {
	case MoodHappy, MoodNeutral, MoodSad:
		return true
	}
	return false
}

// UserRole distinguishes portal administrators from regular members.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// User represents a portal user (a family member).
type User struct {
	ID          int64          `db:"id" json:"id"`
	DisplayName string         `db:"display_name" json:"displayName"`
	Role        UserRole       `db:"role" json:"role"`
	Avatar      sql.NullString `db:"avatar" json:"-"`
	IsActive    bool           `db:"is_active" json:"isActive"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// Device represents a client installation identified by a durable cookie UUID.
// Identity is immutable once created; the friendly name and user link are not.
type Device struct {
	ID           string         `db:"id" json:"id"`
	FriendlyName sql.NullString `db:"friendly_name" json:"-"`
	LinkedUserID sql.NullInt64  `db:"linked_user_id" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	LastSeenAt   sql.NullTime   `db:"last_seen_at" json:"-"`
}

// Label returns the display label for a device.
func (d *Device) Label() string {
	if d.FriendlyName.Valid && d.FriendlyName.String != "" {
		return d.FriendlyName.String
	}
	return "Device " + d.ID
}

// Plan represents a multi-day task blueprint assigned to one user.
//
// TotalXP is a denormalized read cache set at import time to the sum of
// subtask XP values. The xp_events ledger is the authoritative XP record.
type Plan struct {
	ID              int64         `db:"id" json:"id"`
	Title           string        `db:"title" json:"title"`
	AssigneeUserID  sql.NullInt64 `db:"assignee_user_id" json:"-"`
	CreatedByUserID sql.NullInt64 `db:"created_by_user_id" json:"-"`
	Status          PlanStatus    `db:"status" json:"status"`
	TotalXP         int           `db:"total_xp" json:"totalXp"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`

	// Days is populated by aggregate loads, ordered by day_index.
	Days []*PlanDay `db:"-" json:"-"`
}

// PlanDay is one sequential unit of a plan, gating subsequent days.
type PlanDay struct {
	ID        int64     `db:"id" json:"id"`
	PlanID    int64     `db:"plan_id" json:"planId"`
	DayIndex  int       `db:"day_index" json:"dayIndex"`
	Title     string    `db:"title" json:"title"`
	Locked    bool      `db:"locked" json:"locked"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Subtasks is populated by aggregate loads, ordered by order_index.
	Subtasks []*Subtask `db:"-" json:"-"`
}

// Subtask is a single unit of work with an XP reward.
type Subtask struct {
	ID         int64         `db:"id" json:"id"`
	PlanDayID  int64         `db:"plan_day_id" json:"planDayId"`
	OrderIndex int           `db:"order_index" json:"orderIndex"`
	Text       string        `db:"text" json:"text"`
	XPValue    int           `db:"xp_value" json:"xpValue"`
	Status     SubtaskStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updatedAt"`

	// Submissions is populated by aggregate loads, oldest first.
	Submissions []*SubtaskSubmission `db:"-" json:"-"`
}

// SubtaskSubmission is an append-only evidence record for a subtask.
type SubtaskSubmission struct {
	ID                  int64          `db:"id" json:"id"`
	SubtaskID           int64          `db:"subtask_id" json:"subtaskId"`
	SubmittedByDeviceID string         `db:"submitted_by_device_id" json:"submittedByDeviceId"`
	SubmittedByUserID   sql.NullInt64  `db:"submitted_by_user_id" json:"-"`
	PhotoPath           sql.NullString `db:"photo_path" json:"-"`
	ThumbPath           sql.NullString `db:"thumb_path" json:"-"`
	Comment             sql.NullString `db:"comment" json:"-"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
}

// Approval is an append-only decision record for a subtask. Multiple
// approvals can exist per subtask across deny/resubmit cycles.
type Approval struct {
	ID              int64          `db:"id" json:"id"`
	SubtaskID       int64          `db:"subtask_id" json:"subtaskId"`
	Action          ApprovalAction `db:"action" json:"action"`
	Mood            ApprovalMood   `db:"mood" json:"mood"`
	Reason          sql.NullString `db:"reason" json:"-"`
	ActedByDeviceID string         `db:"acted_by_device_id" json:"actedByDeviceId"`
	ActedByUserID   sql.NullInt64  `db:"acted_by_user_id" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}

// XPEvent is one ledger entry changing a user's total experience points.
// A user's authoritative total XP is the sum of deltas across their events.
type XPEvent struct {
	ID        int64         `db:"id" json:"id"`
	UserID    int64         `db:"user_id" json:"userId"`
	SubtaskID sql.NullInt64 `db:"subtask_id" json:"-"`
	Delta     int           `db:"delta" json:"delta"`
	Reason    string        `db:"reason" json:"reason"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// ActivityLog is a write-only audit entry for state-changing actions.
type ActivityLog struct {
	ID         int64           `db:"id" json:"id"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   int64           `db:"entity_id" json:"entityId"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	DeviceID   sql.NullString  `db:"device_id" json:"-"`
	UserID     sql.NullInt64   `db:"user_id" json:"-"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// API request/response types

// ReviewDecisionRequest is the body for approve/deny endpoints. The
// SubmissionID echoes the submission the reviewer saw; a mismatch with the
// subtask's latest submission is reported as a conflict.
type ReviewDecisionRequest struct {
	Mood         ApprovalMood `json:"mood"`
	SubmissionID int64        `json:"submissionId"`
	Notes        string       `json:"notes,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	UserID       *int64       `json:"userId,omitempty"`
}

// ImportPlanRequest is the body for the admin markdown import endpoint.
type ImportPlanRequest struct {
	AssigneeUserID int64  `json:"assigneeUserId"`
	Markdown       string `json:"markdown"`
}

// LinkDeviceRequest links the calling device to a user identity.
type LinkDeviceRequest struct {
	UserID *int64 `json:"userId"`
}

// UpdateDeviceRequest renames or re-links a device (admin).
type UpdateDeviceRequest struct {
	FriendlyName *string `json:"friendlyName,omitempty"`
	LinkedUserID *int64  `json:"linkedUserId,omitempty"`
}

// CreateUserRequest creates a family member (admin).
type CreateUserRequest struct {
	DisplayName string   `json:"displayName"`
	Role        UserRole `json:"role,omitempty"`
	Avatar      *string  `json:"avatar,omitempty"`
}

// LoginRequest is the admin login body.
type LoginRequest struct {
	Password string `json:"password"`
}

// DeviceDTO is the public shape of a device.
type DeviceDTO struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	FriendlyName   *string `json:"friendlyName,omitempty"`
	LinkedUserID   *int64  `json:"linkedUserId,omitempty"`
	LinkedUserName *string `json:"linkedUserName,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	LastSeenAt     *string `json:"lastSeenAt,omitempty"`
}

// SubmissionDTO is the public shape of a submission.
type SubmissionDTO struct {
	ID          int64   `json:"id"`
	SubmittedBy string  `json:"submittedBy"`
	Comment     *string `json:"comment,omitempty"`
	PhotoPath   *string `json:"photoPath,omitempty"`
	ThumbPath   *string `json:"thumbPath,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// QueueItem describes one pending review entry.
type QueueItem struct {
	SubtaskID        int64          `json:"subtaskId"`
	SubtaskText      string         `json:"subtaskText"`
	XPValue          int            `json:"xpValue"`
	PlanID           int64          `json:"planId"`
	PlanTitle        string         `json:"planTitle"`
	AssigneeName     *string        `json:"assigneeName,omitempty"`
	DayNumber        int            `json:"dayNumber"`
	DayTitle         string         `json:"dayTitle"`
	LatestSubmission *SubmissionDTO `json:"latestSubmission"`
	ApprovalAllowed  bool           `json:"approvalAllowed"`
	ApprovalMessage  *string        `json:"approvalMessage,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code plus a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
