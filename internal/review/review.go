// Package review holds the approval workflow rules: which actors may
// review a submission, which subtask states accept a decision, and how a
// decision request is validated before any write happens.
package review

import (
	"errors"
	"strings"

	"github.com/scalecode-solutions/famboard/internal/models"
)

// Denial messages surfaced to reviewers. The exact wording is part of the
// API contract.
const (
	MsgAssigneeSelfApproval = "Assignees cannot approve their own submissions."
	MsgLinkedDeviceApproval = "Devices linked to the assignee cannot approve this submission."
)

// Workflow failures. Each kind maps to a distinct caller-facing signal so
// handlers and tests branch on the error, never on message text.
var (
	// ErrNotAwaitingReview means the subtask is not in the submitted
	// state; only submitted subtasks accept a decision.
	ErrNotAwaitingReview = errors.New("subtask is not awaiting review")
	// ErrNoSubmission means the subtask has no submission to review.
	ErrNoSubmission = errors.New("no submission available for review")
	// ErrStaleSubmission means the echoed submission id no longer matches
	// the subtask's latest submission; another reviewer acted first.
	ErrStaleSubmission = errors.New("submission has changed")
	// ErrReasonRequired means a deny was attempted without a non-empty reason.
	ErrReasonRequired = errors.New("a reason is required when denying submissions")
	// ErrInvalidMood means the mood token is not one of happy/neutral/sad.
	ErrInvalidMood = errors.New("invalid mood")
)

// ForbiddenError is an authorization denial carrying the reviewer-facing
// message.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// Actor is the device/user pair performing a review.
type Actor struct {
	Device *models.Device
	User   *models.User
}

// CanApprove reports whether actor may approve a submission on a plan
// assigned to assigneeUserID (nil means unassigned). The assignee may not
// approve their own work, directly or through a device linked to them.
func CanApprove(assigneeUserID *int64, actor Actor) (bool, string) {
	if assigneeUserID == nil {
		return true, ""
	}
	if actor.User != nil && actor.User.ID == *assigneeUserID {
		return false, MsgAssigneeSelfApproval
	}
	if actor.Device != nil && actor.Device.LinkedUserID.Valid &&
		actor.Device.LinkedUserID.Int64 == *assigneeUserID {
		return false, MsgLinkedDeviceApproval
	}
	return true, ""
}

// Authorize returns a ForbiddenError when actor may not review the plan.
func Authorize(assigneeUserID *int64, actor Actor) error {
	allowed, message := CanApprove(assigneeUserID, actor)
	if !allowed {
		return &ForbiddenError{Message: message}
	}
	return nil
}

// LatestSubmission returns the submission with the greatest created_at, or
// nil when none exist. Ties resolve to the later entry, matching insertion
// order for equal timestamps.
func LatestSubmission(subtask *models.Subtask) *models.SubtaskSubmission {
	var latest *models.SubtaskSubmission
	for _, sub := range subtask.Submissions {
		if latest == nil || !sub.CreatedAt.Before(latest.CreatedAt) {
			latest = sub
		}
	}
	return latest
}

// CheckDecision validates a decision request against the subtask's current
// state. It enforces the submitted-only precondition, the submission-id
// echo (the optimistic-concurrency guard), mood validity, and the deny
// reason requirement. On success it returns the matched submission and,
// for deny, the trimmed reason.
func CheckDecision(subtask *models.Subtask, action models.ApprovalAction, req models.ReviewDecisionRequest) (*models.SubtaskSubmission, string, error) {
	if !models.ValidMood(req.Mood) {
		return nil, "", ErrInvalidMood
	}

	reason := ""
	if action == models.ApprovalActionDeny {
		reason = strings.TrimSpace(req.Reason)
		if reason == "" {
			return nil, "", ErrReasonRequired
		}
	}

	if subtask.Status != models.SubtaskStatusSubmitted {
		return nil, "", ErrNotAwaitingReview
	}

	submission := LatestSubmission(subtask)
	if submission == nil {
		return nil, "", ErrNoSubmission
	}
	if req.SubmissionID != submission.ID {
		return nil, "", ErrStaleSubmission
	}

	return submission, reason, nil
}
