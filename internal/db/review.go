package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/progress"
	"github.com/scalecode-solutions/famboard/internal/review"
	"github.com/scalecode-solutions/famboard/internal/xp"
)

// Review workflows. Approve and deny are single transactions: the decision
// audit row, the subtask flip, the XP ledger entry, the lock synchronizer
// output, and the activity entry land together or not at all.

// DecisionResult reports the state after a committed review decision.
type DecisionResult struct {
	Plan     *models.Plan
	Subtask  *models.Subtask
	Approval *models.Approval
	XPEvent  *models.XPEvent
	Sync     progress.SyncResult
}

// ApproveSubtask approves the latest submission on a submitted subtask,
// credits the plan assignee's XP ledger, and re-runs the day lock
// synchronizer.
func (d *DB) ApproveSubtask(ctx context.Context, subtaskID int64, actor review.Actor, req models.ReviewDecisionRequest) (*DecisionResult, error) {
	return d.decideSubtask(ctx, subtaskID, models.ApprovalActionApprove, actor, req)
}

// DenySubtask denies the latest submission on a submitted subtask,
// returning it to the denied state so the assignee can resubmit. A
// non-empty reason is required.
func (d *DB) DenySubtask(ctx context.Context, subtaskID int64, actor review.Actor, req models.ReviewDecisionRequest) (*DecisionResult, error) {
	return d.decideSubtask(ctx, subtaskID, models.ApprovalActionDeny, actor, req)
}

func (d *DB) decideSubtask(ctx context.Context, subtaskID int64, action models.ApprovalAction, actor review.Actor, req models.ReviewDecisionRequest) (*DecisionResult, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Serialize concurrent decisions on the same plan: the plan row lock
	// covers both the subtask flip and the synchronizer pass.
	var planID int64
	err = tx.GetContext(ctx, &planID, `
		SELECT pd.plan_id
		FROM subtasks s
		JOIN plan_days pd ON pd.id = s.plan_day_id
		WHERE s.id = $1
	`, subtaskID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `SELECT id FROM plans WHERE id = $1 FOR UPDATE`, planID); err != nil {
		return nil, err
	}

	plan, err := loadPlanAggregate(ctx, tx, planID)
	if err != nil {
		return nil, err
	}

	var subtask *models.Subtask
	var day *models.PlanDay
	for _, pd := range plan.Days {
		for _, st := range pd.Subtasks {
			if st.ID == subtaskID {
				subtask = st
				day = pd
			}
		}
	}
	if subtask == nil {
		return nil, ErrNotFound
	}

	var assigneeUserID *int64
	if plan.AssigneeUserID.Valid {
		id := plan.AssigneeUserID.Int64
		assigneeUserID = &id
	}
	if err := review.Authorize(assigneeUserID, actor); err != nil {
		return nil, err
	}

	submission, reason, err := review.CheckDecision(subtask, action, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// The approval's free-text column carries the deny reason, or the
	// reviewer's notes on approve.
	recordText := reason
	notes := strings.TrimSpace(req.Notes)
	if action == models.ApprovalActionApprove {
		recordText = notes
	}

	var actedByUserID *int64
	if actor.User != nil {
		actedByUserID = &actor.User.ID
	}
	var approval models.Approval
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO approvals (subtask_id, action, mood, reason, acted_by_device_id, acted_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, subtaskID, action, req.Mood, nullString(recordText), actor.Device.ID, actedByUserID, now).StructScan(&approval)
	if err != nil {
		return nil, err
	}

	newStatus := models.SubtaskStatusApproved
	if action == models.ApprovalActionDeny {
		newStatus = models.SubtaskStatusDenied
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE subtasks SET status = $2, updated_at = $3 WHERE id = $1
	`, subtaskID, newStatus, now); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE plan_days SET updated_at = $2 WHERE id = $1
	`, day.ID, now); err != nil {
		return nil, err
	}
	subtask.Status = newStatus
	subtask.UpdatedAt = now
	day.UpdatedAt = now

	var xpEvent *models.XPEvent
	if action == models.ApprovalActionApprove && assigneeUserID != nil {
		var event models.XPEvent
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO xp_events (user_id, subtask_id, delta, reason, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		`, *assigneeUserID, subtaskID, subtask.XPValue, xp.ReasonSubtaskApproved, now).StructScan(&event)
		if err != nil {
			return nil, err
		}
		xpEvent = &event
	}

	sync := progress.RefreshPlanDayLocks(plan, now)
	if sync.Changed {
		if err := persistSyncResult(ctx, tx, plan, sync); err != nil {
			return nil, err
		}
	}

	metadataFields := map[string]interface{}{
		"plan_id":       plan.ID,
		"plan_title":    plan.Title,
		"plan_day_id":   day.ID,
		"mood":          req.Mood,
		"submission_id": submission.ID,
	}
	activityAction := "subtask.approved"
	if action == models.ApprovalActionDeny {
		activityAction = "subtask.denied"
		metadataFields["reason"] = reason
	} else {
		metadataFields["xp_value"] = subtask.XPValue
		if xpEvent != nil {
			metadataFields["xp_event_id"] = xpEvent.ID
		}
	}
	if notes != "" {
		metadataFields["notes"] = notes
	}
	metadata, _ := json.Marshal(metadataFields)
	if err := insertActivityTx(ctx, tx, activityEntry{
		Action:     activityAction,
		EntityType: "subtask",
		EntityID:   subtaskID,
		Metadata:   metadata,
		DeviceID:   nullString(actor.Device.ID),
		UserID:     nullInt64Ptr(actedByUserID),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &DecisionResult{
		Plan:     plan,
		Subtask:  subtask,
		Approval: &approval,
		XPEvent:  xpEvent,
		Sync:     sync,
	}, nil
}

// QueueRow is one submitted subtask awaiting review, with its plan and day
// context and the latest submission attached.
type QueueRow struct {
	models.Subtask
	PlanID         int64          `db:"plan_id"`
	PlanTitle      string         `db:"plan_title"`
	AssigneeUserID sql.NullInt64  `db:"assignee_user_id"`
	AssigneeName   sql.NullString `db:"assignee_name"`
	DayIndex       int            `db:"day_index"`
	DayTitle       string         `db:"day_title"`

	Submission *models.SubtaskSubmission `db:"-"`
}

// ListReviewQueue returns submitted subtasks oldest submission first, each
// with its latest submission.
func (d *DB) ListReviewQueue(ctx context.Context) ([]QueueRow, error) {
	var rows []QueueRow
	err := d.db.SelectContext(ctx, &rows, `
		SELECT s.*,
		       p.id AS plan_id,
		       p.title AS plan_title,
		       p.assignee_user_id,
		       u.display_name AS assignee_name,
		       pd.day_index,
		       pd.title AS day_title
		FROM subtasks s
		JOIN plan_days pd ON pd.id = s.plan_day_id
		JOIN plans p ON p.id = pd.plan_id
		LEFT JOIN users u ON u.id = p.assignee_user_id
		WHERE s.status = 'submitted'
		ORDER BY s.updated_at, s.id
	`)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	var submissions []models.SubtaskSubmission
	err = d.db.SelectContext(ctx, &submissions, `
		SELECT DISTINCT ON (ss.subtask_id) ss.*
		FROM subtask_submissions ss
		JOIN subtasks s ON s.id = ss.subtask_id
		WHERE s.status = 'submitted'
		ORDER BY ss.subtask_id, ss.created_at DESC, ss.id DESC
	`)
	if err != nil {
		return nil, err
	}

	latestBySubtask := make(map[int64]*models.SubtaskSubmission, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		latestBySubtask[sub.SubtaskID] = sub
	}
	for i := range rows {
		rows[i].Submission = latestBySubtask[rows[i].ID]
	}
	return rows, nil
}
