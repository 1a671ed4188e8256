package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/planimport"
	"github.com/scalecode-solutions/famboard/internal/progress"
)

// Plan operations

// GetPlan gets a plan row by ID without its days.
func (d *DB) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	var p models.Plan
	err := d.db.GetContext(ctx, &p, `SELECT * FROM plans WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans lists all plans, newest first.
func (d *DB) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := d.db.SelectContext(ctx, &plans, `SELECT * FROM plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// ListPlansByAssignee lists a user's plans, newest first.
func (d *DB) ListPlansByAssignee(ctx context.Context, userID int64) ([]models.Plan, error) {
	var plans []models.Plan
	err := d.db.SelectContext(ctx, &plans, `
		SELECT * FROM plans WHERE assignee_user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlanAggregate loads a plan with its days, subtasks, and submissions,
// ordered by day_index / order_index / created_at.
func (d *DB) GetPlanAggregate(ctx context.Context, planID int64) (*models.Plan, error) {
	return loadPlanAggregate(ctx, d.db, planID)
}

func loadPlanAggregate(ctx context.Context, q sqlx.ExtContext, planID int64) (*models.Plan, error) {
	var plan models.Plan
	err := sqlx.GetContext(ctx, q, &plan, `SELECT * FROM plans WHERE id = $1`, planID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var days []models.PlanDay
	err = sqlx.SelectContext(ctx, q, &days, `
		SELECT * FROM plan_days WHERE plan_id = $1 ORDER BY day_index
	`, planID)
	if err != nil {
		return nil, err
	}

	dayByID := make(map[int64]*models.PlanDay, len(days))
	for i := range days {
		day := &days[i]
		dayByID[day.ID] = day
		plan.Days = append(plan.Days, day)
	}

	if len(days) == 0 {
		return &plan, nil
	}

	var subtasks []models.Subtask
	err = sqlx.SelectContext(ctx, q, &subtasks, `
		SELECT s.* FROM subtasks s
		JOIN plan_days pd ON pd.id = s.plan_day_id
		WHERE pd.plan_id = $1
		ORDER BY pd.day_index, s.order_index
	`, planID)
	if err != nil {
		return nil, err
	}

	subtaskByID := make(map[int64]*models.Subtask, len(subtasks))
	for i := range subtasks {
		st := &subtasks[i]
		subtaskByID[st.ID] = st
		if day, ok := dayByID[st.PlanDayID]; ok {
			day.Subtasks = append(day.Subtasks, st)
		}
	}

	var submissions []models.SubtaskSubmission
	err = sqlx.SelectContext(ctx, q, &submissions, `
		SELECT ss.* FROM subtask_submissions ss
		JOIN subtasks s ON s.id = ss.subtask_id
		JOIN plan_days pd ON pd.id = s.plan_day_id
		WHERE pd.plan_id = $1
		ORDER BY ss.created_at, ss.id
	`, planID)
	if err != nil {
		return nil, err
	}

	for i := range submissions {
		sub := &submissions[i]
		if st, ok := subtaskByID[sub.SubtaskID]; ok {
			st.Submissions = append(st.Submissions, sub)
		}
	}

	return &plan, nil
}

// persistSyncResult writes the day lock flips and plan status change
// reported by the synchronizer.
func persistSyncResult(ctx context.Context, tx *sqlx.Tx, plan *models.Plan, result progress.SyncResult) error {
	for _, dayID := range result.ChangedDayIDs {
		for _, day := range plan.Days {
			if day.ID != dayID {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE plan_days SET locked = $2, updated_at = $3 WHERE id = $1
			`, day.ID, day.Locked, day.UpdatedAt); err != nil {
				return err
			}
		}
	}
	if result.PlanStatusChanged {
		if _, err := tx.ExecContext(ctx, `
			UPDATE plans SET status = $2, updated_at = $3 WHERE id = $1
		`, plan.ID, plan.Status, plan.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

// RefreshPlan loads a plan aggregate, runs the lock/completion
// synchronizer, and persists any changes. The refreshed aggregate is
// returned either way. Safe to call repeatedly; a no-op refresh writes
// nothing.
func (d *DB) RefreshPlan(ctx context.Context, planID int64) (*models.Plan, bool, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	plan, err := loadPlanAggregate(ctx, tx, planID)
	if err != nil {
		return nil, false, err
	}

	result := progress.RefreshPlanDayLocks(plan, time.Now().UTC())
	if !result.Changed {
		return plan, false, nil
	}

	if err := persistSyncResult(ctx, tx, plan, result); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return plan, true, nil
}

// ImportPlan creates a plan with its days and subtasks from a parsed
// markdown document, inside one transaction. Day 0 starts unlocked, the
// rest locked; subtasks start pending; plan total_xp is the blueprint base
// (sum of subtask XP values).
func (d *DB) ImportPlan(ctx context.Context, parsed *planimport.Plan, assigneeUserID int64, createdByUserID *int64, actorDeviceID string) (*models.Plan, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var assigneeExists bool
	if err := tx.GetContext(ctx, &assigneeExists, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active = true)
	`, assigneeUserID); err != nil {
		return nil, err
	}
	if !assigneeExists {
		return nil, ErrNotFound
	}

	var plan models.Plan
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO plans (title, assignee_user_id, created_by_user_id, status, total_xp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, parsed.Title, assigneeUserID, createdByUserID, models.PlanStatusInProgress, parsed.TotalXP()).StructScan(&plan)
	if err != nil {
		return nil, err
	}

	for index, day := range parsed.Days {
		var planDay models.PlanDay
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO plan_days (plan_id, day_index, title, locked)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		`, plan.ID, index, day.Title, index != 0).StructScan(&planDay)
		if err != nil {
			return nil, err
		}

		for orderIndex, subtask := range day.Subtasks {
			var st models.Subtask
			err = tx.QueryRowxContext(ctx, `
				INSERT INTO subtasks (plan_day_id, order_index, text, xp_value)
				VALUES ($1, $2, $3, $4)
				RETURNING *
			`, planDay.ID, orderIndex, subtask.Text, subtask.XP).StructScan(&st)
			if err != nil {
				return nil, err
			}
			planDay.Subtasks = append(planDay.Subtasks, &st)
		}

		dayRef := planDay
		plan.Days = append(plan.Days, &dayRef)
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"plan_title": plan.Title,
		"assignee":   assigneeUserID,
		"days":       len(parsed.Days),
		"total_xp":   plan.TotalXP,
	})
	if err := insertActivityTx(ctx, tx, activityEntry{
		Action:     "plan.imported",
		EntityType: "plan",
		EntityID:   plan.ID,
		Metadata:   metadata,
		DeviceID:   nullString(actorDeviceID),
		UserID:     nullInt64Ptr(createdByUserID),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// CreateSubmission records evidence for a subtask and moves it to
// submitted. Only pending or denied subtasks accept submissions; the day
// holding the subtask must be unlocked.
func (d *DB) CreateSubmission(ctx context.Context, subtaskID int64, deviceID string, userID *int64, photoPath, thumbPath, comment *string) (*models.SubtaskSubmission, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var row struct {
		models.Subtask
		DayLocked bool  `db:"day_locked"`
		PlanID    int64 `db:"plan_id"`
	}
	err = tx.GetContext(ctx, &row, `
		SELECT s.*, pd.locked AS day_locked, pd.plan_id
		FROM subtasks s
		JOIN plan_days pd ON pd.id = s.plan_day_id
		WHERE s.id = $1
		FOR UPDATE OF s
	`, subtaskID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if row.Status != models.SubtaskStatusPending && row.Status != models.SubtaskStatusDenied {
		return nil, fmt.Errorf("%w: subtask is not open for submission", ErrConflict)
	}
	if row.DayLocked {
		return nil, fmt.Errorf("%w: day is locked", ErrConflict)
	}

	now := time.Now().UTC()
	var submission models.SubtaskSubmission
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO subtask_submissions (subtask_id, submitted_by_device_id, submitted_by_user_id, photo_path, thumb_path, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, subtaskID, deviceID, userID, photoPath, thumbPath, comment, now).StructScan(&submission)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE subtasks SET status = $2, updated_at = $3 WHERE id = $1
	`, subtaskID, models.SubtaskStatusSubmitted, now); err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"plan_id":       row.PlanID,
		"plan_day_id":   row.PlanDayID,
		"submission_id": submission.ID,
		"has_photo":     photoPath != nil,
	})
	if err := insertActivityTx(ctx, tx, activityEntry{
		Action:     "subtask.submitted",
		EntityType: "subtask",
		EntityID:   subtaskID,
		Metadata:   metadata,
		DeviceID:   nullString(deviceID),
		UserID:     nullInt64Ptr(userID),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &submission, nil
}
