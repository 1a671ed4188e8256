package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/scalecode-solutions/famboard/internal/models"
)

// Activity log operations

type activityEntry struct {
	Action     string
	EntityType string
	EntityID   int64
	Metadata   json.RawMessage
	DeviceID   sql.NullString
	UserID     sql.NullInt64
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64Ptr(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func insertActivityTx(ctx context.Context, tx *sqlx.Tx, entry activityEntry) error {
	var metadata interface{}
	if len(entry.Metadata) > 0 {
		metadata = []byte(entry.Metadata)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO activity_log (action, entity_type, entity_id, metadata, device_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.Action, entry.EntityType, entry.EntityID, metadata, entry.DeviceID, entry.UserID)
	return err
}

// InsertActivity records an audit entry outside of any workflow
// transaction.
func (d *DB) InsertActivity(ctx context.Context, action, entityType string, entityID int64, metadata json.RawMessage, deviceID string, userID *int64) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertActivityTx(ctx, tx, activityEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		DeviceID:   nullString(deviceID),
		UserID:     nullInt64Ptr(userID),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListActivity returns audit entries newest first, with limit/offset
// paging.
func (d *DB) ListActivity(ctx context.Context, limit, offset int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var entries []models.ActivityLog
	err := d.db.SelectContext(ctx, &entries, `
		SELECT * FROM activity_log ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
