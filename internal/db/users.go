package db

import (
	"context"
	"database/sql"

	"github.com/scalecode-solutions/famboard/internal/models"
)

// User operations

// CreateUser creates a new family member.
func (d *DB) CreateUser(ctx context.Context, displayName string, role models.UserRole, avatar *string) (*models.User, error) {
	if role == "" {
		role = models.UserRoleUser
	}
	var u models.User
	err := d.db.QueryRowxContext(ctx, `
		INSERT INTO users (display_name, role, avatar)
		VALUES ($1, $2, $3)
		RETURNING *
	`, displayName, role, avatar).StructScan(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser gets a user by ID.
func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := d.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActiveUsers lists active users ordered by display name.
func (d *DB) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.db.SelectContext(ctx, &users, `
		SELECT * FROM users WHERE is_active = true ORDER BY display_name
	`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers lists all users ordered by display name.
func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserTotalXP returns the authoritative XP total for a user: the sum of
// deltas across their ledger events.
func (d *DB) UserTotalXP(ctx context.Context, userID int64) (int, error) {
	var total int
	err := d.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(delta), 0) FROM xp_events WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListXPEvents returns a user's ledger entries, newest first.
func (d *DB) ListXPEvents(ctx context.Context, userID int64, limit int) ([]models.XPEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.XPEvent
	err := d.db.SelectContext(ctx, &events, `
		SELECT * FROM xp_events WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}
