package db

import (
	"context"
	"database/sql"

	"github.com/scalecode-solutions/famboard/internal/models"
)

// Device operations

// EnsureDevice returns the device with the given ID, lazily creating it on
// first contact and stamping last_seen_at. The boolean reports whether the
// device was newly created.
func (d *DB) EnsureDevice(ctx context.Context, deviceID string) (*models.Device, bool, error) {
	var device models.Device
	err := d.db.QueryRowxContext(ctx, `
		INSERT INTO devices (id, created_at, last_seen_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET last_seen_at = NOW()
		RETURNING *
	`, deviceID).StructScan(&device)
	if err != nil {
		return nil, false, err
	}

	created := device.LastSeenAt.Valid && device.CreatedAt.Equal(device.LastSeenAt.Time)
	return &device, created, nil
}

// GetDevice gets a device by ID.
func (d *DB) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	err := d.db.GetContext(ctx, &device, `SELECT * FROM devices WHERE id = $1`, deviceID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// ListDevices lists all devices, most recently seen first.
func (d *DB) ListDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	err := d.db.SelectContext(ctx, &devices, `
		SELECT * FROM devices ORDER BY last_seen_at DESC NULLS LAST, created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// LinkDevice links or unlinks a device to a user identity.
func (d *DB) LinkDevice(ctx context.Context, deviceID string, userID *int64) (*models.Device, error) {
	var device models.Device
	err := d.db.QueryRowxContext(ctx, `
		UPDATE devices SET linked_user_id = $2 WHERE id = $1
		RETURNING *
	`, deviceID, userID).StructScan(&device)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateDevice renames and/or re-links a device (admin operation).
func (d *DB) UpdateDevice(ctx context.Context, deviceID string, friendlyName *string, linkedUserID *int64, updateLink bool) (*models.Device, error) {
	var device models.Device
	var err error
	if updateLink {
		err = d.db.QueryRowxContext(ctx, `
			UPDATE devices SET
				friendly_name = COALESCE($2, friendly_name),
				linked_user_id = $3
			WHERE id = $1
			RETURNING *
		`, deviceID, friendlyName, linkedUserID).StructScan(&device)
	} else {
		err = d.db.QueryRowxContext(ctx, `
			UPDATE devices SET friendly_name = COALESCE($2, friendly_name)
			WHERE id = $1
			RETURNING *
		`, deviceID, friendlyName).StructScan(&device)
	}
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}
