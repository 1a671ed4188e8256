// Package db provides database operations for the FamBoard API.
package db

import (
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// DB wraps database operations.
type DB struct {
	db *sqlx.DB
}

// New creates a new database connection.
func New(databaseURL string) (*DB, error) {
	db, err := sqlx.Connect("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db: db}, nil
}

// NewWithDB wraps an existing sqlx connection, used by tests.
func NewWithDB(db *sqlx.DB) *DB {
	return &DB{db: db}
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
