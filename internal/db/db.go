// Package db provides the local SQLite store: durable key-value state that
// must survive restarts (the admin auth token) and an audit log of
// appointments created through the bot.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking bot.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS appointment_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL,
			phone TEXT NOT NULL,
			client_name TEXT,
			services TEXT,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			total_price REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

const adminTokenKey = "admin_token"

// Token returns the stored admin token, or "" when none is stored.
func (db *DB) Token() (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM kv WHERE key = ?", adminTokenKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return value, nil
}

// SetToken stores the admin token durably.
func (db *DB) SetToken(token string) error {
	_, err := db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		adminTokenKey, token,
	)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// DeleteToken removes the stored admin token.
func (db *DB) DeleteToken() error {
	if _, err := db.Exec("DELETE FROM kv WHERE key = ?", adminTokenKey); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// AppointmentRecord is one row of the local audit log.
type AppointmentRecord struct {
	ChatID     int64
	Phone      string
	ClientName string
	Services   string // comma-joined service names
	Date       string // YYYY-MM-DD
	Time       string // slot label
	TotalPrice float64
	CreatedAt  time.Time
}

// AppointmentsOn returns the logged appointments for a date (YYYY-MM-DD),
// ordered by slot. Used for next-day reminders.
func (db *DB) AppointmentsOn(ctx context.Context, date string) ([]AppointmentRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT chat_id, phone, client_name, services, date, time, total_price, created_at
		 FROM appointment_log WHERE date = ? ORDER BY time`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var recs []AppointmentRecord
	for rows.Next() {
		var rec AppointmentRecord
		if err := rows.Scan(
			&rec.ChatID, &rec.Phone, &rec.ClientName, &rec.Services,
			&rec.Date, &rec.Time, &rec.TotalPrice, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LogAppointment records a successfully created appointment.
func (db *DB) LogAppointment(ctx context.Context, rec AppointmentRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO appointment_log (chat_id, phone, client_name, services, date, time, total_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ChatID, rec.Phone, rec.ClientName, rec.Services, rec.Date, rec.Time, rec.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("log appointment: %w", err)
	}
	return nil
}
