package store

import (
	"context"
	"fmt"
	"strings"
)

// Both dialects accept this DDL; TIMESTAMP columns come back as time.Time
// from pgx and from go-sqlite3.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_id   TEXT PRIMARY KEY,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		device_id   TEXT NOT NULL REFERENCES devices(device_id),
		token       TEXT NOT NULL,
		expires_at  TIMESTAMP NOT NULL,
		revoked     BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		code      TEXT NOT NULL DEFAULT '',
		owner_id  TEXT NOT NULL DEFAULT '',
		tag_id    TEXT NOT NULL UNIQUE,
		term      TEXT NOT NULL DEFAULT '',
		year      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS course_sessions (
		course_id    TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		day_of_week  INTEGER NOT NULL,
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		location     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (course_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		student_id   TEXT NOT NULL,
		course_id    TEXT NOT NULL REFERENCES courses(id),
		enrolled_at  TIMESTAMP NOT NULL,
		status       TEXT NOT NULL DEFAULT 'active',
		PRIMARY KEY (student_id, course_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id            TEXT PRIMARY KEY,
		student_id    TEXT NOT NULL,
		course_id     TEXT NOT NULL REFERENCES courses(id),
		occurred_at   TIMESTAMP NOT NULL,
		status        TEXT NOT NULL,
		session_date  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_session
		ON attendance_records (student_id, course_id, session_date)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_course ON attendance_records (course_id, session_date)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_time ON attendance_records (occurred_at)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.Client.ExecContext(ctx, stmt); err != nil {
			name := strings.Fields(stmt)
			return fmt.Errorf("migrate %s: %w", strings.Join(name[:min(len(name), 6)], " "), err)
		}
	}
	return nil
}
