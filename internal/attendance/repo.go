package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"tagattend/internal/schedule"
	"tagattend/internal/store"
)

// Repository is the SQL Directory. Queries use ? placeholders and are
// rebound for the connection's driver, so the same code serves Postgres and
// SQLite.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

var _ Directory = (*Repository)(nil)

func (r *Repository) q(query string) string { return r.db.Rebind(query) }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// UpsertDevice ensures a reader device record exists.
func (r *Repository) UpsertDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.New("device id required")
	}
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO devices (device_id, created_at)
		VALUES (?, ?)
		ON CONFLICT (device_id) DO NOTHING
	`), deviceID, time.Now().UTC())
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO refresh_tokens (device_id, token, expires_at, revoked)
		VALUES (?, ?, ?, FALSE)
	`), deviceID, token, expiresAt.UTC())
	return err
}

// ConsumeRefreshToken revokes a live refresh token of deviceID. It returns
// ErrNotFound when the token is unknown, expired or already used.
func (r *Repository) ConsumeRefreshToken(ctx context.Context, deviceID, token string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE device_id = ? AND token = ? AND revoked = FALSE AND expires_at > ?
	`), deviceID, token, now.UTC())
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("refresh token: %w", ErrNotFound)
	}
	return nil
}

const courseColumns = `id, name, code, owner_id, tag_id, term, year`

// ResolveCourseByTag returns the course whose tag is tagID.
func (r *Repository) ResolveCourseByTag(ctx context.Context, tagID string) (Course, error) {
	var c Course
	err := r.db.GetContext(ctx, &c, r.q(`SELECT `+courseColumns+` FROM courses WHERE tag_id = ?`), tagID)
	if err != nil {
		return Course{}, fmt.Errorf("course by tag: %w", notFound(err))
	}
	if c.Schedule, err = r.sessions(ctx, c.ID); err != nil {
		return Course{}, err
	}
	return c, nil
}

// GetCourse returns a course by id.
func (r *Repository) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	err := r.db.GetContext(ctx, &c, r.q(`SELECT `+courseColumns+` FROM courses WHERE id = ?`), id)
	if err != nil {
		return Course{}, fmt.Errorf("course %s: %w", id, notFound(err))
	}
	if c.Schedule, err = r.sessions(ctx, c.ID); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (r *Repository) sessions(ctx context.Context, courseID string) ([]schedule.Entry, error) {
	var entries []schedule.Entry
	err := r.db.SelectContext(ctx, &entries, r.q(`
		SELECT day_of_week, start_time, end_time, location
		FROM course_sessions
		WHERE course_id = ?
		ORDER BY position
	`), courseID)
	if err != nil {
		return nil, fmt.Errorf("course sessions: %w", err)
	}
	return entries, nil
}

// FindActiveEnrollment returns the active enrollment of studentID in courseID.
func (r *Repository) FindActiveEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	var e Enrollment
	err := r.db.GetContext(ctx, &e, r.q(`
		SELECT student_id, course_id, enrolled_at, status
		FROM enrollments
		WHERE student_id = ? AND course_id = ? AND status = ?
	`), studentID, courseID, EnrollmentActive)
	if err != nil {
		return Enrollment{}, fmt.Errorf("active enrollment: %w", notFound(err))
	}
	return e, nil
}

// FindAttendanceRecord returns the record for a student, course and session date.
func (r *Repository) FindAttendanceRecord(ctx context.Context, studentID, courseID, sessionDate string) (Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, r.q(`
		SELECT id, student_id, course_id, occurred_at, status, session_date
		FROM attendance_records
		WHERE student_id = ? AND course_id = ? AND session_date = ?
	`), studentID, courseID, sessionDate)
	if err != nil {
		return Record{}, fmt.Errorf("attendance record: %w", notFound(err))
	}
	return rec, nil
}

// PersistAttendanceRecord inserts rec. A second record for the same student,
// course and session date fails with ErrConflict. The timestamp is stored as
// UTC since occurred_at carries no zone; reads return UTC instants.
func (r *Repository) PersistAttendanceRecord(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO attendance_records (id, student_id, course_id, occurred_at, status, session_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.StudentID, rec.CourseID, rec.Timestamp.UTC(), rec.Status, rec.SessionDate)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// RecordFilter narrows ListRecords. Empty fields are ignored; dates are
// inclusive session dates.
type RecordFilter struct {
	StudentID string
	CourseID  string
	From      string
	To        string
	Limit     int
	Offset    int
}

// ListRecords returns records newest first.
func (r *Repository) ListRecords(ctx context.Context, f RecordFilter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT id, student_id, course_id, occurred_at, status, session_date FROM attendance_records`
	var clauses []string
	var args []any
	if f.StudentID != "" {
		clauses = append(clauses, "student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.CourseID != "" {
		clauses = append(clauses, "course_id = ?")
		args = append(args, f.CourseID)
	}
	if f.From != "" {
		clauses = append(clauses, "session_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "session_date <= ?")
		args = append(args, f.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var res []Record
	if err := r.db.SelectContext(ctx, &res, r.q(query), args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return res, nil
}

// ListActiveStudents returns the ids of students actively enrolled in courseID.
func (r *Repository) ListActiveStudents(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, r.q(`
		SELECT student_id FROM enrollments
		WHERE course_id = ? AND status = ?
		ORDER BY student_id
	`), courseID, EnrollmentActive)
	if err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return ids, nil
}

// UpsertCourse creates or replaces a course and its schedule.
func (r *Repository) UpsertCourse(ctx context.Context, c Course) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO courses (id, name, code, owner_id, tag_id, term, year)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			code = excluded.code,
			owner_id = excluded.owner_id,
			tag_id = excluded.tag_id,
			term = excluded.term,
			year = excluded.year
	`), c.ID, c.Name, c.Code, c.OwnerID, c.TagID, c.Term, c.Year)
	if err != nil {
		return fmt.Errorf("upsert course %s: %w", c.ID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM course_sessions WHERE course_id = ?`), c.ID); err != nil {
		return fmt.Errorf("clear sessions %s: %w", c.ID, err)
	}
	for i, e := range c.Schedule {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO course_sessions (course_id, position, day_of_week, start_time, end_time, location)
			VALUES (?, ?, ?, ?, ?, ?)
		`), c.ID, i, e.DayOfWeek, e.StartTime, e.EndTime, e.Location)
		if err != nil {
			return fmt.Errorf("insert session %s/%d: %w", c.ID, i, err)
		}
	}
	return tx.Commit()
}

// UpsertEnrollment creates or updates an enrollment.
func (r *Repository) UpsertEnrollment(ctx context.Context, e Enrollment) error {
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = EnrollmentActive
	}
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO enrollments (student_id, course_id, enrolled_at, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (student_id, course_id) DO UPDATE SET status = excluded.status
	`), e.StudentID, e.CourseID, e.EnrolledAt, e.Status)
	if err != nil {
		return fmt.Errorf("upsert enrollment %s/%s: %w", e.StudentID, e.CourseID, err)
	}
	return nil
}
