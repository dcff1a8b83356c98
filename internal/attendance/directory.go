package attendance

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Directory lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record for the same student, course and
	// session date already exists.
	ErrConflict = errors.New("attendance already recorded")
)

// Directory resolves courses and enrollments and stores attendance records.
// Implementations must enforce uniqueness of (student, course, session date)
// on PersistAttendanceRecord and report violations as ErrConflict.
type Directory interface {
	ResolveCourseByTag(ctx context.Context, tagID string) (Course, error)
	FindActiveEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
	FindAttendanceRecord(ctx context.Context, studentID, courseID, sessionDate string) (Record, error)
	PersistAttendanceRecord(ctx context.Context, rec Record) error
}
