package attendance

import (
	"time"

	"tagattend/internal/schedule"
)

// Course is a class whose sessions are marked by scanning its tag.
type Course struct {
	ID       string           `json:"id" db:"id"`
	Name     string           `json:"name" db:"name"`
	Code     string           `json:"code" db:"code"`
	OwnerID  string           `json:"owner_id" db:"owner_id"`
	TagID    string           `json:"tag_id" db:"tag_id"`
	Term     string           `json:"term" db:"term"`
	Year     string           `json:"year" db:"year"`
	Schedule []schedule.Entry `json:"schedule" db:"-"`
}

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentInactive EnrollmentStatus = "inactive"
)

// Enrollment joins a student to a course.
type Enrollment struct {
	StudentID  string           `json:"student_id" db:"student_id"`
	CourseID   string           `json:"course_id" db:"course_id"`
	EnrolledAt time.Time        `json:"enrolled_at" db:"enrolled_at"`
	Status     EnrollmentStatus `json:"status" db:"status"`
}

// Record is one attendance mark. (StudentID, CourseID, SessionDate) is unique.
type Record struct {
	ID          string          `json:"id" db:"id"`
	StudentID   string          `json:"student_id" db:"student_id"`
	CourseID    string          `json:"course_id" db:"course_id"`
	Timestamp   time.Time       `json:"timestamp" db:"occurred_at"`
	Status      schedule.Status `json:"status" db:"status"`
	SessionDate string          `json:"session_date" db:"session_date"`
}
