package attendance

import (
	"time"

	"tagattend/internal/schedule"
)

// EventRecorded is the queue message type published after a record is stored.
const EventRecorded = "attendance.recorded"

// RecordedEvent is the body of an EventRecorded message.
type RecordedEvent struct {
	RecordID    string          `json:"record_id"`
	StudentID   string          `json:"student_id"`
	CourseID    string          `json:"course_id"`
	CourseName  string          `json:"course_name"`
	Status      schedule.Status `json:"status"`
	SessionDate string          `json:"session_date"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewRecordedEvent builds the event for a recorded outcome. It reports false
// for any other outcome.
func NewRecordedEvent(out Outcome) (RecordedEvent, bool) {
	if !out.Recorded() || out.Record == nil {
		return RecordedEvent{}, false
	}
	rec := out.Record
	return RecordedEvent{
		RecordID:    rec.ID,
		StudentID:   rec.StudentID,
		CourseID:    rec.CourseID,
		CourseName:  out.CourseName(),
		Status:      rec.Status,
		SessionDate: rec.SessionDate,
		Timestamp:   rec.Timestamp,
	}, true
}
