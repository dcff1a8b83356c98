package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tagattend/internal/schedule"
)

// fakeDirectory is an in-memory Directory that records the calls it receives
// and enforces the (student, course, session date) key like a real store.
type fakeDirectory struct {
	mu          sync.Mutex
	courses     map[string]Course // by tag
	enrollments map[string]Enrollment
	records     map[string]Record
	calls       []string

	lookupErr  error
	persistErr error
	// beforePersist runs inside PersistAttendanceRecord without the lock held.
	beforePersist func()
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		courses:     map[string]Course{},
		enrollments: map[string]Enrollment{},
		records:     map[string]Record{},
	}
}

func (f *fakeDirectory) addCourse(c Course) { f.courses[c.TagID] = c }

func (f *fakeDirectory) enroll(studentID, courseID string, status EnrollmentStatus) {
	f.enrollments[studentID+"/"+courseID] = Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		Status:     status,
	}
}

func (f *fakeDirectory) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeDirectory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDirectory) ResolveCourseByTag(ctx context.Context, tagID string) (Course, error) {
	f.record("ResolveCourseByTag")
	if f.lookupErr != nil {
		return Course{}, f.lookupErr
	}
	c, ok := f.courses[tagID]
	if !ok {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeDirectory) FindActiveEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	f.record("FindActiveEnrollment")
	e, ok := f.enrollments[studentID+"/"+courseID]
	if !ok || e.Status != EnrollmentActive {
		return Enrollment{}, fmt.Errorf("enrollment: %w", ErrNotFound)
	}
	return e, nil
}

func (f *fakeDirectory) FindAttendanceRecord(ctx context.Context, studentID, courseID, sessionDate string) (Record, error) {
	f.record("FindAttendanceRecord")
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[studentID+"/"+courseID+"/"+sessionDate]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeDirectory) PersistAttendanceRecord(ctx context.Context, rec Record) error {
	f.record("PersistAttendanceRecord")
	if f.beforePersist != nil {
		f.beforePersist()
	}
	if f.persistErr != nil {
		return f.persistErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rec.StudentID + "/" + rec.CourseID + "/" + rec.SessionDate
	if _, dup := f.records[key]; dup {
		return ErrConflict
	}
	f.records[key] = rec
	return nil
}

func (f *fakeDirectory) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

var errStoreDown = errors.New("store unavailable")

// 2026-10-19 is a Monday.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, 0, 0, time.UTC)
}

func softwareEngineering() Course {
	return Course{
		ID:      "course-380",
		Name:    "Intro to Software Engineering",
		Code:    "CSCI 380",
		OwnerID: "prof-1",
		TagID:   "tag-380",
		Term:    "Fall",
		Year:    "2026",
		Schedule: []schedule.Entry{
			{DayOfWeek: 2, StartTime: "09:00", EndTime: "10:30", Location: "B-101"},
			{DayOfWeek: 4, StartTime: "09:00", EndTime: "10:30", Location: "B-101"},
		},
	}
}

func seededDirectory() *fakeDirectory {
	dir := newFakeDirectory()
	dir.addCourse(softwareEngineering())
	dir.enroll("stu-1", "course-380", EnrollmentActive)
	dir.enroll("stu-old", "course-380", EnrollmentInactive)
	return dir
}
