package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tagattend/internal/schedule"
)

// Decision is the result of an eligibility evaluation. When Eligible is
// false, Reason names the first check that failed.
type Decision struct {
	Eligible    bool
	Reason      Reason
	Course      *Course
	Status      schedule.Status
	SessionDate string
}

// Gate runs the eligibility checks for a scan. It only reads from the
// directory.
type Gate struct {
	dir Directory
}

// NewGate creates a gate backed by dir.
func NewGate(dir Directory) *Gate {
	return &Gate{dir: dir}
}

// Evaluate checks, in order: the tag names a course, the student is actively
// enrolled in it, now falls inside one of its session windows, and no record
// exists yet for the session date. now must already be in the local calendar.
// A non-nil error means the directory failed; rejections are returned as a
// Decision.
func (g *Gate) Evaluate(ctx context.Context, tagID, studentID string, now time.Time) (Decision, error) {
	course, err := g.dir.ResolveCourseByTag(ctx, tagID)
	if errors.Is(err, ErrNotFound) {
		return Decision{Reason: ReasonUnknownTag}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("resolve tag %q: %w", tagID, err)
	}
	d := Decision{Course: &course}

	if _, err := g.dir.FindActiveEnrollment(ctx, studentID, course.ID); errors.Is(err, ErrNotFound) {
		d.Reason = ReasonNotEnrolled
		return d, nil
	} else if err != nil {
		return d, fmt.Errorf("find enrollment: %w", err)
	}

	class, ok := schedule.Classify(course.Schedule, now)
	if !ok {
		d.Reason = ReasonOutsideWindow
		return d, nil
	}
	d.Status = class.Status
	d.SessionDate = schedule.SessionDate(now)

	if _, err := g.dir.FindAttendanceRecord(ctx, studentID, course.ID, d.SessionDate); err == nil {
		d.Reason = ReasonAlreadyMarked
		return d, nil
	} else if !errors.Is(err, ErrNotFound) {
		return d, fmt.Errorf("find attendance record: %w", err)
	}

	d.Eligible = true
	return d, nil
}
