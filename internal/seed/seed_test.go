package seed

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagattend/internal/attendance"
	"tagattend/internal/schedule"
)

const fixtures = `
courses:
  - id: course-380
    name: Intro to Software Engineering
    code: CSCI 380
    owner_id: prof-1
    tag_id: tag-380
    term: Fall
    year: "2026"
    schedule:
      - day_of_week: 2
        start_time: "09:00"
        end_time: "10:30"
        location: B-101
      - day_of_week: 4
        start_time: "9:00"
        end_time: "10:30"
enrollments:
  - student_id: stu-1
    course_id: course-380
  - student_id: stu-old
    course_id: course-380
    status: inactive
`

type recordingWriter struct {
	courses     []attendance.Course
	enrollments []attendance.Enrollment
}

func (w *recordingWriter) UpsertCourse(ctx context.Context, c attendance.Course) error {
	w.courses = append(w.courses, c)
	return nil
}

func (w *recordingWriter) UpsertEnrollment(ctx context.Context, e attendance.Enrollment) error {
	w.enrollments = append(w.enrollments, e)
	return nil
}

func TestParseAndApply(t *testing.T) {
	f, err := Parse(strings.NewReader(fixtures))
	require.NoError(t, err)

	w := &recordingWriter{}
	require.NoError(t, Apply(context.Background(), w, f))

	require.Len(t, w.courses, 1)
	c := w.courses[0]
	assert.Equal(t, "tag-380", c.TagID)
	assert.Equal(t, "2026", c.Year)
	assert.Equal(t, []schedule.Entry{
		{DayOfWeek: 2, StartTime: "09:00", EndTime: "10:30", Location: "B-101"},
		{DayOfWeek: 4, StartTime: "9:00", EndTime: "10:30"},
	}, c.Schedule)

	require.Len(t, w.enrollments, 2)
	assert.Equal(t, attendance.EnrollmentActive, w.enrollments[0].Status)
	assert.Equal(t, attendance.EnrollmentInactive, w.enrollments[1].Status)
}

func TestParseRejects(t *testing.T) {
	course := func(body string) string {
		return "courses:\n  - id: c-1\n    name: One\n    tag_id: t-1\n" + body
	}
	cases := map[string]string{
		"no schedule":   course(""),
		"bad day":       course("    schedule:\n      - {day_of_week: 8, start_time: \"09:00\", end_time: \"10:00\"}\n"),
		"bad clock":     course("    schedule:\n      - {day_of_week: 2, start_time: \"25:00\", end_time: \"10:00\"}\n"),
		"inverted":      course("    schedule:\n      - {day_of_week: 2, start_time: \"10:00\", end_time: \"09:00\"}\n"),
		"unknown field": course("    room: 12\n    schedule:\n      - {day_of_week: 2, start_time: \"09:00\", end_time: \"10:00\"}\n"),
		"unknown course": course("    schedule:\n      - {day_of_week: 2, start_time: \"09:00\", end_time: \"10:00\"}\n") +
			"enrollments:\n  - {student_id: s-1, course_id: c-2}\n",
		"bad status": course("    schedule:\n      - {day_of_week: 2, start_time: \"09:00\", end_time: \"10:00\"}\n") +
			"enrollments:\n  - {student_id: s-1, course_id: c-1, status: paused}\n",
		"duplicate tag": course("    schedule:\n      - {day_of_week: 2, start_time: \"09:00\", end_time: \"10:00\"}\n") +
			"  - id: c-2\n    name: Two\n    tag_id: t-1\n    schedule:\n      - {day_of_week: 3, start_time: \"09:00\", end_time: \"10:00\"}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestShippedFixturesParse(t *testing.T) {
	f, err := os.Open("../../fixtures/courses.yaml")
	require.NoError(t, err)
	defer f.Close()

	file, err := Parse(f)
	require.NoError(t, err)
	assert.Len(t, file.Courses, 2)
	assert.Len(t, file.Enrollments, 4)
}
