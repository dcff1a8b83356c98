// Package seed loads course and enrollment fixtures into the store.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tagattend/internal/attendance"
	"tagattend/internal/schedule"
)

// File is the fixture document.
type File struct {
	Courses     []Course     `yaml:"courses" validate:"dive"`
	Enrollments []Enrollment `yaml:"enrollments" validate:"dive"`
}

// Course is a fixture course.
type Course struct {
	ID       string           `yaml:"id" validate:"required"`
	Name     string           `yaml:"name" validate:"required"`
	Code     string           `yaml:"code"`
	OwnerID  string           `yaml:"owner_id"`
	TagID    string           `yaml:"tag_id" validate:"required"`
	Term     string           `yaml:"term"`
	Year     string           `yaml:"year"`
	Schedule []schedule.Entry `yaml:"schedule" validate:"required,min=1,dive"`
}

// Enrollment is a fixture enrollment. Status defaults to active.
type Enrollment struct {
	StudentID string `yaml:"student_id" validate:"required"`
	CourseID  string `yaml:"course_id" validate:"required"`
	Status    string `yaml:"status" validate:"omitempty,oneof=active inactive"`
}

// Writer is the store the fixtures are written to.
type Writer interface {
	UpsertCourse(ctx context.Context, c attendance.Course) error
	UpsertEnrollment(ctx context.Context, e attendance.Enrollment) error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := schedule.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// Parse decodes and validates a fixture document.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return File{}, fmt.Errorf("invalid fixtures: %w", err)
	}
	if err := f.check(); err != nil {
		return File{}, fmt.Errorf("invalid fixtures: %w", err)
	}
	return f, nil
}

// check enforces the rules the struct tags cannot express.
func (f File) check() error {
	ids := map[string]bool{}
	tags := map[string]string{}
	var problems []string
	for _, c := range f.Courses {
		if ids[c.ID] {
			problems = append(problems, fmt.Sprintf("duplicate course %s", c.ID))
		}
		ids[c.ID] = true
		if other, ok := tags[c.TagID]; ok {
			problems = append(problems, fmt.Sprintf("tag %s used by %s and %s", c.TagID, other, c.ID))
		}
		tags[c.TagID] = c.ID
		for i, e := range c.Schedule {
			start, _ := schedule.ParseClock(e.StartTime)
			end, _ := schedule.ParseClock(e.EndTime)
			if end <= start {
				problems = append(problems, fmt.Sprintf("course %s session %d ends before it starts", c.ID, i))
			}
		}
	}
	for _, e := range f.Enrollments {
		if !ids[e.CourseID] {
			problems = append(problems, fmt.Sprintf("enrollment %s references unknown course %s", e.StudentID, e.CourseID))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Apply writes every course, then every enrollment.
func Apply(ctx context.Context, w Writer, f File) error {
	for _, c := range f.Courses {
		err := w.UpsertCourse(ctx, attendance.Course{
			ID:       c.ID,
			Name:     c.Name,
			Code:     c.Code,
			OwnerID:  c.OwnerID,
			TagID:    c.TagID,
			Term:     c.Term,
			Year:     c.Year,
			Schedule: c.Schedule,
		})
		if err != nil {
			return err
		}
	}
	for _, e := range f.Enrollments {
		status := attendance.EnrollmentStatus(e.Status)
		if status == "" {
			status = attendance.EnrollmentActive
		}
		err := w.UpsertEnrollment(ctx, attendance.Enrollment{
			StudentID: e.StudentID,
			CourseID:  e.CourseID,
			Status:    status,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
