package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// HistoryEntry is a record joined with the name of its course.
type HistoryEntry struct {
	Record
	CourseName string `json:"course_name"`
}

// Service serves the read side of attendance and reader device bookkeeping.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ErrInvalidDevice rejects reader ids that are blank or contain whitespace.
var ErrInvalidDevice = errors.New("invalid device id")

// RegisterDevice validates and persists a reader.
func (s *Service) RegisterDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" || strings.ContainsFunc(deviceID, unicode.IsSpace) {
		return fmt.Errorf("%w: %q", ErrInvalidDevice, deviceID)
	}
	return s.repo.UpsertDevice(ctx, deviceID)
}

// History lists a student's records newest first, optionally for one course.
func (s *Service) History(ctx context.Context, studentID, courseID string, limit, offset int) ([]HistoryEntry, error) {
	if studentID == "" {
		return nil, errors.New("student id required")
	}
	recs, err := s.repo.ListRecords(ctx, RecordFilter{
		StudentID: studentID,
		CourseID:  courseID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	out := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		name, ok := names[rec.CourseID]
		if !ok {
			c, err := s.repo.GetCourse(ctx, rec.CourseID)
			switch {
			case errors.Is(err, ErrNotFound):
				name = "Unknown Course"
			case err != nil:
				return nil, fmt.Errorf("history course name: %w", err)
			default:
				name = c.Name
			}
			names[rec.CourseID] = name
		}
		out = append(out, HistoryEntry{Record: rec, CourseName: name})
	}
	return out, nil
}
