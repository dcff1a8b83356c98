// Package report derives course attendance summaries from stored records.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"tagattend/internal/attendance"
	"tagattend/internal/schedule"
)

// DefaultSpan is the report range used when no start date is given.
const DefaultSpan = 16 * 7 * 24 * time.Hour

const pageSize = 500

// ErrBadRange is returned for unparseable or inverted date ranges.
var ErrBadRange = errors.New("invalid date range")

// Source is the read side of the attendance store.
type Source interface {
	GetCourse(ctx context.Context, id string) (attendance.Course, error)
	ListRecords(ctx context.Context, f attendance.RecordFilter) ([]attendance.Record, error)
	ListActiveStudents(ctx context.Context, courseID string) ([]string, error)
}

// Stats counts records by status.
type Stats struct {
	Total  int `json:"total"`
	Early  int `json:"early"`
	OnTime int `json:"onTime"`
	Late   int `json:"late"`
}

func (s *Stats) add(st schedule.Status) {
	s.Total++
	switch st {
	case schedule.StatusEarly:
		s.Early++
	case schedule.StatusOnTime:
		s.OnTime++
	case schedule.StatusLate:
		s.Late++
	}
}

// Summarize counts recs by status.
func Summarize(recs []attendance.Record) Stats {
	var s Stats
	for _, r := range recs {
		s.add(r.Status)
	}
	return s
}

// StudentLine is one roster row.
type StudentLine struct {
	StudentID string  `json:"student_id"`
	Stats     Stats   `json:"stats"`
	Percent   float64 `json:"percent"`
}

// CourseReport is the attendance of a course over a date range.
type CourseReport struct {
	Course   attendance.Course   `json:"course"`
	From     string              `json:"from"`
	To       string              `json:"to"`
	Sessions int                 `json:"sessions"`
	Stats    Stats               `json:"stats"`
	Students []StudentLine       `json:"students"`
	Records  []attendance.Record `json:"records"`
}

// Builder assembles course reports.
type Builder struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// NewBuilder creates a builder that resolves dates in loc.
func NewBuilder(src Source, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{src: src, loc: loc, now: time.Now}
}

// Build reports on courseID between from and to (YYYY-MM-DD, inclusive).
// An empty to means today and an empty from means DefaultSpan before to.
func (b *Builder) Build(ctx context.Context, courseID, from, to string) (CourseReport, error) {
	start, end, err := b.resolveRange(from, to)
	if err != nil {
		return CourseReport{}, err
	}
	course, err := b.src.GetCourse(ctx, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	rep := CourseReport{
		Course:   course,
		From:     schedule.SessionDate(start),
		To:       schedule.SessionDate(end),
		Sessions: schedule.Occurrences(course.Schedule, start, end),
	}

	rep.Records, err = b.records(ctx, attendance.RecordFilter{CourseID: courseID, From: rep.From, To: rep.To})
	if err != nil {
		return CourseReport{}, err
	}
	rep.Stats = Summarize(rep.Records)

	students, err := b.src.ListActiveStudents(ctx, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	perStudent := make(map[string]*Stats, len(students))
	for _, id := range students {
		perStudent[id] = &Stats{}
	}
	for _, r := range rep.Records {
		s, ok := perStudent[r.StudentID]
		if !ok {
			// Records of students who have since left the course still count
			// in the totals but get no roster line.
			continue
		}
		s.add(r.Status)
	}
	for _, id := range students {
		s := *perStudent[id]
		rep.Students = append(rep.Students, StudentLine{
			StudentID: id,
			Stats:     s,
			Percent:   Percent(s.Total, rep.Sessions),
		})
	}
	sort.SliceStable(rep.Students, func(i, j int) bool {
		return rep.Students[i].StudentID < rep.Students[j].StudentID
	})
	return rep, nil
}

// Percent is attended/sessions as a percentage rounded to one decimal.
// It is 0 when there were no sessions.
func Percent(attended, sessions int) float64 {
	if sessions <= 0 {
		return 0
	}
	return math.Round(float64(attended)/float64(sessions)*1000) / 10
}

func (b *Builder) resolveRange(from, to string) (time.Time, time.Time, error) {
	end := b.now().In(b.loc)
	if to != "" {
		t, err := time.ParseInLocation(time.DateOnly, to, b.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to %q", ErrBadRange, to)
		}
		end = t
	}
	start := end.Add(-DefaultSpan)
	if from != "" {
		t, err := time.ParseInLocation(time.DateOnly, from, b.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from %q", ErrBadRange, from)
		}
		start = t
	}
	if schedule.SessionDate(start) > schedule.SessionDate(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s after %s", ErrBadRange, schedule.SessionDate(start), schedule.SessionDate(end))
	}
	return start, end, nil
}

func (b *Builder) records(ctx context.Context, f attendance.RecordFilter) ([]attendance.Record, error) {
	var all []attendance.Record
	f.Limit = pageSize
	for {
		page, err := b.src.ListRecords(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			r.Timestamp = r.Timestamp.In(b.loc)
			all = append(all, r)
		}
		if len(page) < pageSize {
			return all, nil
		}
		f.Offset += len(page)
	}
}
