package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tagattend/internal/scanner"
)

// RecordedFunc is called after a record has been persisted.
type RecordedFunc func(ctx context.Context, out Outcome)

// Pipeline turns a scan into at most one attendance record. It keeps no
// state between runs; concurrent runs for the same student and course may
// both pass the duplicate check, and the directory's uniqueness constraint
// decides which write wins. The loser fails with PersistenceError.
type Pipeline struct {
	gate       *Gate
	dir        Directory
	loc        *time.Location
	now        func() time.Time
	newID      func() string
	onRecorded RecordedFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocation sets the calendar used for weekdays and session dates.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock replaces time.Now for Scan.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator replaces the record id generator.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// OnRecorded registers a hook run after each successful persist.
func OnRecorded(fn RecordedFunc) Option {
	return func(p *Pipeline) { p.onRecorded = fn }
}

// NewPipeline creates a pipeline over dir.
func NewPipeline(dir Directory, opts ...Option) *Pipeline {
	p := &Pipeline{
		gate:  NewGate(dir),
		dir:   dir,
		loc:   time.Local,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scan waits for one read from sc and runs the pipeline for studentID with
// the time captured once the read completes.
func (p *Pipeline) Scan(ctx context.Context, sc scanner.Scanner, studentID string) Outcome {
	res := <-scanner.Await(ctx, sc)
	return p.Run(ctx, res, studentID, p.now())
}

// Submit runs the pipeline for a scan completed elsewhere, such as on a
// remote reader, at the current time.
func (p *Pipeline) Submit(ctx context.Context, scan scanner.Result, studentID string) Outcome {
	return p.Run(ctx, scan, studentID, p.now())
}

// Run records attendance for studentID from a completed scan. Every failure
// is reported in the returned Outcome; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, scan scanner.Result, studentID string, now time.Time) Outcome {
	out := Outcome{State: StateIdle, Trace: []State{StateIdle}}
	if !scan.OK() {
		err := scan.Err
		if err == nil {
			err = scanner.ErrNoTag
		}
		return out.fail(ReasonScanFailure, err)
	}

	now = now.In(p.loc)
	d, err := p.gate.Evaluate(ctx, scan.TagID, studentID, now)
	if d.Course != nil {
		out.Course = d.Course
		out.advance(StateTagResolved)
	}
	if err != nil {
		return out.fail(ReasonPersistenceError, err)
	}
	if !d.Eligible {
		return out.fail(d.Reason, nil)
	}
	out.Status = d.Status
	out.advance(StateEligible)

	rec := Record{
		ID:          p.newID(),
		StudentID:   studentID,
		CourseID:    d.Course.ID,
		Timestamp:   now,
		Status:      d.Status,
		SessionDate: d.SessionDate,
	}
	if err := p.dir.PersistAttendanceRecord(ctx, rec); err != nil {
		return out.fail(ReasonPersistenceError, err)
	}
	out.Record = &rec
	out.advance(StateRecorded)

	if p.onRecorded != nil {
		p.onRecorded(ctx, out)
	}
	return out
}

func (o *Outcome) advance(s State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}

func (o Outcome) fail(reason Reason, err error) Outcome {
	o.Reason = reason
	o.Err = err
	o.advance(StateFailed)
	return o
}
