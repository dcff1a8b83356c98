package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagattend/internal/scanner"
	"tagattend/internal/schedule"
)

func newTestPipeline(dir Directory, opts ...Option) *Pipeline {
	n := 0
	var mu sync.Mutex
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("rec-%d", n)
	}
	return NewPipeline(dir, append([]Option{WithLocation(time.UTC), WithIDGenerator(ids)}, opts...)...)
}

func TestPipelineRecordsOnTimeScan(t *testing.T) {
	dir := seededDirectory()
	var hooked []Outcome
	p := newTestPipeline(dir, OnRecorded(func(ctx context.Context, out Outcome) {
		hooked = append(hooked, out)
	}))

	out := p.Run(context.Background(), scanner.Tag("tag-380"), "stu-1", mondayAt(9, 5))

	require.True(t, out.Recorded(), "reason %s err %v", out.Reason, out.Err)
	assert.Equal(t, schedule.StatusOnTime, out.Status)
	assert.Equal(t, "Intro to Software Engineering", out.CourseName())
	assert.Equal(t, []State{StateIdle, StateTagResolved, StateEligible, StateRecorded}, out.Trace)
	require.NotNil(t, out.Record)
	assert.Equal(t, Record{
		ID:          "rec-1",
		StudentID:   "stu-1",
		CourseID:    "course-380",
		Timestamp:   mondayAt(9, 5),
		Status:      schedule.StatusOnTime,
		SessionDate: "2026-10-19",
	}, *out.Record)
	assert.Equal(t, 1, dir.recordCount())
	assert.Len(t, hooked, 1)
}

func TestPipelineSecondScanSameDayIsAlreadyMarked(t *testing.T) {
	dir := seededDirectory()
	p := newTestPipeline(dir)
	ctx := context.Background()

	first := p.Run(ctx, scanner.Tag("tag-380"), "stu-1", mondayAt(9, 5))
	require.True(t, first.Recorded())

	second := p.Run(ctx, scanner.Tag("tag-380"), "stu-1", mondayAt(9, 20))
	assert.Equal(t, StateFailed, second.State)
	assert.Equal(t, ReasonAlreadyMarked, second.Reason)
	assert.Equal(t, 1, dir.recordCount())
}

func TestPipelineNotEnrolledWritesNothing(t *testing.T) {
	dir := seededDirectory()
	out := newTestPipeline(dir).Run(context.Background(), scanner.Tag("tag-380"), "stu-2", mondayAt(9, 5))

	assert.Equal(t, ReasonNotEnrolled, out.Reason)
	assert.Equal(t, []State{StateIdle, StateTagResolved, StateFailed}, out.Trace)
	assert.NotContains(t, dir.Calls(), "PersistAttendanceRecord")
	assert.Zero(t, dir.recordCount())
}

func TestPipelineUnknownTagCallOrder(t *testing.T) {
	dir := seededDirectory()
	out := newTestPipeline(dir).Run(context.Background(), scanner.Tag("tag-999"), "stu-1", mondayAt(9, 5))

	assert.Equal(t, ReasonUnknownTag, out.Reason)
	assert.Nil(t, out.Course)
	assert.Equal(t, []State{StateIdle, StateFailed}, out.Trace)
	assert.Equal(t, []string{"ResolveCourseByTag"}, dir.Calls())
}

func TestPipelineScanFailureTouchesNothing(t *testing.T) {
	for _, res := range []scanner.Result{
		scanner.Failed(scanner.ErrCancelled),
		scanner.Failed(scanner.ErrUnreadable),
		scanner.Tag(""),
		{},
	} {
		dir := seededDirectory()
		out := newTestPipeline(dir).Run(context.Background(), res, "stu-1", mondayAt(9, 5))

		assert.Equal(t, ReasonScanFailure, out.Reason)
		assert.Error(t, out.Err)
		assert.Empty(t, dir.Calls())
	}
}

func TestPipelinePersistenceError(t *testing.T) {
	dir := seededDirectory()
	dir.persistErr = errStoreDown
	out := newTestPipeline(dir).Run(context.Background(), scanner.Tag("tag-380"), "stu-1", mondayAt(9, 30))

	assert.Equal(t, ReasonPersistenceError, out.Reason)
	assert.ErrorIs(t, out.Err, errStoreDown)
	assert.Equal(t, schedule.StatusLate, out.Status)
	assert.Equal(t, []State{StateIdle, StateTagResolved, StateEligible, StateFailed}, out.Trace)

	persists := 0
	for _, c := range dir.Calls() {
		if c == "PersistAttendanceRecord" {
			persists++
		}
	}
	assert.Equal(t, 1, persists)
}

func TestPipelineLookupFailureIsPersistenceError(t *testing.T) {
	dir := seededDirectory()
	dir.lookupErr = errStoreDown
	out := newTestPipeline(dir).Run(context.Background(), scanner.Tag("tag-380"), "stu-1", mondayAt(9, 5))

	assert.Equal(t, ReasonPersistenceError, out.Reason)
	assert.ErrorIs(t, out.Err, errStoreDown)
}

func TestPipelineConcurrentScansRecordOnce(t *testing.T) {
	dir := seededDirectory()
	const runs = 8

	// Hold every writer until all runs have passed the duplicate check.
	var arrived sync.WaitGroup
	arrived.Add(runs)
	release := make(chan struct{})
	dir.beforePersist = func() {
		arrived.Done()
		<-release
	}
	go func() {
		arrived.Wait()
		close(release)
	}()

	p := newTestPipeline(dir)
	outcomes := make([]Outcome, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = p.Run(context.Background(), scanner.Tag("tag-380"), "stu-1", mondayAt(9, 5))
		}(i)
	}
	wg.Wait()

	recorded := 0
	for _, out := range outcomes {
		if out.Recorded() {
			recorded++
			continue
		}
		assert.Equal(t, ReasonPersistenceError, out.Reason)
		assert.ErrorIs(t, out.Err, ErrConflict)
	}
	assert.Equal(t, 1, recorded)
	assert.Equal(t, 1, dir.recordCount())
}

func TestPipelineUsesLocalCalendar(t *testing.T) {
	dir := seededDirectory()
	est := time.FixedZone("EST", -5*60*60)
	p := newTestPipeline(dir, WithLocation(est))

	// 14:05 UTC is 09:05 in EST.
	out := p.Run(context.Background(), scanner.Tag("tag-380"), "stu-1", mondayAt(14, 5))
	require.True(t, out.Recorded(), "reason %s", out.Reason)
	assert.Equal(t, schedule.StatusOnTime, out.Status)
	assert.Equal(t, "2026-10-19", out.Record.SessionDate)
}

func TestPipelineScanAwaitsScanner(t *testing.T) {
	dir := seededDirectory()
	p := newTestPipeline(dir, WithClock(func() time.Time { return mondayAt(8, 50) }))

	out := p.Scan(context.Background(), scanner.Func(func(ctx context.Context) (string, error) {
		return "tag-380", nil
	}), "stu-1")
	require.True(t, out.Recorded())
	assert.Equal(t, schedule.StatusEarly, out.Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = p.Scan(ctx, scanner.Func(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), "stu-1")
	assert.Equal(t, ReasonScanFailure, out.Reason)
	assert.ErrorIs(t, out.Err, scanner.ErrCancelled)
}

func TestReasonMessages(t *testing.T) {
	for _, r := range []Reason{ReasonUnknownTag, ReasonNotEnrolled, ReasonOutsideWindow, ReasonAlreadyMarked, ReasonScanFailure, ReasonPersistenceError} {
		assert.NotEmpty(t, r.Message(), string(r))
	}
	assert.True(t, ReasonAlreadyMarked.Eligibility())
	assert.False(t, ReasonPersistenceError.Eligibility())
}
