package attendance

import "tagattend/internal/schedule"

// Reason explains why a scan did not produce a record.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUnknownTag       Reason = "UnknownTag"
	ReasonNotEnrolled      Reason = "NotEnrolled"
	ReasonOutsideWindow    Reason = "OutsideWindow"
	ReasonAlreadyMarked    Reason = "AlreadyMarked"
	ReasonScanFailure      Reason = "ScanFailure"
	ReasonPersistenceError Reason = "PersistenceError"
)

var reasonMessages = map[Reason]string{
	ReasonUnknownTag:       "Invalid or unrecognized tag",
	ReasonNotEnrolled:      "You are not enrolled in this course",
	ReasonOutsideWindow:    "Attendance can only be marked during class time",
	ReasonAlreadyMarked:    "Attendance already marked for this session",
	ReasonScanFailure:      "Failed to read tag",
	ReasonPersistenceError: "Attendance could not be saved, try again",
}

// Message is a user facing description of the reason.
func (r Reason) Message() string {
	return reasonMessages[r]
}

// Eligibility reports whether the reason is a deterministic rejection based
// on directory state, as opposed to an input or infrastructure failure.
func (r Reason) Eligibility() bool {
	switch r {
	case ReasonUnknownTag, ReasonNotEnrolled, ReasonOutsideWindow, ReasonAlreadyMarked:
		return true
	default:
		return false
	}
}

// State is a step of a pipeline run.
type State string

const (
	StateIdle        State = "Idle"
	StateTagResolved State = "TagResolved"
	StateEligible    State = "Eligible"
	StateRecorded    State = "Recorded"
	StateFailed      State = "Failed"
)

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	State  State
	Reason Reason
	Course *Course
	Status schedule.Status
	Record *Record
	// Trace lists the states the run passed through, ending with State.
	Trace []State
	// Err holds the underlying cause of ScanFailure and PersistenceError.
	Err error
}

// Recorded reports whether the run persisted a record.
func (o Outcome) Recorded() bool { return o.State == StateRecorded }

// CourseName returns the course name, or "" when no course was resolved.
func (o Outcome) CourseName() string {
	if o.Course == nil {
		return ""
	}
	return o.Course.Name
}
