package timetable

// Kind enumerates the validation failure categories. Every kind is a
// user-facing, recoverable outcome; none should abort the process.
type Kind string

const (
	KindEmptyProposal       Kind = "EMPTY_PROPOSAL"
	KindInvalidDay          Kind = "INVALID_DAY"
	KindFormatError         Kind = "FORMAT_ERROR"
	KindInvertedInterval    Kind = "INVERTED_INTERVAL"
	KindSelfOverlap         Kind = "SELF_OVERLAP"
	KindCourseConflict      Kind = "COURSE_CONFLICT"
	KindTeacherConflict     Kind = "TEACHER_CONFLICT"
	KindDuplicateAssignment Kind = "DUPLICATE_ASSIGNMENT"
)

// Error is a structured validation failure. Message is suitable for direct
// display to the end user.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Day and the minute range are set for overlap failures.
	Day   string  `json:"day,omitempty"`
	Start Minutes `json:"start,omitempty"`
	End   Minutes `json:"end,omitempty"`
	// ConflictLabel names the colliding subject (course conflicts) or
	// course (teacher conflicts).
	ConflictLabel string `json:"conflict_label,omitempty"`
	// ConflictID is the persisted schedule the proposal collides with.
	ConflictID string `json:"conflict_id,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Conflict reports whether the failure involves already persisted data, as
// opposed to a malformed proposal.
func (e *Error) Conflict() bool {
	switch e.Kind {
	case KindCourseConflict, KindTeacherConflict, KindDuplicateAssignment:
		return true
	default:
		return false
	}
}
