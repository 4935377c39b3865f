package timetable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceStub struct {
	byCourse   map[string][]BookedSchedule
	byTeacher  map[string][]BookedSchedule
	duplicates map[string]bool
	err        error
}

func scopeKey(periodID, ownerID string) string { return periodID + "|" + ownerID }

func (s *sourceStub) ByCourse(_ context.Context, periodID, courseID string) ([]BookedSchedule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byCourse[scopeKey(periodID, courseID)], nil
}

func (s *sourceStub) ByTeacher(_ context.Context, periodID, teacherID string) ([]BookedSchedule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byTeacher[scopeKey(periodID, teacherID)], nil
}

func (s *sourceStub) AssignmentExists(_ context.Context, periodID, courseID, subjectID, excludeID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.duplicates[periodID+"|"+courseID+"|"+subjectID+"|"+excludeID], nil
}

type refsStub struct{ err error }

func (r refsStub) CheckReferences(context.Context, Proposal) error { return r.err }

func mondaySlot(start, end string) []RawSlot {
	return []RawSlot{{Day: "Lunes", Start: start, End: end}}
}

func booked(id, label string, day string, start, end Minutes) BookedSchedule {
	return BookedSchedule{ID: id, Label: label, Slots: []Slot{{Day: day, Start: start, End: end}}}
}

func TestValidatorAcceptsCleanProposal(t *testing.T) {
	v := NewValidator(&sourceStub{}, nil)
	slots, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c1", SubjectID: "s1", TeacherID: "t1",
		Slots: mondaySlot("08:00", "09:00"),
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, Minutes(480), slots[0].Start)
}

func TestValidatorStructuralFailureShortCircuits(t *testing.T) {
	src := &sourceStub{err: errors.New("source must not be reached")}
	v := NewValidator(src, refsStub{err: errors.New("refs must not be reached")})

	_, err := v.Validate(context.Background(), Proposal{Slots: nil})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindEmptyProposal, verr.Kind)
}

func TestValidatorReferentialFailureBeforeConflictScan(t *testing.T) {
	src := &sourceStub{err: errors.New("source must not be reached")}
	refErr := errors.New("course not found")
	v := NewValidator(src, refsStub{err: refErr})

	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c1", SubjectID: "s1", TeacherID: "t1",
		Slots: mondaySlot("08:00", "09:00"),
	})
	assert.ErrorIs(t, err, refErr)
}

func TestValidatorCourseConflict(t *testing.T) {
	src := &sourceStub{
		byCourse: map[string][]BookedSchedule{
			scopeKey("p1", "c1"): {booked("sched-1", "Matematicas", "Lunes", 480, 540)},
		},
	}
	v := NewValidator(src, nil)

	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c1", SubjectID: "s2", TeacherID: "t2",
		Slots: mondaySlot("08:30", "09:15"),
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindCourseConflict, verr.Kind)
	assert.Equal(t, "Matematicas", verr.ConflictLabel)
	assert.Equal(t, "sched-1", verr.ConflictID)
	assert.Equal(t, "Lunes", verr.Day)
}

func TestValidatorCourseConflictFallsBackToID(t *testing.T) {
	src := &sourceStub{
		byCourse: map[string][]BookedSchedule{
			scopeKey("p1", "c1"): {booked("sched-9", "", "Lunes", 480, 540)},
		},
	}
	v := NewValidator(src, nil)

	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c1", SubjectID: "s2", TeacherID: "t2",
		Slots: mondaySlot("08:30", "09:00"),
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sched-9", verr.ConflictLabel)
}

func TestValidatorDifferentCourseStillChecksTeacher(t *testing.T) {
	// Same booked schedule, but the proposal targets another course taught
	// by the same teacher: course scan passes, teacher scan must reject.
	src := &sourceStub{
		byCourse: map[string][]BookedSchedule{
			scopeKey("p1", "c1"): {booked("sched-1", "Matematicas", "Lunes", 480, 540)},
		},
		byTeacher: map[string][]BookedSchedule{
			scopeKey("p1", "t1"): {booked("sched-1", "1A", "Lunes", 480, 540)},
		},
	}
	v := NewValidator(src, nil)

	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c2", SubjectID: "s2", TeacherID: "t1",
		Slots: mondaySlot("08:30", "09:15"),
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindTeacherConflict, verr.Kind)
	assert.Equal(t, "1A", verr.ConflictLabel)
}

func TestValidatorCrossPeriodIsIsolated(t *testing.T) {
	src := &sourceStub{
		byCourse: map[string][]BookedSchedule{
			scopeKey("p1", "c1"): {booked("sched-1", "Matematicas", "Lunes", 480, 540)},
		},
	}
	v := NewValidator(src, nil)

	// Same course and identical slot, but a different academic period.
	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p2", CourseID: "c1", SubjectID: "s2", TeacherID: "t2",
		Slots: mondaySlot("08:00", "09:00"),
	})
	require.NoError(t, err)
}

func TestValidatorEditExcludesOwnSchedule(t *testing.T) {
	src := &sourceStub{
		byCourse: map[string][]BookedSchedule{
			scopeKey("p1", "c1"): {booked("sched-1", "Matematicas", "Lunes", 480, 540)},
		},
		byTeacher: map[string][]BookedSchedule{
			scopeKey("p1", "t1"): {booked("sched-1", "1A", "Lunes", 480, 540)},
		},
	}
	v := NewValidator(src, nil)

	// Resubmitting the schedule's own unchanged slot set must pass.
	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c1", SubjectID: "s1", TeacherID: "t1",
		ExcludeID: "sched-1",
		Slots:     mondaySlot("08:00", "09:00"),
	})
	require.NoError(t, err)
}

func TestValidatorDuplicateAssignment(t *testing.T) {
	src := &sourceStub{
		duplicates: map[string]bool{"p1|c1|s1|": true},
	}
	v := NewValidator(src, nil)

	// No time overlap anywhere, still rejected: the subject is already
	// assigned to the course in this period.
	_, err := v.Validate(context.Background(), Proposal{
		PeriodID: "p1", CourseID: "c1", SubjectID: "s1", TeacherID: "t1",
		Slots: mondaySlot("14:00", "15:00"),
	})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindDuplicateAssignment, verr.Kind)
	assert.True(t, verr.Conflict())
}

func TestValidatorEndToEndScenario(t *testing.T) {
	// Period P, course 1A, Math with T1 on Lunes 08:00-09:00 accepted,
	// then Science with T1 on Lunes 08:30-09:15 rejected as a teacher
	// conflict even though the course differs.
	src := &sourceStub{byCourse: map[string][]BookedSchedule{}, byTeacher: map[string][]BookedSchedule{}}
	v := NewValidator(src, nil)
	ctx := context.Background()

	first := Proposal{
		PeriodID: "P", CourseID: "1A", SubjectID: "math", TeacherID: "T1",
		Slots: mondaySlot("08:00", "09:00"),
	}
	slots, err := v.Validate(ctx, first)
	require.NoError(t, err)

	// Caller persists the accepted proposal.
	accepted := BookedSchedule{ID: "sched-1", Label: "Math", Slots: slots}
	src.byCourse[scopeKey("P", "1A")] = []BookedSchedule{accepted}
	src.byTeacher[scopeKey("P", "T1")] = []BookedSchedule{{ID: "sched-1", Label: "1A", Slots: slots}}

	second := Proposal{
		PeriodID: "P", CourseID: "1B", SubjectID: "science", TeacherID: "T1",
		Slots: mondaySlot("08:30", "09:15"),
	}
	_, err = v.Validate(ctx, second)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindTeacherConflict, verr.Kind)
	assert.Equal(t, "1A", verr.ConflictLabel)
}

func TestValidatorRevalidateUsesGivenSource(t *testing.T) {
	clean := &sourceStub{}
	dirty := &sourceStub{
		byTeacher: map[string][]BookedSchedule{
			scopeKey("p1", "t1"): {booked("sched-2", "2B", "Lunes", 500, 560)},
		},
	}
	v := NewValidator(clean, nil)
	p := Proposal{PeriodID: "p1", CourseID: "c1", SubjectID: "s1", TeacherID: "t1"}
	slots := []Slot{{Day: "Lunes", Start: 480, End: 540}}

	require.NoError(t, v.Revalidate(context.Background(), clean, p, slots))

	err := v.Revalidate(context.Background(), dirty, p, slots)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindTeacherConflict, verr.Kind)
}
