package timetable

import (
	"context"
	"fmt"
)

// BookedSchedule is the view of a persisted schedule the validator compares
// against. Label carries the display name of the subject (course scans) or
// the course (teacher scans); the id is used as fallback when no name is
// available on the record.
type BookedSchedule struct {
	ID    string
	Label string
	Slots []Slot
}

// DisplayLabel returns the record's label, falling back to its id.
func (b BookedSchedule) DisplayLabel() string {
	if b.Label != "" {
		return b.Label
	}
	return b.ID
}

// ScheduleSource supplies the persisted schedules visible in a conflict
// scope. Implementations own query composition and snapshot consistency.
type ScheduleSource interface {
	ByCourse(ctx context.Context, periodID, courseID string) ([]BookedSchedule, error)
	ByTeacher(ctx context.Context, periodID, teacherID string) ([]BookedSchedule, error)
	AssignmentExists(ctx context.Context, periodID, courseID, subjectID, excludeID string) (bool, error)
}

// ReferenceChecker verifies that the proposal's identifiers exist and belong
// together. It is a collaborator contract: callers supply their own
// referential-integrity rules and the validator only sequences them.
type ReferenceChecker interface {
	CheckReferences(ctx context.Context, p Proposal) error
}

// Proposal is a slot set submitted for one (period, course, subject, teacher)
// tuple. ExcludeID carries the schedule's own id on edit so it does not
// conflict with its prior version.
type Proposal struct {
	PeriodID  string
	CourseID  string
	SubjectID string
	TeacherID string
	ExcludeID string
	Slots     []RawSlot
}

// Validator sequences structural, referential, conflict and uniqueness checks
// for schedule proposals. It holds no state beyond its collaborators and is
// safe for concurrent use.
type Validator struct {
	source ScheduleSource
	refs   ReferenceChecker
}

// NewValidator builds a validator. refs may be nil when referential checks
// are handled elsewhere.
func NewValidator(source ScheduleSource, refs ReferenceChecker) *Validator {
	return &Validator{source: source, refs: refs}
}

// Validate runs the five validation stages in order and short-circuits on the
// first failure. On success it returns the normalized slot set.
func (v *Validator) Validate(ctx context.Context, p Proposal) ([]Slot, error) {
	slots, verr := NormalizeSlots(p.Slots)
	if verr != nil {
		return nil, verr
	}

	if v.refs != nil {
		if err := v.refs.CheckReferences(ctx, p); err != nil {
			return nil, err
		}
	}

	if err := v.checkCourseConflicts(ctx, p, slots); err != nil {
		return nil, err
	}
	if err := v.checkTeacherConflicts(ctx, p, slots); err != nil {
		return nil, err
	}
	if err := v.checkDuplicateAssignment(ctx, p); err != nil {
		return nil, err
	}

	return slots, nil
}

// Revalidate re-runs only the stages that read persisted state, against the
// given source. Used inside the guarded transaction to close the
// read-check-write race without repeating structural work.
func (v *Validator) Revalidate(ctx context.Context, src ScheduleSource, p Proposal, slots []Slot) error {
	guard := &Validator{source: src}
	if err := guard.checkCourseConflicts(ctx, p, slots); err != nil {
		return err
	}
	if err := guard.checkTeacherConflicts(ctx, p, slots); err != nil {
		return err
	}
	return guard.checkDuplicateAssignment(ctx, p)
}

func (v *Validator) checkCourseConflicts(ctx context.Context, p Proposal, slots []Slot) error {
	booked, err := v.source.ByCourse(ctx, p.PeriodID, p.CourseID)
	if err != nil {
		return fmt.Errorf("load course schedules: %w", err)
	}
	if hit, existing, slot := firstCollision(booked, slots, p.ExcludeID); hit != nil {
		return &Error{
			Kind:          KindCourseConflict,
			Day:           slot.Day,
			Start:         slot.Start,
			End:           slot.End,
			ConflictLabel: existing.DisplayLabel(),
			ConflictID:    existing.ID,
			Message: fmt.Sprintf("the course already has %s scheduled on %s",
				existing.DisplayLabel(), hit.Label()),
		}
	}
	return nil
}

func (v *Validator) checkTeacherConflicts(ctx context.Context, p Proposal, slots []Slot) error {
	booked, err := v.source.ByTeacher(ctx, p.PeriodID, p.TeacherID)
	if err != nil {
		return fmt.Errorf("load teacher schedules: %w", err)
	}
	if hit, existing, slot := firstCollision(booked, slots, p.ExcludeID); hit != nil {
		return &Error{
			Kind:          KindTeacherConflict,
			Day:           slot.Day,
			Start:         slot.Start,
			End:           slot.End,
			ConflictLabel: existing.DisplayLabel(),
			ConflictID:    existing.ID,
			Message: fmt.Sprintf("the teacher is already booked for %s on %s",
				existing.DisplayLabel(), hit.Label()),
		}
	}
	return nil
}

func (v *Validator) checkDuplicateAssignment(ctx context.Context, p Proposal) error {
	exists, err := v.source.AssignmentExists(ctx, p.PeriodID, p.CourseID, p.SubjectID, p.ExcludeID)
	if err != nil {
		return fmt.Errorf("check duplicate assignment: %w", err)
	}
	if exists {
		return &Error{
			Kind:    KindDuplicateAssignment,
			Message: "this subject is already scheduled for the course in this period",
		}
	}
	return nil
}

// firstCollision scans every (booked slot, proposed slot) pair sharing a day
// and returns the first overlapping booked slot, its schedule and the
// proposed slot it collides with. Schedules matching excludeID are skipped.
func firstCollision(booked []BookedSchedule, proposed []Slot, excludeID string) (*Slot, BookedSchedule, Slot) {
	for _, existing := range booked {
		if excludeID != "" && existing.ID == excludeID {
			continue
		}
		for _, have := range existing.Slots {
			for _, want := range proposed {
				if have.Day != want.Day {
					continue
				}
				if Overlaps(have.Start, have.End, want.Start, want.End) {
					hit := have
					return &hit, existing, want
				}
			}
		}
	}
	return nil, BookedSchedule{}, Slot{}
}
