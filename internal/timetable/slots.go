package timetable

import (
	"fmt"
	"sort"
	"strings"
)

// Week lists the recognized day labels in calendar order.
var Week = []string{"Lunes", "Martes", "Miercoles", "Jueves", "Viernes", "Sabado", "Domingo"}

// dayAliases maps lowercase spellings, accented ones included, onto the
// canonical label. Legacy clients send both forms.
var dayAliases = map[string]string{
	"lunes":     "Lunes",
	"martes":    "Martes",
	"miercoles": "Miercoles",
	"miércoles": "Miercoles",
	"jueves":    "Jueves",
	"viernes":   "Viernes",
	"sabado":    "Sabado",
	"sábado":    "Sabado",
	"domingo":   "Domingo",
}

// dayOrder gives each canonical day its position within the week.
var dayOrder = func() map[string]int {
	order := make(map[string]int, len(Week))
	for i, day := range Week {
		order[day] = i
	}
	return order
}()

// CanonicalDay normalizes a day label, reporting whether it is recognized.
func CanonicalDay(label string) (string, bool) {
	day, ok := dayAliases[strings.ToLower(strings.TrimSpace(label))]
	return day, ok
}

// RawSlot is one weekly occurrence as submitted by the client.
type RawSlot struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slot is a validated occurrence with parsed minute offsets.
type Slot struct {
	Day   string  `json:"day" db:"day"`
	Start Minutes `json:"start" db:"start_min"`
	End   Minutes `json:"end" db:"end_min"`
}

// Label renders the slot for conflict messages, e.g. "Lunes 08:00-09:00".
func (s Slot) Label() string {
	return fmt.Sprintf("%s %s-%s", s.Day, s.Start.Clock(), s.End.Clock())
}

// NormalizeSlots validates the raw slot set and returns parsed slots. It
// rejects empty proposals, unknown days, malformed or inverted times, and
// overlapping slots within the same submission.
func NormalizeSlots(raw []RawSlot) ([]Slot, *Error) {
	if len(raw) == 0 {
		return nil, &Error{Kind: KindEmptyProposal, Message: "at least one time slot is required"}
	}

	slots := make([]Slot, 0, len(raw))
	for _, entry := range raw {
		day, ok := CanonicalDay(entry.Day)
		if !ok {
			return nil, &Error{
				Kind:    KindInvalidDay,
				Message: fmt.Sprintf("%q is not a valid day of the week", entry.Day),
			}
		}
		start, err := ParseClock(entry.Start)
		if err != nil {
			return nil, &Error{Kind: KindFormatError, Day: day, Message: err.Error()}
		}
		end, err := ParseClock(entry.End)
		if err != nil {
			return nil, &Error{Kind: KindFormatError, Day: day, Message: err.Error()}
		}
		if start >= end {
			return nil, &Error{
				Kind:    KindInvertedInterval,
				Day:     day,
				Start:   start,
				End:     end,
				Message: fmt.Sprintf("slot on %s must start before it ends (%s-%s)", day, start.Clock(), end.Clock()),
			}
		}
		slots = append(slots, Slot{Day: day, Start: start, End: end})
	}

	if err := checkSelfOverlap(slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// checkSelfOverlap groups slots by day, sorts each day by start time and
// flags any consecutive overlapping pair.
func checkSelfOverlap(slots []Slot) *Error {
	byDay := make(map[string][]Slot)
	for _, slot := range slots {
		byDay[slot.Day] = append(byDay[slot.Day], slot)
	}
	for day, daySlots := range byDay {
		sort.Slice(daySlots, func(i, j int) bool { return daySlots[i].Start < daySlots[j].Start })
		for i := 1; i < len(daySlots); i++ {
			prev, cur := daySlots[i-1], daySlots[i]
			if Overlaps(prev.Start, prev.End, cur.Start, cur.End) {
				return &Error{
					Kind:    KindSelfOverlap,
					Day:     day,
					Start:   cur.Start,
					End:     cur.End,
					Message: fmt.Sprintf("slots %s and %s overlap each other", prev.Label(), cur.Label()),
				}
			}
		}
	}
	return nil
}

// SortSlots orders slots by weekday then start time, for stable display.
func SortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if dayOrder[slots[i].Day] != dayOrder[slots[j].Day] {
			return dayOrder[slots[i].Day] < dayOrder[slots[j].Day]
		}
		return slots[i].Start < slots[j].Start
	})
}
