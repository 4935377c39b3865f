package timetable

import (
	"fmt"
	"regexp"
)

// Minutes is a wall-clock time expressed as minutes since midnight.
type Minutes int

// clockShape matches the HH:MM wire format. Only the digit shape is checked;
// the legacy data contains entries like "07:70" and they must keep validating.
var clockShape = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseClock converts an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (Minutes, error) {
	if !clockShape.MatchString(s) {
		return 0, fmt.Errorf("time %q is not in HH:MM format", s)
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	mins := int(s[3]-'0')*10 + int(s[4]-'0')
	return Minutes(hours*60 + mins), nil
}

// Clock renders the minute offset back as "HH:MM".
func (m Minutes) Clock() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any minute. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Minutes) bool {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	return lo < hi
}
