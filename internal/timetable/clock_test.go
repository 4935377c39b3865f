package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		input   string
		want    Minutes
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"13:45", 825, false},
		{"23:59", 1439, false},
		// Only the HH:MM shape is validated; legacy records carry
		// out-of-range digits and must keep parsing.
		{"25:00", 1500, false},
		{"07:70", 490, false},
		{"8:00", 0, true},
		{"08:0", 0, true},
		{"0800", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
		{"08:00 ", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestParseClockOrdering(t *testing.T) {
	pairs := [][2]string{
		{"07:30", "08:00"},
		{"08:00", "08:01"},
		{"00:00", "23:59"},
		{"12:15", "14:45"},
	}
	for _, pair := range pairs {
		start, err := ParseClock(pair[0])
		require.NoError(t, err)
		end, err := ParseClock(pair[1])
		require.NoError(t, err)
		assert.Less(t, int(start), int(end), "%s < %s", pair[0], pair[1])
	}
}

func TestMinutesClock(t *testing.T) {
	assert.Equal(t, "08:05", Minutes(485).Clock())
	assert.Equal(t, "00:00", Minutes(0).Clock())
	assert.Equal(t, "23:59", Minutes(1439).Clock())
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(480, 540, 510, 570))
	assert.True(t, Overlaps(480, 540, 480, 540))
	assert.True(t, Overlaps(480, 600, 500, 520), "containment")

	// Touching intervals do not overlap (half-open semantics).
	assert.False(t, Overlaps(0, 60, 60, 120))
	assert.False(t, Overlaps(60, 120, 0, 60))
	assert.False(t, Overlaps(480, 540, 600, 660))
}

func TestOverlapsSymmetric(t *testing.T) {
	cases := [][4]Minutes{
		{480, 540, 510, 570},
		{0, 60, 60, 120},
		{100, 200, 150, 160},
		{0, 10, 20, 30},
	}
	for _, c := range cases {
		assert.Equal(t,
			Overlaps(c[0], c[1], c[2], c[3]),
			Overlaps(c[2], c[3], c[0], c[1]),
			"overlap must be symmetric for %v", c)
	}
}
