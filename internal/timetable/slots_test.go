package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSlotsEmpty(t *testing.T) {
	_, err := NormalizeSlots(nil)
	require.NotNil(t, err)
	assert.Equal(t, KindEmptyProposal, err.Kind)
}

func TestNormalizeSlotsInvalidDay(t *testing.T) {
	_, err := NormalizeSlots([]RawSlot{{Day: "Funday", Start: "08:00", End: "09:00"}})
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidDay, err.Kind)
}

func TestNormalizeSlotsAcceptsAccentedDays(t *testing.T) {
	slots, err := NormalizeSlots([]RawSlot{
		{Day: "Miércoles", Start: "08:00", End: "09:00"},
		{Day: "sábado", Start: "10:00", End: "11:00"},
	})
	require.Nil(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "Miercoles", slots[0].Day)
	assert.Equal(t, "Sabado", slots[1].Day)
}

func TestNormalizeSlotsFormatError(t *testing.T) {
	_, err := NormalizeSlots([]RawSlot{{Day: "Lunes", Start: "8:00", End: "09:00"}})
	require.NotNil(t, err)
	assert.Equal(t, KindFormatError, err.Kind)

	_, err = NormalizeSlots([]RawSlot{{Day: "Lunes", Start: "08:00", End: "9h30"}})
	require.NotNil(t, err)
	assert.Equal(t, KindFormatError, err.Kind)
}

func TestNormalizeSlotsInvertedInterval(t *testing.T) {
	_, err := NormalizeSlots([]RawSlot{{Day: "Lunes", Start: "09:00", End: "08:00"}})
	require.NotNil(t, err)
	assert.Equal(t, KindInvertedInterval, err.Kind)

	// Zero-length slots are inverted too.
	_, err = NormalizeSlots([]RawSlot{{Day: "Lunes", Start: "08:00", End: "08:00"}})
	require.NotNil(t, err)
	assert.Equal(t, KindInvertedInterval, err.Kind)
}

func TestNormalizeSlotsSelfOverlap(t *testing.T) {
	_, err := NormalizeSlots([]RawSlot{
		{Day: "Lunes", Start: "08:00", End: "09:00"},
		{Day: "Lunes", Start: "08:30", End: "09:30"},
	})
	require.NotNil(t, err)
	assert.Equal(t, KindSelfOverlap, err.Kind)
	assert.Equal(t, "Lunes", err.Day)
}

func TestNormalizeSlotsDifferentDaysPass(t *testing.T) {
	slots, err := NormalizeSlots([]RawSlot{
		{Day: "Lunes", Start: "08:00", End: "09:00"},
		{Day: "Martes", Start: "08:00", End: "09:00"},
	})
	require.Nil(t, err)
	assert.Len(t, slots, 2)
}

func TestNormalizeSlotsTouchingSlotsPass(t *testing.T) {
	slots, err := NormalizeSlots([]RawSlot{
		{Day: "Viernes", Start: "08:00", End: "09:00"},
		{Day: "Viernes", Start: "09:00", End: "10:00"},
	})
	require.Nil(t, err)
	assert.Len(t, slots, 2)
}

func TestNormalizeSlotsUnsortedInputDetected(t *testing.T) {
	// The overlap must be found even when the colliding slots arrive out
	// of order and separated by another day.
	_, err := NormalizeSlots([]RawSlot{
		{Day: "Jueves", Start: "10:00", End: "11:00"},
		{Day: "Martes", Start: "08:00", End: "09:00"},
		{Day: "Jueves", Start: "09:30", End: "10:30"},
	})
	require.NotNil(t, err)
	assert.Equal(t, KindSelfOverlap, err.Kind)
	assert.Equal(t, "Jueves", err.Day)
}

func TestSortSlots(t *testing.T) {
	slots := []Slot{
		{Day: "Viernes", Start: 480, End: 540},
		{Day: "Lunes", Start: 600, End: 660},
		{Day: "Lunes", Start: 480, End: 540},
	}
	SortSlots(slots)
	assert.Equal(t, "Lunes", slots[0].Day)
	assert.Equal(t, Minutes(480), slots[0].Start)
	assert.Equal(t, "Lunes", slots[1].Day)
	assert.Equal(t, "Viernes", slots[2].Day)
}

func TestSlotLabel(t *testing.T) {
	slot := Slot{Day: "Lunes", Start: 480, End: 545}
	assert.Equal(t, "Lunes 08:00-09:05", slot.Label())
}
