package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("two days with time range", func(t *testing.T) {
		intervals := Parse("Mon/Wed 10:00-11:30")
		require.Len(t, intervals, 2)
		assert.Equal(t, Interval{Day: time.Monday, Start: 600, End: 690}, intervals[0])
		assert.Equal(t, Interval{Day: time.Wednesday, Start: 600, End: 690}, intervals[1])
	})

	t.Run("single day", func(t *testing.T) {
		intervals := Parse("Fri 14:00-16:50")
		require.Len(t, intervals, 1)
		assert.Equal(t, Interval{Day: time.Friday, Start: 840, End: 1010}, intervals[0])
	})

	t.Run("full day names and mixed case", func(t *testing.T) {
		intervals := Parse("monday/THURSDAY 09:30-10:20")
		require.Len(t, intervals, 2)
		assert.Equal(t, time.Monday, intervals[0].Day)
		assert.Equal(t, time.Thursday, intervals[1].Day)
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		intervals := Parse("  Tue 08:00-09:00  ")
		require.Len(t, intervals, 1)
		assert.Equal(t, time.Tuesday, intervals[0].Day)
	})

	t.Run("malformed descriptors yield nil", func(t *testing.T) {
		for _, descriptor := range []string{
			"",
			"TBA",
			"Mon/Wed",
			"Mon/Wed 10:00",
			"Mon/Wed 10:00-",
			"Mon/Wed 11:30-10:00", // end before start
			"Mon/Wed 10:00-10:00", // zero-length
			"Mon/Xyz 10:00-11:30", // unknown day
			"Mon/Wed 25:00-26:00", // out-of-range hour
			"Mon/Wed 10:61-11:30", // out-of-range minute
			"Mon Wed 10:00-11:30", // days not slash-separated
		} {
			assert.Nil(t, Parse(descriptor), "descriptor %q", descriptor)
		}
	})
}

func TestOverlaps(t *testing.T) {
	monWedMorning := Parse("Mon/Wed 10:00-11:30")

	t.Run("overlapping range on shared day", func(t *testing.T) {
		assert.True(t, Overlaps(monWedMorning, Parse("Mon/Wed 10:30-12:00")))
		assert.True(t, Overlaps(monWedMorning, Parse("Wed 09:00-10:01")))
	})

	t.Run("containment counts as overlap", func(t *testing.T) {
		assert.True(t, Overlaps(monWedMorning, Parse("Mon 10:15-10:45")))
		assert.True(t, Overlaps(monWedMorning, Parse("Mon 09:00-13:00")))
	})

	t.Run("touching endpoints do not conflict", func(t *testing.T) {
		assert.False(t, Overlaps(monWedMorning, Parse("Mon/Wed 11:30-13:00")))
		assert.False(t, Overlaps(monWedMorning, Parse("Mon/Wed 08:30-10:00")))
	})

	t.Run("same time on different days", func(t *testing.T) {
		assert.False(t, Overlaps(monWedMorning, Parse("Tue/Thu 10:00-11:30")))
	})

	t.Run("empty sets never conflict", func(t *testing.T) {
		assert.False(t, Overlaps(nil, monWedMorning))
		assert.False(t, Overlaps(monWedMorning, nil))
		assert.False(t, Overlaps(nil, nil))
	})
}
