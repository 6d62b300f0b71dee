package timeutil_test

import (
	"testing"
	"time"

	"github.com/naksha/availability-core/internal/timeutil"
	"github.com/stretchr/testify/assert"
)

func TestParseHHMM(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9:30", 570, false},
		{"09:60", 0, true},
		{"not-a-time", 0, true},
	}
	for _, tc := range cases {
		got, err := timeutil.ParseHHMM(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatHHMM(t *testing.T) {
	assert.Equal(t, "00:00", timeutil.FormatHHMM(0))
	assert.Equal(t, "09:05", timeutil.FormatHHMM(545))
	assert.Equal(t, "23:59", timeutil.FormatHHMM(1439))
}

func TestEnumerateHourly(t *testing.T) {
	slots := timeutil.EnumerateHourly(540, 630) // 09:00-10:30
	assert.Len(t, slots, 1, "trailing 30-minute remainder must be discarded")
	assert.Equal(t, timeutil.HourSlot{Start: 540, End: 600}, slots[0])

	slots = timeutil.EnumerateHourly(540, 540)
	assert.Empty(t, slots)

	slots = timeutil.EnumerateHourly(0, 180)
	assert.Len(t, slots, 3)
}

func TestEnumerateDates(t *testing.T) {
	start := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)
	dates := timeutil.EnumerateDates(start, end)
	assert.Len(t, dates, 3)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), dates[2])
}

func TestWeekday(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, timeutil.Weekday(monday))
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := timeutil.ParseDate("2026-03-02")
	assert.NoError(t, err)
	assert.Equal(t, "2026-03-02", timeutil.FormatDate(d))

	_, err = timeutil.ParseDate("03-02-2026")
	assert.Error(t, err)
}
