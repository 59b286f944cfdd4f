package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}

	return t
}

func TestDayRange(t *testing.T) {
	// A Wednesday afternoon.
	now := time.Date(2024, 5, 15, 16, 20, 0, 0, time.UTC)

	tests := []struct {
		tf         Timeframe
		start, end string
	}{
		{TimeframeToday, "2024-05-15", "2024-05-15"},
		{TimeframeThisWeek, "2024-05-13", "2024-05-15"},
		{TimeframeLastWeek, "2024-05-06", "2024-05-12"},
		{TimeframeThisMonth, "2024-05-01", "2024-05-15"},
		{TimeframeLastMonth, "2024-04-01", "2024-04-30"},
	}

	for _, tt := range tests {
		t.Run(tt.tf.String(), func(t *testing.T) {
			start, end := dayRange(tt.tf, now)
			assert.Equal(t, day(tt.start), start)
			assert.Equal(t, day(tt.end), end)
		})
	}
}

func TestDayRange_Sunday(t *testing.T) {
	now := time.Date(2024, 5, 19, 9, 0, 0, 0, time.UTC)

	start, end := dayRange(TimeframeThisWeek, now)
	assert.Equal(t, day("2024-05-13"), start)
	assert.Equal(t, day("2024-05-19"), end)
}

func TestParseRange(t *testing.T) {
	start, end, err := parseRange(" 2024-01-01", "2024-01-31 ")
	assert.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), start)
	assert.Equal(t, day("2024-01-31"), end)

	_, _, err = parseRange("2024-02-01", "2024-01-31")
	assert.EqualError(t, err, "end date is before start date")

	_, _, err = parseRange("01/02/2024", "2024-01-31")
	assert.Error(t, err)
}
