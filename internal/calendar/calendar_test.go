package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRange(t *testing.T) {
	// Wednesday afternoon
	ref := time.Date(2026, time.March, 18, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		view     View
		from, to time.Time
	}{
		{ViewMonth, date(2026, time.March, 1), date(2026, time.April, 1)},
		{ViewWeek, date(2026, time.March, 15), date(2026, time.March, 22)},
		{ViewDay, date(2026, time.March, 18), date(2026, time.March, 19)},
	}

	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			from, to := Range(ref, tt.view)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestNavigation(t *testing.T) {
	ref := date(2026, time.January, 31)

	assert.Equal(t, date(2026, time.February, 1), Next(ref, ViewMonth))
	assert.Equal(t, date(2025, time.December, 1), Prev(ref, ViewMonth))
	assert.Equal(t, date(2026, time.February, 7), Next(ref, ViewWeek))
	assert.Equal(t, date(2026, time.January, 24), Prev(ref, ViewWeek))
	assert.Equal(t, date(2026, time.February, 1), Next(ref, ViewDay))
	assert.Equal(t, date(2026, time.January, 30), Prev(ref, ViewDay))

	now := time.Date(2026, time.October, 16, 9, 12, 0, 0, time.UTC)
	got, err := Navigate(ref, now, ViewWeek, "today")
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.October, 16), got)

	_, err = Navigate(ref, now, ViewWeek, "sideways")
	assert.Error(t, err)
}

func TestDays(t *testing.T) {
	// February 2026 starts on a Sunday and ends on a Saturday: exactly four weeks.
	feb := Days(date(2026, time.February, 10), ViewMonth)
	assert.Len(t, feb, 28)
	assert.Equal(t, date(2026, time.February, 1), feb[0])

	// March 2026 starts on a Sunday, ends on a Tuesday: five weeks.
	mar := Days(date(2026, time.March, 10), ViewMonth)
	assert.Len(t, mar, 35)
	assert.Equal(t, date(2026, time.April, 4), mar[len(mar)-1])

	assert.Len(t, Days(date(2026, time.March, 10), ViewWeek), 7)
	assert.Len(t, Days(date(2026, time.March, 10), ViewDay), 1)
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewMonth, v)

	_, err = ParseView("year")
	assert.Error(t, err)
}
