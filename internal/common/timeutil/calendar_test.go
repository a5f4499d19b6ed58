package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCalendar_TodayRespectsTimezone(t *testing.T) {
	// 20:00 UTC on Mar 1 is already Mar 2 in Kolkata
	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", NewCalendar(time.UTC, fixedNow(now)).Today())
	assert.Equal(t, "2024-03-02", NewCalendar(kolkata, fixedNow(now)).Today())
}

func TestCalendar_ResolveDate(t *testing.T) {
	cal := NewCalendar(time.UTC, fixedNow(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))

	d, err := cal.ResolveDate("")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d)

	d, err = cal.ResolveDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-28", d)

	_, err = cal.ResolveDate("28/02/2024")
	assert.Error(t, err)
}

func TestCalendar_IsPast(t *testing.T) {
	cal := NewCalendar(time.UTC, fixedNow(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, cal.IsPast("2024-02-29"))
	assert.False(t, cal.IsPast("2024-03-01"))
	assert.False(t, cal.IsPast("2024-03-02"))
}

func TestCalendar_Defaults(t *testing.T) {
	cal := NewCalendar(nil, nil)
	assert.Equal(t, time.UTC, cal.Location())
	assert.Len(t, cal.Today(), len(DateLayout))
}
