package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseWindowTime(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{in: "00:00", minutes: 0},
		{in: "09:30", minutes: 570},
		{in: "23:59", minutes: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "not-a-time", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseWindowTime(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.minutes, got, tc.in)
	}
}

func windowCron(start, end string) *Cron {
	return &Cron{
		CronStartAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CronEndAt:            time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC),
		WorkingWindowStartAt: start,
		WorkingWindowEndAt:   end,
		Status:               StatusActive,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 6, 15, hour, minute, 0, 0, time.UTC)
}

func TestEligibleAtDaytimeWindow(t *testing.T) {
	c := windowCron("09:00", "17:00")

	require.True(t, c.EligibleAt(at(9, 0), time.UTC), "window start is inclusive")
	require.True(t, c.EligibleAt(at(12, 30), time.UTC))
	require.True(t, c.EligibleAt(at(17, 0), time.UTC), "window end is inclusive")
	require.False(t, c.EligibleAt(at(8, 59), time.UTC))
	require.False(t, c.EligibleAt(at(17, 1), time.UTC))
}

func TestEligibleAtMidnightSpanningWindow(t *testing.T) {
	c := windowCron("22:00", "06:00")

	require.True(t, c.EligibleAt(at(23, 30), time.UTC))
	require.True(t, c.EligibleAt(at(2, 0), time.UTC))
	require.True(t, c.EligibleAt(at(22, 0), time.UTC))
	require.True(t, c.EligibleAt(at(6, 0), time.UTC))
	require.False(t, c.EligibleAt(at(10, 0), time.UTC))
	require.False(t, c.EligibleAt(at(21, 59), time.UTC))
}

func TestEligibleAtRespectsOverallSchedule(t *testing.T) {
	c := windowCron("00:00", "23:59")

	require.False(t, c.EligibleAt(time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC), time.UTC),
		"before cronStartAt")
	require.False(t, c.EligibleAt(time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC), time.UTC),
		"after cronEndAt")
}

func TestEligibleAtInactiveOrDeleted(t *testing.T) {
	c := windowCron("00:00", "23:59")
	c.Status = StatusInactive
	require.False(t, c.EligibleAt(at(12, 0), time.UTC))

	c.Status = StatusActive
	c.Deleted = true
	require.False(t, c.EligibleAt(at(12, 0), time.UTC))
}

func TestEligibleAtUsesReferenceLocation(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	c := windowCron("09:00", "17:00")

	// 15:00 UTC on June 15 is 10:00 in Chicago (CDT).
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	require.True(t, c.EligibleAt(now, chicago))
	require.False(t, c.EligibleAt(time.Date(2026, 6, 15, 4, 0, 0, 0, time.UTC), chicago))
}

func TestEligibleAtMalformedWindow(t *testing.T) {
	c := windowCron("bogus", "17:00")
	c.TypesOfWorkOrder = datatypes.NewJSONSlice([]int64{})
	require.False(t, c.EligibleAt(at(12, 0), time.UTC))
}
