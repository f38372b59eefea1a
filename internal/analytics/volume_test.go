package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jessmcb/trilog/internal/workout"
)

// Wednesday in the week of Monday 2026-02-23.
var now = time.Date(2026, 2, 25, 15, 0, 0, 0, time.Local)

func bike(date string, mins float64) workout.Record {
	return workout.Record{
		Date:            date,
		Discipline:      workout.Bike,
		DurationMinutes: mins,
		Details:         workout.BikeDetails{},
	}
}

func TestWeeklyVolumeShape(t *testing.T) {
	rep := WeeklyVolume(nil, 6, now)
	require.Len(t, rep.Labels, 6)
	require.Len(t, rep.Starts, 6)
	require.Equal(t, "2026-02-23", rep.Starts[5])
	require.Equal(t, "2026-01-19", rep.Starts[0])
	for d, series := range rep.Series {
		require.Len(t, series, 6, "series %s", d)
		for _, v := range series {
			require.Zero(t, v)
		}
	}
}

func TestWeeklyVolumeBuckets(t *testing.T) {
	recs := []workout.Record{
		swim("2026-02-23", 800, 25),
		swim("2026-02-24", 400, 12),
		bike("2026-02-18", 62),
		runRec("2026-02-17", 5, 30),
		{Date: "2026-02-16", Discipline: workout.Strength},
		{Date: "2026-02-16", Discipline: workout.Climb},
		{Date: "2026-02-20", Discipline: workout.Recover, DurationMinutes: 20},
		bike("2020-01-01", 45), // far outside the window
	}
	rep := WeeklyVolume(recs, 2, now)

	require.Equal(t, []string{"2026-02-16", "2026-02-23"}, rep.Starts)
	require.Equal(t, []float64{0, 1200}, rep.Series[workout.Swim])
	require.Equal(t, []float64{62, 0}, rep.Series[workout.Bike])
	require.Equal(t, []float64{5, 0}, rep.Series[workout.Run])
	require.Equal(t, []float64{1, 0}, rep.Series[workout.Strength])
	require.Equal(t, []float64{1, 0}, rep.Series[workout.Climb])
}

func TestWeeklyVolumeDefaultsToSixWeeks(t *testing.T) {
	rep := WeeklyVolume(nil, 0, now)
	require.Len(t, rep.Starts, 6)
}

func TestCompareWeeks(t *testing.T) {
	recs := []workout.Record{
		// This week (w/c 2026-02-23).
		runRec("2026-02-24", 6, 36),
		// Last week (w/c 2026-02-16).
		runRec("2026-02-17", 5, 30),
		bike("2026-02-18", 60),
	}
	cmp := CompareWeeks(recs, now)

	require.Equal(t, 6.0, cmp.ThisWeek[workout.Run])
	require.Equal(t, 5.0, cmp.LastWeek[workout.Run])
	runDelta := cmp.Deltas[workout.Run]
	require.Equal(t, 20, runDelta.Pct)
	require.True(t, runDelta.Up)

	bikeDelta := cmp.Deltas[workout.Bike]
	require.Equal(t, 0.0, bikeDelta.This)
	require.Equal(t, 60.0, bikeDelta.Last)
	require.False(t, bikeDelta.Up)

	// No data last week means no percentage, not a division by zero.
	swimDelta := cmp.Deltas[workout.Swim]
	require.Zero(t, swimDelta.Pct)
}
