package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jessmcb/trilog/internal/workout"
)

func strengthRec(date string, sets ...workout.ExerciseSet) workout.Record {
	return workout.Record{
		Date:       date,
		Discipline: workout.Strength,
		Details:    workout.StrengthDetails{Exercises: sets},
	}
}

func TestEpley(t *testing.T) {
	tests := []struct {
		weight float64
		reps   int
		want   int
	}{
		{100, 5, 117}, // the canonical check: 100 × (1 + 5/30)
		{60, 10, 80},
		{80, 1, 83},
		{42.5, 8, 54},
	}
	for _, tt := range tests {
		got := Epley(tt.weight, tt.reps)
		if got != tt.want {
			t.Errorf("Epley(%v, %d) = %d, want %d", tt.weight, tt.reps, got, tt.want)
		}
	}
}

func TestStrengthTrendBestSetPerDay(t *testing.T) {
	recs := []workout.Record{
		strengthRec("2026-02-10",
			workout.ExerciseSet{Name: "deadlift", Sets: 3, Reps: 5, Weight: 100}, // est 117
			workout.ExerciseSet{Name: "deadlift", Sets: 1, Reps: 3, Weight: 110}, // est 121
		),
		strengthRec("2026-02-17",
			workout.ExerciseSet{Name: "deadlift", Sets: 3, Reps: 5, Weight: 105}, // est 123
		),
	}
	trend := StrengthTrend(recs)

	points := trend["deadlift"]
	require.Len(t, points, 2)
	require.Equal(t, "2026-02-10", points[0].Date)
	require.Equal(t, 121, points[0].Est1RM)
	require.Equal(t, "2026-02-17", points[1].Date)
	require.Equal(t, 123, points[1].Est1RM)
}

func TestStrengthTrendExcludesBodyweightWork(t *testing.T) {
	recs := []workout.Record{
		strengthRec("2026-02-10",
			workout.ExerciseSet{Name: "pullup", Sets: 3, Reps: 8, Weight: 0},
			workout.ExerciseSet{Name: "", Sets: 3, Reps: 5, Weight: 60},
			workout.ExerciseSet{Name: "squat", Sets: 3, Reps: 0, Weight: 80},
		),
	}
	require.Empty(t, StrengthTrend(recs))
}

func TestStrengthTrendIdempotent(t *testing.T) {
	recs := []workout.Record{
		strengthRec("2026-02-10", workout.ExerciseSet{Name: "squat", Sets: 3, Reps: 5, Weight: 90}),
	}
	want := StrengthTrend(recs)
	doubled := append(append([]workout.Record{}, recs...), recs...)
	require.Equal(t, want, StrengthTrend(doubled))
}

func TestClimbSends(t *testing.T) {
	climb := func(date string, routes ...workout.Route) workout.Record {
		return workout.Record{
			Date:       date,
			Discipline: workout.Climb,
			Details:    workout.ClimbDetails{Routes: routes},
		}
	}
	recs := []workout.Record{
		climb("2026-02-10",
			workout.Route{Grade: "V3", Status: workout.RouteSent},
			workout.Route{Grade: "V4", Status: workout.RouteSent},
			workout.Route{Grade: "V5", Status: workout.RouteProject},
		),
		climb("2026-02-17",
			workout.Route{Grade: "V4", Status: workout.RouteSent},
			workout.Route{Grade: "5.10a", Status: workout.RouteSent},
			workout.Route{Grade: "", Status: workout.RouteSent}, // ungraded, excluded
			workout.Route{Grade: "V4", Status: workout.RouteWorking},
		),
	}
	sends := ClimbSends(recs)
	require.Equal(t, map[string]int{"V3": 1, "V4": 2, "5.10a": 1}, sends)
}
