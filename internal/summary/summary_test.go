package summary

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jessmcb/trilog/internal/workout"
)

// Wednesday in the week of Monday 2026-02-23.
var now = time.Date(2026, 2, 25, 15, 0, 0, 0, time.Local)

func run(date string, km float64, footPain bool, mins float64) workout.Record {
	return workout.Record{
		Date:            date,
		Discipline:      workout.Run,
		DurationMinutes: mins,
		Details:         workout.RunDetails{DistanceKm: km, FootPain: footPain},
	}
}

func session(date string, d workout.Discipline, mins float64) workout.Record {
	return workout.Record{Date: date, Discipline: d, DurationMinutes: mins}
}

func TestBuildEmptyHistory(t *testing.T) {
	require.Equal(t, EmptyHistory, Build(nil, now, Config{}))
	require.Equal(t, EmptyHistory, Build([]workout.Record{}, now, Config{}))

	// Records that never parse leave nothing to report either.
	bad := []workout.Record{{Date: "soon", Discipline: workout.Run}}
	require.Equal(t, EmptyHistory, Build(bad, now, Config{}))
}

func TestBuildCurrentWeekAlwaysPresent(t *testing.T) {
	// Only old workouts, nothing this week.
	recs := []workout.Record{session("2026-01-05", workout.Bike, 60)}
	out := Build(recs, now, Config{})
	require.Contains(t, out, "== CURRENT WEEK (w/c 2026-02-23) ==")
	require.Contains(t, out, "no sessions logged yet this week")
}

func TestBuildPlanAwareCurrentWeek(t *testing.T) {
	cfg := Config{
		Plan:     DefaultPlan(),
		RestDays: DefaultRestDays(),
		Targets:  DefaultTargets(),
	}
	recs := []workout.Record{session("2026-02-23", workout.Strength, 45)}
	out := Build(recs, now, cfg)

	require.Contains(t, out, "Mon 2026-02-23: strength(45min)")
	require.Contains(t, out, "Tue 2026-02-24: NOT LOGGED — planned: Run 25–35 min EASY")
	require.Contains(t, out, "Wed 2026-02-25: Rest (planned)")
	// Thursday onward is the future; never shown.
	require.NotContains(t, out, "Thu 2026-02-26")
	require.NotContains(t, out, "2026-02-27")
}

func TestBuildAdherenceLine(t *testing.T) {
	// Week of Feb 16, one week back: strength done, run missed, one
	// bike against a plan of two, one swim.
	recs := []workout.Record{
		session("2026-02-16", workout.Strength, 40),
		session("2026-02-18", workout.Bike, 62),
		session("2026-02-20", workout.Swim, 35),
		session("2026-02-25", workout.Run, 30), // keep current week non-empty
	}
	out := Build(recs, now, Config{Targets: DefaultTargets()})

	require.Contains(t, out, "Week 2026-02-16 (1wk ago): 3 sessions, 137min")
	require.Contains(t, out, "strength✓")
	require.Contains(t, out, "MISSED run")
	require.Contains(t, out, "bike x1 (plan:2)")
	require.Contains(t, out, "swim x1 (plan:1+)")
	require.NotContains(t, out, "foot pain noted")
}

func TestBuildFootPainSurfacesInAdherence(t *testing.T) {
	recs := []workout.Record{
		run("2026-02-17", 4, true, 28),
	}
	out := Build(recs, now, Config{Targets: DefaultTargets()})
	require.Contains(t, out, "foot pain noted")
}

func TestBuildAggregateLineForOldWeeks(t *testing.T) {
	recs := []workout.Record{
		session("2026-01-05", workout.Bike, 60),
		session("2026-01-06", workout.Bike, 45),
		session("2026-01-07", workout.Swim, 30),
	}
	out := Build(recs, now, Config{})
	require.Contains(t, out, "Week 2026-01-05: 3 sessions (bike/swim), 135min")
	// Old weeks never get the adherence breakdown.
	require.NotContains(t, out, "Week 2026-01-05 (")
}

func TestBuildOrderIndependent(t *testing.T) {
	recs := []workout.Record{
		session("2026-01-05", workout.Bike, 60),
		session("2026-02-16", workout.Strength, 40),
		run("2026-02-17", 4, true, 28),
		session("2026-02-23", workout.Swim, 35),
		run("2026-02-25", 5, false, 30),
	}
	want := Build(recs, now, Config{Targets: DefaultTargets()})

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := make([]workout.Record, len(recs))
		copy(shuffled, recs)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		require.Equal(t, want, Build(shuffled, now, Config{Targets: DefaultTargets()}))
	}
}

func TestBuildWeeksSortedOldestFirst(t *testing.T) {
	recs := []workout.Record{
		session("2026-02-16", workout.Bike, 60),
		session("2026-01-05", workout.Swim, 30),
	}
	out := Build(recs, now, Config{})
	older := strings.Index(out, "Week 2026-01-05")
	newer := strings.Index(out, "Week 2026-02-16")
	require.GreaterOrEqual(t, older, 0)
	require.GreaterOrEqual(t, newer, 0)
	require.Less(t, older, newer)
}

func TestPlanText(t *testing.T) {
	out := PlanText(DefaultPlan())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 7)
	require.True(t, strings.HasPrefix(lines[0], "Mon: Strength"))
	require.True(t, strings.HasPrefix(lines[6], "Sun: Optional Swim"))

	require.Empty(t, PlanText(nil))
}

func TestFormatWorkoutLine(t *testing.T) {
	tests := []struct {
		name string
		rec  workout.Record
		want string
	}{
		{
			"run with foot pain and note",
			workout.Record{
				Discipline: workout.Run,
				Effort:     7,
				Notes:      "taped ankle",
				Details:    workout.RunDetails{DistanceKm: 3, FootPain: true},
			},
			"run(3km FOOT PAIN effort:7/10) [taped ankle]",
		},
		{
			"run without distance",
			workout.Record{Discipline: workout.Run, Details: workout.RunDetails{}},
			"run(?km)",
		},
		{
			"swim with focus",
			workout.Record{
				Discipline: workout.Swim,
				Details:    workout.SwimDetails{DistanceMeters: 800, Focus: "technique"},
			},
			"swim(800m technique)",
		},
		{
			"bike uses duration",
			workout.Record{
				Discipline:      workout.Bike,
				DurationMinutes: 62,
				Details:         workout.BikeDetails{DistanceKm: 20},
			},
			"bike(62min)",
		},
		{
			"bike without duration",
			workout.Record{Discipline: workout.Bike, Details: workout.BikeDetails{}},
			"bike(?min)",
		},
		{
			"strength focus areas",
			workout.Record{
				Discipline: workout.Strength,
				Details:    workout.StrengthDetails{Focus: []string{"glutes", "core"}},
			},
			"strength(glutes+core)",
		},
		{
			"climb route count",
			workout.Record{
				Discipline: workout.Climb,
				Details: workout.ClimbDetails{Routes: []workout.Route{
					{Grade: "V3", Status: workout.RouteSent},
					{Grade: "V4", Status: workout.RouteProject},
				}},
			},
			"climb(2 routes)",
		},
		{
			"no details falls back to duration",
			workout.Record{Discipline: workout.Recover, DurationMinutes: 20},
			"recover(20min)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatWorkoutLine(tt.rec))
		})
	}
}
