package analytics

import (
	"fmt"
	"math"

	"github.com/jessmcb/trilog/internal/workout"
)

// pbTargets are the extrapolation distances per discipline: swim in
// metres, bike and run in km.
var pbTargets = map[workout.Discipline][]int{
	workout.Swim: {100, 200, 300, 400, 500},
	workout.Bike: {5, 10, 15, 20, 25},
	workout.Run:  {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
}

// PBTargets returns the extrapolation distance table for a discipline,
// or nil for disciplines without one.
func PBTargets(d workout.Discipline) []int {
	return pbTargets[d]
}

// PersonalBests extrapolates best-known times (in minutes) for each
// target distance from the logged pace of every qualifying session.
// Only targets at or below a session's actual distance are filled in:
// we never project a time past what was actually covered. The reduction
// is idempotent and order-independent, so duplicated or shuffled input
// cannot change the table.
func PersonalBests(records []workout.Record) map[workout.Discipline]map[int]float64 {
	pbs := map[workout.Discipline]map[int]float64{
		workout.Swim: {},
		workout.Bike: {},
		workout.Run:  {},
	}
	for _, w := range records {
		targets, ok := pbTargets[w.Discipline]
		if !ok {
			continue
		}
		distance := raceDistance(w)
		if distance <= 0 || w.DurationMinutes <= 0 {
			continue
		}
		pace := w.DurationMinutes / distance // min per metre (swim) or per km
		for _, target := range targets {
			if float64(target) > distance {
				continue // never extrapolate upward
			}
			t := pace * float64(target)
			if best, ok := pbs[w.Discipline][target]; !ok || t < best {
				pbs[w.Discipline][target] = t
			}
		}
	}
	return pbs
}

// raceDistance is the session distance used for pace, in the unit of
// that discipline's target table.
func raceDistance(w workout.Record) float64 {
	switch d := w.Details.(type) {
	case workout.SwimDetails:
		return d.DistanceMeters
	case workout.BikeDetails:
		return d.DistanceKm
	case workout.RunDetails:
		return d.DistanceKm
	}
	return 0
}

// FormatTime renders fractional minutes as m:ss, or h:mm:ss past the
// hour mark.
func FormatTime(minutes float64) string {
	totalSecs := int(math.Round(minutes * 60))
	h := totalSecs / 3600
	m := (totalSecs % 3600) / 60
	s := totalSecs % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
