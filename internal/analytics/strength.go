package analytics

import (
	"math"
	"sort"

	"github.com/jessmcb/trilog/internal/workout"
)

// StrengthPoint is the best set of one exercise on one date, with its
// Epley estimated one-rep max.
type StrengthPoint struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
	Sets   int     `json:"sets"`
	Est1RM int     `json:"est1RM"`
}

// Epley estimates a one-rep max from a submaximal set:
// round(weight × (1 + reps/30)).
func Epley(weight float64, reps int) int {
	return int(math.Round(weight * (1 + float64(reps)/30)))
}

// StrengthTrend produces, per exercise name, a date-ascending series of
// best-set-per-day points. Sets without positive weight or reps are
// excluded entirely; bodyweight work does not contribute to the 1RM
// trend. Like the PB reduction, the per-day max makes this idempotent
// and order-independent.
func StrengthTrend(records []workout.Record) map[string][]StrengthPoint {
	type dayKey struct {
		name string
		date string
	}
	best := make(map[dayKey]StrengthPoint)
	for _, w := range records {
		d, ok := w.StrengthD()
		if !ok {
			continue
		}
		for _, ex := range d.Exercises {
			if ex.Weight <= 0 || ex.Reps <= 0 || ex.Name == "" {
				continue
			}
			est := Epley(ex.Weight, ex.Reps)
			k := dayKey{name: ex.Name, date: w.Date}
			if prev, ok := best[k]; !ok || est > prev.Est1RM {
				best[k] = StrengthPoint{
					Date:   w.Date,
					Weight: ex.Weight,
					Reps:   ex.Reps,
					Sets:   ex.Sets,
					Est1RM: est,
				}
			}
		}
	}

	out := make(map[string][]StrengthPoint)
	for k, p := range best {
		out[k.name] = append(out[k.name], p)
	}
	for name := range out {
		sort.Slice(out[name], func(i, j int) bool {
			return out[name][i].Date < out[name][j].Date
		})
	}
	return out
}

// ClimbSends tallies successfully sent routes per grade across all
// climbing sessions. Grades never sent are absent from the map.
func ClimbSends(records []workout.Record) map[string]int {
	byGrade := make(map[string]int)
	for _, w := range records {
		d, ok := w.ClimbD()
		if !ok {
			continue
		}
		for _, r := range d.Routes {
			if r.Status == workout.RouteSent && r.Grade != "" {
				byGrade[r.Grade]++
			}
		}
	}
	return byGrade
}
