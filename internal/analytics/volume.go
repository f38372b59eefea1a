// Package analytics derives progress metrics from raw workout history.
// Every computation is a pure function of its inputs: no clock, no
// cache, no mutation of the record list.
package analytics

import (
	"math"
	"time"

	"github.com/jessmcb/trilog/internal/dateutil"
	"github.com/jessmcb/trilog/internal/workout"
)

// VolumeReport holds per-discipline weekly aggregates for a fixed span
// of Monday-starting weeks, oldest first. Every series has exactly as
// many entries as there are labels; weeks with no data hold 0.
//
// Aggregation rule per discipline: swim sums metres, bike sums minutes,
// run sums km, strength and climb count sessions.
type VolumeReport struct {
	Labels []string                         `json:"labels"` // short dates like "Feb 24"
	Starts []string                         `json:"starts"` // ISO Monday dates
	Series map[workout.Discipline][]float64 `json:"series"`
}

// WeeklyVolume rolls up history into weeksBack consecutive weekly
// buckets ending with the week containing now.
func WeeklyVolume(records []workout.Record, weeksBack int, now time.Time) VolumeReport {
	if weeksBack <= 0 {
		weeksBack = 6
	}
	starts := dateutil.WeekStarts(now, weeksBack)
	labels := make([]string, len(starts))
	for i, s := range starts {
		labels[i] = dateutil.ShortDate(s)
	}

	series := map[workout.Discipline][]float64{
		workout.Swim:     make([]float64, weeksBack),
		workout.Bike:     make([]float64, weeksBack),
		workout.Run:      make([]float64, weeksBack),
		workout.Strength: make([]float64, weeksBack),
		workout.Climb:    make([]float64, weeksBack),
	}

	index := make(map[string]int, len(starts))
	for i, s := range starts {
		index[s] = i
	}

	for _, w := range records {
		day, err := dateutil.ParseISO(w.Date)
		if err != nil {
			continue
		}
		i, ok := index[dateutil.ISODate(dateutil.MondayOf(day))]
		if !ok {
			continue
		}
		s, ok := series[w.Discipline]
		if !ok {
			continue // recovery has no volume series
		}
		s[i] += volumeContribution(w)
	}
	return VolumeReport{Labels: labels, Starts: starts, Series: series}
}

// WeekTotals holds one week's per-discipline totals, using the same
// aggregation rules as WeeklyVolume.
type WeekTotals map[workout.Discipline]float64

// Delta is the change of one discipline's total between two weeks.
type Delta struct {
	This float64 `json:"this"`
	Last float64 `json:"last"`
	Pct  int     `json:"pct"` // percent change; 0 when last week had no data
	Up   bool    `json:"up"`
}

// Comparison is this week vs last week across all disciplines.
type Comparison struct {
	ThisWeek WeekTotals                   `json:"this_week"`
	LastWeek WeekTotals                   `json:"last_week"`
	Deltas   map[workout.Discipline]Delta `json:"deltas"`
}

// CompareWeeks computes this-week-vs-last totals and percent deltas for
// the progress view.
func CompareWeeks(records []workout.Record, now time.Time) Comparison {
	thisMonday := dateutil.ISODate(dateutil.MondayOf(now))
	lastMonday := dateutil.ISODate(dateutil.MondayOf(now).AddDate(0, 0, -7))

	this := WeekTotals{}
	last := WeekTotals{}
	for _, w := range records {
		day, err := dateutil.ParseISO(w.Date)
		if err != nil {
			continue
		}
		switch dateutil.ISODate(dateutil.MondayOf(day)) {
		case thisMonday:
			this[w.Discipline] += volumeContribution(w)
		case lastMonday:
			last[w.Discipline] += volumeContribution(w)
		}
	}

	deltas := make(map[workout.Discipline]Delta, len(workout.Disciplines))
	for _, d := range workout.Disciplines {
		t, l := this[d], last[d]
		pct := 0
		if l > 0 {
			pct = int(math.Round((t - l) / l * 100))
		}
		deltas[d] = Delta{This: t, Last: l, Pct: pct, Up: t >= l}
	}
	return Comparison{ThisWeek: this, LastWeek: last, Deltas: deltas}
}

// volumeContribution is a record's contribution to its discipline's
// weekly series. Out-of-range values count as no data point.
func volumeContribution(w workout.Record) float64 {
	switch w.Discipline {
	case workout.Swim:
		if d, ok := w.Swim(); ok && d.DistanceMeters > 0 {
			return d.DistanceMeters
		}
		return 0
	case workout.Bike:
		if w.DurationMinutes > 0 {
			return w.DurationMinutes
		}
		return 0
	case workout.Run:
		if d, ok := w.Run(); ok && d.DistanceKm > 0 {
			return d.DistanceKm
		}
		return 0
	case workout.Strength, workout.Climb:
		return 1
	}
	return 0
}
