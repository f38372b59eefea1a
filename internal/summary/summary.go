// Package summary renders a workout history as the tiered weekly report
// the coach prompt is built on: the current week day by day, recent
// weeks as compact adherence lines, older weeks as one-line aggregates.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jessmcb/trilog/internal/dateutil"
	"github.com/jessmcb/trilog/internal/workout"
)

// EmptyHistory is returned when no workouts have been logged at all.
const EmptyHistory = "(no workouts logged yet)"

// Targets are the configured sessions-per-week goals used for the
// adherence lines. Zero disables the marker for that discipline.
type Targets struct {
	Strength int
	Run      int
	Bike     int
	Swim     int
}

// DefaultTargets mirror the base triathlon build week: strength and run
// once, bike twice, swim at least once.
func DefaultTargets() Targets {
	return Targets{Strength: 1, Run: 1, Bike: 2, Swim: 1}
}

// Config controls the report. A nil/empty Plan produces the
// plan-agnostic report; with a Plan, unlogged current-week days are
// called out against it.
type Config struct {
	Plan        map[time.Weekday]string
	RestDays    map[time.Weekday]bool
	Targets     Targets
	RecentWeeks int // weeks rendered as adherence lines; 0 means 3
}

// DefaultPlan is the built-in weekly plan, used when the profile has no
// plan text of its own.
func DefaultPlan() map[time.Weekday]string {
	return map[time.Weekday]string{
		time.Monday:    "Strength — lower body (glutes/legs), strong not destroyed",
		time.Tuesday:   "Run 25–35 min EASY, conversational pace, stop if foot pain changes stride",
		time.Wednesday: "Rest",
		time.Thursday:  "Bike 50–65 min easy aerobic, conversational effort, smooth cadence",
		time.Friday:    "Swim 30–45 min, technique + comfort, smooth breathing",
		time.Saturday:  "Bike 65–80 min, easy to steady, relaxed effort",
		time.Sunday:    "Optional Swim OR Rest",
	}
}

// DefaultRestDays marks the plan's explicit rest days.
func DefaultRestDays() map[time.Weekday]bool {
	return map[time.Weekday]bool{time.Wednesday: true, time.Sunday: true}
}

// PlanText renders a weekly plan as one "Mon: ..." line per day,
// Monday first, for embedding in the coach prompt.
func PlanText(plan map[time.Weekday]string) string {
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	var lines []string
	for _, day := range order {
		if txt, ok := plan[day]; ok && txt != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", day.String()[:3], txt))
		}
	}
	return strings.Join(lines, "\n")
}

// Build renders the full tiered report for the given history. Records
// may arrive in any order; records whose date does not parse are
// skipped. The current week always appears, even when nothing has been
// logged in it yet.
func Build(records []workout.Record, now time.Time, cfg Config) string {
	if len(records) == 0 {
		return EmptyHistory
	}
	recentWeeks := cfg.RecentWeeks
	if recentWeeks <= 0 {
		recentWeeks = 3
	}

	buckets := make(map[string][]workout.Record)
	for _, w := range records {
		day, err := dateutil.ParseISO(w.Date)
		if err != nil {
			continue
		}
		monday := dateutil.ISODate(dateutil.MondayOf(day))
		buckets[monday] = append(buckets[monday], w)
	}
	if len(buckets) == 0 {
		return EmptyHistory
	}

	thisMonday := dateutil.ISODate(dateutil.MondayOf(now))
	if _, ok := buckets[thisMonday]; !ok {
		buckets[thisMonday] = nil
	}

	mondays := make([]string, 0, len(buckets))
	for m := range buckets {
		mondays = append(mondays, m)
	}
	sort.Strings(mondays) // ISO dates sort chronologically

	var lines []string
	for _, monday := range mondays {
		ws := buckets[monday]
		weekStart, err := dateutil.ParseISO(monday)
		if err != nil {
			continue
		}
		weeksAgo := weeksBetween(weekStart, dateutil.MondayOf(now))

		switch {
		case monday == thisMonday:
			lines = append(lines, currentWeekLines(ws, monday, weekStart, now, cfg)...)
		case weeksAgo <= recentWeeks:
			lines = append(lines, adherenceLine(ws, monday, weeksAgo, cfg.Targets))
		default:
			lines = append(lines, aggregateLine(ws, monday))
		}
	}
	return strings.Join(lines, "\n")
}

// weeksBetween rounds the distance between two Mondays to whole weeks.
func weeksBetween(weekStart, thisMonday time.Time) int {
	days := thisMonday.Sub(dateutil.MondayOf(weekStart)).Hours() / 24
	return int((days + 3.5) / 7) // round to nearest
}

func currentWeekLines(ws []workout.Record, monday string, weekStart time.Time, now time.Time, cfg Config) []string {
	lines := []string{fmt.Sprintf("\n== CURRENT WEEK (w/c %s) ==", monday)}

	planAware := len(cfg.Plan) > 0
	if !planAware && len(ws) == 0 {
		return append(lines, "  no sessions logged yet this week")
	}

	today := dateutil.ISODate(now)
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		dayISO := dateutil.ISODate(day)
		if dayISO > today {
			break // never show future days
		}
		var done []string
		for _, w := range ws {
			if w.Date == dayISO {
				done = append(done, FormatWorkoutLine(w))
			}
		}
		label := day.Format("Mon")
		switch {
		case len(done) > 0:
			lines = append(lines, fmt.Sprintf("  %s %s: %s", label, dayISO, strings.Join(done, "; ")))
		case planAware && cfg.RestDays[day.Weekday()]:
			lines = append(lines, fmt.Sprintf("  %s %s: Rest (planned)", label, dayISO))
		case planAware:
			lines = append(lines, fmt.Sprintf("  %s %s: NOT LOGGED — planned: %s", label, dayISO, cfg.Plan[day.Weekday()]))
		}
	}
	return lines
}

func adherenceLine(ws []workout.Record, monday string, weeksAgo int, targets Targets) string {
	counts := make(map[workout.Discipline]int)
	footPain := false
	totalMins := 0.0
	for _, w := range ws {
		counts[w.Discipline]++
		if w.FootPain() {
			footPain = true
		}
		if w.DurationMinutes > 0 {
			totalMins += w.DurationMinutes
		}
	}

	var parts []string
	if targets.Strength > 0 {
		if counts[workout.Strength] > 0 {
			parts = append(parts, "strength✓")
		} else {
			parts = append(parts, "MISSED strength")
		}
	}
	if targets.Run > 0 {
		if counts[workout.Run] > 0 {
			parts = append(parts, "run✓")
		} else {
			parts = append(parts, "MISSED run")
		}
	}
	parts = append(parts,
		fmt.Sprintf("bike x%d (plan:%d)", counts[workout.Bike], targets.Bike),
		fmt.Sprintf("swim x%d (plan:%d+)", counts[workout.Swim], targets.Swim),
	)

	line := fmt.Sprintf("Week %s (%dwk ago): %d sessions, %.0fmin | %s",
		monday, weeksAgo, len(ws), totalMins, strings.Join(parts, ", "))
	if footPain {
		line += " | foot pain noted"
	}
	return line
}

func aggregateLine(ws []workout.Record, monday string) string {
	seen := make(map[workout.Discipline]bool)
	var discs []string
	totalMins := 0.0
	for _, w := range ws {
		if !seen[w.Discipline] {
			seen[w.Discipline] = true
			discs = append(discs, string(w.Discipline))
		}
		if w.DurationMinutes > 0 {
			totalMins += w.DurationMinutes
		}
	}
	return fmt.Sprintf("Week %s: %d sessions (%s), %.0fmin",
		monday, len(ws), strings.Join(discs, "/"), totalMins)
}

// FormatWorkoutLine renders a single workout as a compact descriptor
// like "run(3km FOOT PAIN effort:7/10) [taped ankle]".
func FormatWorkoutLine(w workout.Record) string {
	var detail string
	switch d := w.Details.(type) {
	case workout.SwimDetails:
		var parts []string
		if d.DistanceMeters > 0 {
			parts = append(parts, fmt.Sprintf("%.0fm", d.DistanceMeters))
		}
		if d.Focus != "" {
			parts = append(parts, d.Focus)
		}
		detail = strings.Join(parts, " ")
	case workout.BikeDetails:
		if w.DurationMinutes > 0 {
			detail = fmt.Sprintf("%.0fmin", w.DurationMinutes)
		} else {
			detail = "?min"
		}
	case workout.RunDetails:
		if d.DistanceKm > 0 {
			detail = fmt.Sprintf("%gkm", d.DistanceKm)
		} else {
			detail = "?km"
		}
		if d.FootPain {
			detail += " FOOT PAIN"
		}
	case workout.StrengthDetails:
		detail = strings.Join(d.Focus, "+")
	case workout.ClimbDetails:
		detail = fmt.Sprintf("%d routes", len(d.Routes))
	case workout.RecoverDetails:
		detail = strings.Join(d.Types, "+")
	default:
		if w.DurationMinutes > 0 {
			detail = fmt.Sprintf("%.0fmin", w.DurationMinutes)
		}
	}

	effort := ""
	if w.Effort > 0 {
		effort = fmt.Sprintf(" effort:%d/10", w.Effort)
	}
	note := ""
	if w.Notes != "" {
		note = fmt.Sprintf(" [%s]", w.Notes)
	}
	return fmt.Sprintf("%s(%s%s)%s", w.Discipline, strings.TrimSpace(detail), effort, note)
}
