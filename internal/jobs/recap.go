package jobs

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jessmcb/trilog/internal/analytics"
	"github.com/jessmcb/trilog/internal/summary"
	"github.com/jessmcb/trilog/internal/workout"
)

// RecapSubject is the subject line of the weekly recap email.
const RecapSubject = "Your week in training"

// BuildRecapHTML renders the weekly recap email body: this week's
// sessions, the week-over-week comparison, and any new climbing sends.
func BuildRecapHTML(recs []workout.Record, now time.Time, cfg summary.Config) string {
	var b strings.Builder
	b.WriteString("<h2>" + RecapSubject + "</h2>")

	report := summary.Build(recs, now, cfg)
	b.WriteString("<pre>" + html.EscapeString(report) + "</pre>")

	cmp := analytics.CompareWeeks(recs, now)
	b.WriteString("<h3>Week over week</h3><ul>")
	units := map[workout.Discipline]string{
		workout.Swim:     "m",
		workout.Bike:     "min",
		workout.Run:      "km",
		workout.Strength: " sessions",
		workout.Climb:    " sessions",
		workout.Recover:  " sessions",
	}
	for _, d := range workout.Disciplines {
		if delta, ok := cmp.Deltas[d]; ok {
			writeDelta(&b, titleCase(string(d)), delta, units[d])
		}
	}
	b.WriteString("</ul>")

	if sends := analytics.ClimbSends(recs); len(sends) > 0 {
		b.WriteString("<h3>Climbing sends to date</h3><ul>")
		for grade, n := range sends {
			b.WriteString(fmt.Sprintf("<li>%s ×%d</li>", html.EscapeString(grade), n))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func writeDelta(b *strings.Builder, label string, d analytics.Delta, unit string) {
	if d.This == 0 && d.Last == 0 {
		return
	}
	arrow := "↓"
	if d.Up {
		arrow = "↑"
	}
	fmt.Fprintf(b, "<li>%s: %.0f%s vs %.0f%s last week (%s%d%%)</li>",
		label, d.This, unit, d.Last, unit, arrow, abs(d.Pct))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
