package workout

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RaceDistances are the athlete's race-day target distances: swim in
// metres, bike and run in km.
type RaceDistances struct {
	Swim float64 `json:"swim,omitempty"`
	Bike float64 `json:"bike,omitempty"`
	Run  float64 `json:"run,omitempty"`
}

// Profile is the athlete's configuration snapshot. The core reads it
// per invocation and never writes it; lifecycle belongs to the store.
type Profile struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	HasRace       bool           `json:"has_race"`
	RaceDate      string         `json:"race_date,omitempty"` // ISO YYYY-MM-DD
	RaceName      string         `json:"race_name,omitempty"`
	RaceGoal      string         `json:"race_goal,omitempty"`
	RaceDistances *RaceDistances `json:"race_distances,omitempty"`
	InjuryFlags   string         `json:"injury_flags,omitempty"`
	TrainingPlan  string         `json:"training_plan,omitempty"`
}

// DaysToRace returns how many whole days remain until the race, never
// negative. The second result is false when no race is configured or the
// race date does not parse.
func (p *Profile) DaysToRace(now time.Time) (int, bool) {
	if p == nil || !p.HasRace || p.RaceDate == "" {
		return 0, false
	}
	race, err := time.ParseInLocation("2006-01-02", p.RaceDate, now.Location())
	if err != nil {
		return 0, false
	}
	days := int(math.Ceil(race.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return days, true
}
