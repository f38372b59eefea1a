// Package workout defines the canonical shape of a logged training session.
package workout

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Discipline is the activity category of a workout.
type Discipline string

const (
	Swim     Discipline = "swim"
	Bike     Discipline = "bike"
	Run      Discipline = "run"
	Strength Discipline = "strength"
	Climb    Discipline = "climb"
	Recover  Discipline = "recover"
)

// Disciplines lists every valid discipline in display order.
var Disciplines = []Discipline{Swim, Bike, Run, Strength, Climb, Recover}

// ErrNoDiscipline is returned for records missing a discipline tag
// entirely. This is the programmer-error class: recoverable data gaps
// (missing distance, absent details) are absorbed by the consumers.
var ErrNoDiscipline = errors.New("workout: record has no discipline")

// Valid reports whether d is a known discipline tag.
func (d Discipline) Valid() bool {
	switch d {
	case Swim, Bike, Run, Strength, Climb, Recover:
		return true
	}
	return false
}

// RouteStatus is the outcome of a climbing route attempt.
type RouteStatus string

const (
	RouteSent    RouteStatus = "sent"
	RouteWorking RouteStatus = "working"
	RouteProject RouteStatus = "project"
)

// Details carries the discipline-specific fields of a workout. Exactly
// one concrete type exists per discipline so new analytics get
// compile-time exhaustiveness instead of digging through an untyped bag.
type Details interface {
	Discipline() Discipline
}

// SwimDetails holds pool/open-water session data. Distance is metres.
type SwimDetails struct {
	DistanceMeters float64 `json:"distance,omitempty"`
	Focus          string  `json:"focus,omitempty"`
	Location       string  `json:"location,omitempty"`
}

func (SwimDetails) Discipline() Discipline { return Swim }

// BikeDetails holds ride data. Distance is km and optional; bike volume
// is tracked by duration.
type BikeDetails struct {
	DistanceKm float64 `json:"distance,omitempty"`
	Type       string  `json:"type,omitempty"`
	Location   string  `json:"location,omitempty"`
}

func (BikeDetails) Discipline() Discipline { return Bike }

// RunDetails holds run data. Distance is km. FootPain records whether
// the session aggravated the athlete's foot; it must survive into every
// summary the coach sees.
type RunDetails struct {
	DistanceKm float64 `json:"distance,omitempty"`
	Surface    string  `json:"surface,omitempty"`
	FootPain   bool    `json:"footPain,omitempty"`
}

func (RunDetails) Discipline() Discipline { return Run }

// ExerciseSet is one logged exercise within a strength session: the
// working weight and reps used across Sets sets.
type ExerciseSet struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
	Note   string  `json:"note,omitempty"`
}

// StrengthDetails holds a strength session's focus areas and exercises.
type StrengthDetails struct {
	Focus     []string      `json:"focus,omitempty"`
	Exercises []ExerciseSet `json:"exercises,omitempty"`
}

func (StrengthDetails) Discipline() Discipline { return Strength }

// Route is one climbing route attempt within a session.
type Route struct {
	Grade    string      `json:"grade"`
	Attempts int         `json:"attempts,omitempty"`
	Status   RouteStatus `json:"status"`
}

// ClimbDetails holds a climbing session's location and routes.
type ClimbDetails struct {
	Location string  `json:"location,omitempty"`
	Routes   []Route `json:"routes,omitempty"`
}

func (ClimbDetails) Discipline() Discipline { return Climb }

// RecoverDetails holds the recovery modalities used (stretching, sauna...).
type RecoverDetails struct {
	Types []string `json:"types,omitempty"`
}

func (RecoverDetails) Discipline() Discipline { return Recover }

// Record is a logged training session. Immutable once created; updates
// go through the store as explicit writes.
type Record struct {
	ID              uuid.UUID
	Date            string // ISO YYYY-MM-DD, the day the activity occurred
	Discipline      Discipline
	DurationMinutes float64 // 0 means not tracked
	Effort          int     // 1-10, 0 means not set
	Mood            string
	Notes           string
	Details         Details // nil when nothing discipline-specific was logged
}

// recordJSON is the wire/storage shape of a Record. Details stays raw
// until the discipline tag tells us which variant to decode.
type recordJSON struct {
	ID              uuid.UUID       `json:"id"`
	Date            string          `json:"date"`
	Discipline      Discipline      `json:"discipline"`
	DurationMinutes float64         `json:"duration_minutes,omitempty"`
	Effort          int             `json:"effort,omitempty"`
	Mood            string          `json:"mood,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Details         json.RawMessage `json:"details,omitempty"`
}

// MarshalJSON encodes the record with its details variant inlined.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ID:              r.ID,
		Date:            r.Date,
		Discipline:      r.Discipline,
		DurationMinutes: r.DurationMinutes,
		Effort:          r.Effort,
		Mood:            r.Mood,
		Notes:           r.Notes,
	}
	if r.Details != nil {
		raw, err := json.Marshal(r.Details)
		if err != nil {
			return nil, err
		}
		out.Details = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the record, picking the details variant from the
// discipline tag. A record with no discipline at all is rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Discipline == "" {
		return ErrNoDiscipline
	}
	if !in.Discipline.Valid() {
		return fmt.Errorf("workout: unknown discipline %q", in.Discipline)
	}
	r.ID = in.ID
	r.Date = in.Date
	r.Discipline = in.Discipline
	r.DurationMinutes = in.DurationMinutes
	r.Effort = in.Effort
	r.Mood = in.Mood
	r.Notes = in.Notes
	r.Details = nil
	if len(in.Details) == 0 || string(in.Details) == "null" {
		return nil
	}
	details, err := DecodeDetails(in.Discipline, in.Details)
	if err != nil {
		return err
	}
	r.Details = details
	return nil
}

// DecodeDetails decodes raw JSON into the details variant for the given
// discipline.
func DecodeDetails(d Discipline, raw []byte) (Details, error) {
	switch d {
	case Swim:
		var v SwimDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode swim details: %w", err)
		}
		return v, nil
	case Bike:
		var v BikeDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode bike details: %w", err)
		}
		return v, nil
	case Run:
		var v RunDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode run details: %w", err)
		}
		return v, nil
	case Strength:
		var v StrengthDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode strength details: %w", err)
		}
		return v, nil
	case Climb:
		var v ClimbDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode climb details: %w", err)
		}
		return v, nil
	case Recover:
		var v RecoverDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode recover details: %w", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("workout: unknown discipline %q", d)
}

// Swim returns the swim details, or a zero value if this is not a swim
// record or nothing was logged. The ok result distinguishes the two.
func (r Record) Swim() (SwimDetails, bool) {
	d, ok := r.Details.(SwimDetails)
	return d, ok
}

// Bike returns the bike details, if present.
func (r Record) Bike() (BikeDetails, bool) {
	d, ok := r.Details.(BikeDetails)
	return d, ok
}

// Run returns the run details, if present.
func (r Record) Run() (RunDetails, bool) {
	d, ok := r.Details.(RunDetails)
	return d, ok
}

// StrengthD returns the strength details, if present.
func (r Record) StrengthD() (StrengthDetails, bool) {
	d, ok := r.Details.(StrengthDetails)
	return d, ok
}

// ClimbD returns the climb details, if present.
func (r Record) ClimbD() (ClimbDetails, bool) {
	d, ok := r.Details.(ClimbDetails)
	return d, ok
}

// RecoverD returns the recovery details, if present.
func (r Record) RecoverD() (RecoverDetails, bool) {
	d, ok := r.Details.(RecoverDetails)
	return d, ok
}

// FootPain reports whether this record is a run that aggravated the foot.
func (r Record) FootPain() bool {
	d, ok := r.Run()
	return ok && d.FootPain
}
