// Package store is the Postgres persistence layer for workouts and the
// athlete profile.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jessmcb/trilog/internal/dateutil"
	"github.com/jessmcb/trilog/internal/workout"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps a pgx pool with the app's queries.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const workoutColumns = `id, date, discipline, duration_minutes, effort, mood, notes, details`

func scanWorkout(row pgx.Row) (workout.Record, error) {
	var (
		rec      workout.Record
		date     pgtype.Date
		duration pgtype.Float8
		effort   pgtype.Int4
		mood     pgtype.Text
		notes    pgtype.Text
		details  []byte
	)
	if err := row.Scan(&rec.ID, &date, &rec.Discipline, &duration, &effort, &mood, &notes, &details); err != nil {
		return rec, err
	}
	if date.Valid {
		rec.Date = dateutil.ISODate(date.Time)
	}
	if duration.Valid {
		rec.DurationMinutes = duration.Float64
	}
	if effort.Valid {
		rec.Effort = int(effort.Int32)
	}
	rec.Mood = mood.String
	rec.Notes = notes.String
	if len(details) > 0 && string(details) != "null" && string(details) != "{}" {
		d, err := workout.DecodeDetails(rec.Discipline, details)
		if err != nil {
			// Tolerate stale rows with unreadable details; analytics
			// treat a nil Details as no data point.
			return rec, nil
		}
		rec.Details = d
	}
	return rec, nil
}

func (s *Store) listWorkouts(ctx context.Context, query string, args ...any) ([]workout.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer rows.Close()

	var out []workout.Record
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListWorkouts returns the full history, oldest first.
func (s *Store) ListWorkouts(ctx context.Context) ([]workout.Record, error) {
	return s.listWorkouts(ctx, `SELECT `+workoutColumns+` FROM workouts ORDER BY date ASC, created_at ASC`)
}

// ListWorkoutsSince returns workouts on or after the given ISO date,
// newest first (the shape the recent-activity views want).
func (s *Store) ListWorkoutsSince(ctx context.Context, sinceISO string) ([]workout.Record, error) {
	return s.listWorkouts(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE date >= $1 ORDER BY date DESC, created_at DESC`, sinceISO)
}

// InsertWorkout saves a new record and returns it with its assigned ID.
// A missing date defaults to today at the database.
func (s *Store) InsertWorkout(ctx context.Context, rec workout.Record) (workout.Record, error) {
	if !rec.Discipline.Valid() {
		if rec.Discipline == "" {
			return rec, workout.ErrNoDiscipline
		}
		return rec, fmt.Errorf("store: unknown discipline %q", rec.Discipline)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Date == "" {
		rec.Date = dateutil.ISODate(time.Now())
	}

	var details []byte
	if rec.Details != nil {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return rec, fmt.Errorf("marshal details: %w", err)
		}
		details = b
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO workouts (id, date, discipline, duration_minutes, effort, mood, notes, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Date, rec.Discipline,
		pgtype.Float8{Float64: rec.DurationMinutes, Valid: rec.DurationMinutes > 0},
		pgtype.Int4{Int32: int32(rec.Effort), Valid: rec.Effort > 0},
		pgtype.Text{String: rec.Mood, Valid: rec.Mood != ""},
		pgtype.Text{String: rec.Notes, Valid: rec.Notes != ""},
		details,
	)
	if err != nil {
		return rec, fmt.Errorf("insert workout: %w", err)
	}
	return rec, nil
}

// UpsertImportedWorkout saves a record imported from an external source,
// keyed by (source, source_id) so re-running an import cannot duplicate
// sessions.
func (s *Store) UpsertImportedWorkout(ctx context.Context, source string, sourceID int64, rec workout.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	var details []byte
	if rec.Details != nil {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		details = b
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workouts (id, date, discipline, duration_minutes, effort, mood, notes, details, source, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source, source_id) WHERE source IS NOT NULL DO UPDATE
		SET date = EXCLUDED.date,
		    duration_minutes = EXCLUDED.duration_minutes,
		    details = EXCLUDED.details`,
		rec.ID, rec.Date, rec.Discipline,
		pgtype.Float8{Float64: rec.DurationMinutes, Valid: rec.DurationMinutes > 0},
		pgtype.Int4{Int32: int32(rec.Effort), Valid: rec.Effort > 0},
		pgtype.Text{String: rec.Mood, Valid: rec.Mood != ""},
		pgtype.Text{String: rec.Notes, Valid: rec.Notes != ""},
		details,
		source, sourceID,
	)
	if err != nil {
		return fmt.Errorf("upsert imported workout: %w", err)
	}
	return nil
}

// GetProfile returns the athlete profile for this deployment, or
// ErrNotFound when none has been created yet.
func (s *Store) GetProfile(ctx context.Context) (*workout.Profile, error) {
	var (
		p         workout.Profile
		raceDate  pgtype.Date
		raceName  pgtype.Text
		raceGoal  pgtype.Text
		raceDists []byte
		injury    pgtype.Text
		plan      pgtype.Text
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, has_race, race_date, race_name, race_goal, race_distances, injury_flags, training_plan
		FROM profiles LIMIT 1`).Scan(
		&p.ID, &p.Name, &p.Email, &p.HasRace, &raceDate, &raceName, &raceGoal, &raceDists, &injury, &plan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if raceDate.Valid {
		p.RaceDate = dateutil.ISODate(raceDate.Time)
	}
	p.RaceName = raceName.String
	p.RaceGoal = raceGoal.String
	p.InjuryFlags = injury.String
	p.TrainingPlan = plan.String
	if len(raceDists) > 0 && string(raceDists) != "null" {
		var d workout.RaceDistances
		if err := json.Unmarshal(raceDists, &d); err == nil {
			p.RaceDistances = &d
		}
	}
	return &p, nil
}

// UpsertProfile creates or replaces the athlete profile.
func (s *Store) UpsertProfile(ctx context.Context, p *workout.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var raceDists []byte
	if p.RaceDistances != nil {
		b, err := json.Marshal(p.RaceDistances)
		if err != nil {
			return fmt.Errorf("marshal race distances: %w", err)
		}
		raceDists = b
	}
	var raceDate any
	if p.RaceDate != "" {
		raceDate = p.RaceDate
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, name, email, has_race, race_date, race_name, race_goal, race_distances, injury_flags, training_plan)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			has_race = EXCLUDED.has_race,
			race_date = EXCLUDED.race_date,
			race_name = EXCLUDED.race_name,
			race_goal = EXCLUDED.race_goal,
			race_distances = EXCLUDED.race_distances,
			injury_flags = EXCLUDED.injury_flags,
			training_plan = EXCLUDED.training_plan`,
		p.ID, p.Name, p.Email, p.HasRace, raceDate,
		pgtype.Text{String: p.RaceName, Valid: p.RaceName != ""},
		pgtype.Text{String: p.RaceGoal, Valid: p.RaceGoal != ""},
		raceDists,
		pgtype.Text{String: p.InjuryFlags, Valid: p.InjuryFlags != ""},
		pgtype.Text{String: p.TrainingPlan, Valid: p.TrainingPlan != ""},
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// StravaTokens are the stored OAuth credentials for the Strava import.
type StravaTokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	LastSync     time.Time
}

// GetStravaTokens loads the stored Strava credentials, or ErrNotFound
// when the athlete never connected Strava.
func (s *Store) GetStravaTokens(ctx context.Context) (StravaTokens, error) {
	var (
		t        StravaTokens
		access   pgtype.Text
		refresh  pgtype.Text
		expiry   pgtype.Timestamptz
		lastSync pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, `
		SELECT strava_access_token, strava_refresh_token, strava_token_expiry, last_strava_sync
		FROM profiles LIMIT 1`).Scan(&access, &refresh, &expiry, &lastSync)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, fmt.Errorf("get strava tokens: %w", err)
	}
	if !access.Valid || access.String == "" {
		return t, ErrNotFound
	}
	t.AccessToken = access.String
	t.RefreshToken = refresh.String
	t.Expiry = expiry.Time
	t.LastSync = lastSync.Time
	return t, nil
}

// SetStravaTokens stores refreshed Strava credentials.
func (s *Store) SetStravaTokens(ctx context.Context, access, refresh string, expiry time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles SET
			strava_access_token = $1,
			strava_refresh_token = $2,
			strava_token_expiry = $3`,
		pgtype.Text{String: access, Valid: access != ""},
		pgtype.Text{String: refresh, Valid: refresh != ""},
		pgtype.Timestamptz{Time: expiry, Valid: !expiry.IsZero()},
	)
	if err != nil {
		return fmt.Errorf("set strava tokens: %w", err)
	}
	return nil
}

// SetLastStravaSync records when the import last completed.
func (s *Store) SetLastStravaSync(ctx context.Context, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE profiles SET last_strava_sync = $1`,
		pgtype.Timestamptz{Time: at, Valid: true})
	if err != nil {
		return fmt.Errorf("set last strava sync: %w", err)
	}
	return nil
}
