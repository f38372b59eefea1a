// Package strava imports activities from the Strava API into the
// training log.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jessmcb/trilog/internal/dateutil"
	"github.com/jessmcb/trilog/internal/store"
	"github.com/jessmcb/trilog/internal/workout"
)

const apiBase = "https://www.strava.com/api/v3"

// Endpoint is Strava's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// OAuthConfig builds the oauth2 config for the connect flow. The
// callback lands on /auth/strava/callback.
func OAuthConfig(clientID, clientSecret, baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  baseURL + "/auth/strava/callback",
		Scopes:       []string{"activity:read_all"},
	}
}

// Store is the slice of the persistence layer the importer needs.
type Store interface {
	GetStravaTokens(ctx context.Context) (store.StravaTokens, error)
	SetStravaTokens(ctx context.Context, access, refresh string, expiry time.Time) error
	UpsertImportedWorkout(ctx context.Context, source string, sourceID int64, rec workout.Record) error
	SetLastStravaSync(ctx context.Context, at time.Time) error
}

// Importer pulls recent activities and upserts them as workouts.
type Importer struct {
	Store Store
	OAuth *oauth2.Config
}

type activity struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	StartDate   string  `json:"start_date_local"`
	ElapsedSecs int     `json:"elapsed_time"`
	DistanceM   float64 `json:"distance"`
}

// Sync fetches activities started after since (defaults: last sync
// minus 12h, or 14 days back on first run) and saves them. Returns the
// number of imported activities.
func (i *Importer) Sync(ctx context.Context, sinceUnix int64) (int, error) {
	toks, err := i.Store.GetStravaTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("load strava tokens: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  toks.AccessToken,
		RefreshToken: toks.RefreshToken,
		Expiry:       toks.Expiry,
	}
	// TokenSource refreshes transparently; persist whatever it ends up
	// holding once the run finishes.
	ts := i.OAuth.TokenSource(ctx, tok)
	client := oauth2.NewClient(ctx, ts)

	since := time.Now().AddDate(0, 0, -14)
	if !toks.LastSync.IsZero() {
		since = toks.LastSync.Add(-12 * time.Hour)
	}
	if sinceUnix != 0 {
		since = time.Unix(sinceUnix, 0)
	}

	total := 0
	after := strconv.FormatInt(since.Unix(), 10)
	for page := 1; ; page++ {
		items, err := fetchPage(ctx, client, after, page)
		if err != nil {
			return total, err
		}
		if len(items) == 0 {
			break
		}
		for _, a := range items {
			rec, ok := toRecord(a)
			if !ok {
				continue
			}
			if err := i.Store.UpsertImportedWorkout(ctx, "strava", a.ID, rec); err != nil {
				return total, fmt.Errorf("save activity %d: %w", a.ID, err)
			}
			total++
		}
	}

	if fresh, err := ts.Token(); err == nil && fresh.AccessToken != toks.AccessToken {
		if err := i.Store.SetStravaTokens(ctx, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
			return total, fmt.Errorf("persist refreshed tokens: %w", err)
		}
	}
	if err := i.Store.SetLastStravaSync(ctx, time.Now().UTC()); err != nil {
		return total, fmt.Errorf("record last sync: %w", err)
	}

	log.Info().Int("imported", total).Time("since", since).Msg("strava sync done")
	return total, nil
}

func fetchPage(ctx context.Context, client *http.Client, after string, page int) ([]activity, error) {
	url := fmt.Sprintf("%s/athlete/activities?after=%s&per_page=50&page=%d", apiBase, after, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch strava activities: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("strava activities status %d: %s", resp.StatusCode, body)
	}
	var items []activity
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unmarshal strava activities: %w", err)
	}
	return items, nil
}

// toRecord maps a Strava activity to a workout. Activity types with no
// equivalent discipline are skipped.
func toRecord(a activity) (workout.Record, bool) {
	started, err := time.Parse("2006-01-02T15:04:05Z", a.StartDate)
	if err != nil {
		if started, err = time.Parse(time.RFC3339, a.StartDate); err != nil {
			return workout.Record{}, false
		}
	}
	rec := workout.Record{
		Date:            dateutil.ISODate(started),
		DurationMinutes: float64(a.ElapsedSecs) / 60,
		Notes:           a.Name,
	}
	switch a.Type {
	case "Swim":
		rec.Discipline = workout.Swim
		rec.Details = workout.SwimDetails{DistanceMeters: a.DistanceM}
	case "Ride", "VirtualRide":
		rec.Discipline = workout.Bike
		rec.Details = workout.BikeDetails{DistanceKm: a.DistanceM / 1000}
		if a.Type == "VirtualRide" {
			rec.Details = workout.BikeDetails{DistanceKm: a.DistanceM / 1000, Type: "indoor"}
		}
	case "Run", "TrailRun":
		rec.Discipline = workout.Run
		surface := "road"
		if a.Type == "TrailRun" {
			surface = "trail"
		}
		rec.Details = workout.RunDetails{DistanceKm: a.DistanceM / 1000, Surface: surface}
	case "WeightTraining", "Workout":
		rec.Discipline = workout.Strength
	case "RockClimbing":
		rec.Discipline = workout.Climb
	case "Yoga":
		rec.Discipline = workout.Recover
		rec.Details = workout.RecoverDetails{Types: []string{"yoga"}}
	default:
		return workout.Record{}, false
	}
	return rec, true
}
