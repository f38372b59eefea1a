package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jessmcb/trilog/internal/auth"
	"github.com/jessmcb/trilog/internal/coach"
	"github.com/jessmcb/trilog/internal/metrics"
	"github.com/jessmcb/trilog/internal/store"
	"github.com/jessmcb/trilog/internal/workout"
)

type memStore struct {
	workouts []workout.Record
	profile  *workout.Profile
	failList bool
}

func (m *memStore) ListWorkouts(context.Context) ([]workout.Record, error) {
	if m.failList {
		return nil, errors.New("boom")
	}
	return m.workouts, nil
}

func (m *memStore) ListWorkoutsSince(_ context.Context, since string) ([]workout.Record, error) {
	if m.failList {
		return nil, errors.New("boom")
	}
	var out []workout.Record
	for _, w := range m.workouts {
		if w.Date >= since {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) InsertWorkout(_ context.Context, rec workout.Record) (workout.Record, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.workouts = append(m.workouts, rec)
	return rec, nil
}

func (m *memStore) GetProfile(context.Context) (*workout.Profile, error) {
	if m.profile == nil {
		return nil, store.ErrNotFound
	}
	return m.profile, nil
}

func (m *memStore) UpsertProfile(_ context.Context, p *workout.Profile) error {
	m.profile = p
	return nil
}

func (m *memStore) SetStravaTokens(context.Context, string, string, time.Time) error {
	return nil
}

type stubCoach struct {
	reply string
	err   error
}

func (c stubCoach) Chat(context.Context, string, []coach.Message, time.Time) (string, error) {
	return c.reply, c.err
}

type capturingSender struct {
	to, subject, html string
}

func (c *capturingSender) Send(to, subject, html string) error {
	c.to, c.subject, c.html = to, subject, html
	return nil
}

func newTestServer(t *testing.T, st *memStore, ch Coach) (*httptest.Server, *capturingSender) {
	t.Helper()
	sess := scs.New()
	sender := &capturingSender{}
	s := New(ServerOptions{
		Sess:        sess,
		Store:       st,
		Coach:       ch,
		Magic:       auth.MagicLink{Secret: []byte("test-secret"), BaseURL: "http://localhost:8080"},
		StateSecret: "state-secret",
		Email:       sender,
		Metrics:     metrics.NewTest(),
		BaseURL:     "http://localhost:8080",
	})
	srv := httptest.NewServer(sess.LoadAndSave(s.Router))
	t.Cleanup(srv.Close)
	return srv, sender
}

// signIn runs the magic-link callback and returns a client holding the
// session cookie.
func signIn(t *testing.T, srv *httptest.Server, email string) *http.Client {
	t.Helper()
	ml := auth.MagicLink{Secret: []byte("test-secret")}
	tok := ml.Sign(email, time.Now().Add(time.Hour))

	jarClient := srv.Client()
	jarClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := jarClient.Get(srv.URL + "/auth/callback?token=" + tok)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	cookies := resp.Cookies()
	require.NotEmpty(t, cookies, "callback should set a session cookie")

	return &http.Client{
		Transport: cookieTransport{cookies: cookies, base: http.DefaultTransport},
	}
}

type cookieTransport struct {
	cookies []*http.Cookie
	base    http.RoundTripper
}

func (c cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	return c.base.RoundTrip(req)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{})
	for _, path := range []string{
		"/api/workouts",
		"/api/profile",
		"/api/progress/volume",
		"/api/progress/pbs",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestMagicLinkSendsEmail(t *testing.T) {
	srv, sender := newTestServer(t, &memStore{}, stubCoach{})

	body := `{"email":"jess@example.com"}`
	resp, err := http.Post(srv.URL+"/auth/magic-link", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "jess@example.com", sender.to)
	require.Contains(t, sender.html, "/auth/callback?token=")
}

func TestMagicLinkDoesNotRevealOtherAddresses(t *testing.T) {
	st := &memStore{profile: &workout.Profile{Email: "jess@example.com", Name: "Jess"}}
	srv, sender := newTestServer(t, st, stubCoach{})

	resp, err := http.Post(srv.URL+"/auth/magic-link", "application/json",
		strings.NewReader(`{"email":"stranger@example.com"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	// Same response as a legitimate request, but no mail goes out.
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Empty(t, sender.to)
}

func TestCallbackRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{})
	resp, err := http.Get(srv.URL + "/auth/callback?token=garbage")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListWorkouts(t *testing.T) {
	st := &memStore{}
	srv, _ := newTestServer(t, st, stubCoach{})
	client := signIn(t, srv, "jess@example.com")

	payload := map[string]any{
		"date":             "2026-02-24",
		"discipline":       "run",
		"duration_minutes": 32,
		"effort":           7,
		"notes":            gofakeit.Sentence(3),
		"details":          map[string]any{"distance": 5.2, "surface": "road", "footPain": true},
	}
	b, _ := json.Marshal(payload)
	resp, err := client.Post(srv.URL+"/api/workouts", "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created workout.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEqual(t, uuid.Nil, created.ID)
	require.True(t, created.FootPain())

	listResp, err := client.Get(srv.URL + "/api/workouts?since=2026-02-01")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listed []workout.Record
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listed))
	require.Len(t, listed, 1)
}

func TestCreateWorkoutValidation(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{})
	client := signIn(t, srv, "jess@example.com")

	tests := []struct {
		name string
		body string
	}{
		{"unknown discipline", `{"date":"2026-02-24","discipline":"rowing"}`},
		{"missing discipline", `{"date":"2026-02-24"}`},
		{"effort out of range", `{"date":"2026-02-24","discipline":"run","effort":11}`},
		{"bad date", `{"date":"24/02/2026","discipline":"run"}`},
		{"not json", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Post(srv.URL+"/api/workouts", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestProfileRoundTrip(t *testing.T) {
	st := &memStore{}
	srv, _ := newTestServer(t, st, stubCoach{})
	client := signIn(t, srv, "jess@example.com")

	getResp, err := client.Get(srv.URL + "/api/profile")
	require.NoError(t, err)
	getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)

	profile := workout.Profile{
		Name:     "Jess",
		Email:    "jess@example.com",
		HasRace:  true,
		RaceDate: "2026-06-28",
		RaceName: "City Sprint Tri",
	}
	b, _ := json.Marshal(profile)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/profile", bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	putResp, err := client.Do(req)
	require.NoError(t, err)
	putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	getResp, err = client.Get(srv.URL + "/api/profile")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var got workout.Profile
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	require.Equal(t, "City Sprint Tri", got.RaceName)
}

func TestCoachEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{reply: "ride easy tomorrow"})
	client := signIn(t, srv, "jess@example.com")

	resp, err := client.Post(srv.URL+"/api/coach", "application/json",
		strings.NewReader(`{"message":"how was my week?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "ride easy tomorrow", out["reply"])
}

func TestCoachEndpointEmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{err: coach.ErrEmptyMessage})
	client := signIn(t, srv, "jess@example.com")

	resp, err := client.Post(srv.URL+"/api/coach", "application/json",
		strings.NewReader(`{"message":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCoachEndpointUpstreamFailure(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{}, stubCoach{err: errors.New("llm down")})
	client := signIn(t, srv, "jess@example.com")

	resp, err := client.Post(srv.URL+"/api/coach", "application/json",
		strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestProgressEndpoints(t *testing.T) {
	st := &memStore{workouts: []workout.Record{
		{
			Date:            "2026-02-24",
			Discipline:      workout.Run,
			DurationMinutes: 30,
			Details:         workout.RunDetails{DistanceKm: 5},
		},
		{
			Date:       "2026-02-23",
			Discipline: workout.Climb,
			Details: workout.ClimbDetails{Routes: []workout.Route{
				{Grade: "V4", Status: workout.RouteSent},
			}},
		},
	}}
	srv, _ := newTestServer(t, st, stubCoach{})
	client := signIn(t, srv, "jess@example.com")

	for _, path := range []string{
		"/api/progress/volume",
		"/api/progress/volume?weeks=4",
		"/api/progress/pbs",
		"/api/progress/strength",
		"/api/progress/sends",
		"/api/progress/compare",
	} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := client.Get(srv.URL + "/api/progress/volume?weeks=100")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{failList: true}, stubCoach{})
	client := signIn(t, srv, "jess@example.com")

	resp, err := client.Get(srv.URL + "/api/progress/pbs")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
