// Package routes wires the JSON API.
package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jessmcb/trilog/internal/analytics"
	"github.com/jessmcb/trilog/internal/auth"
	"github.com/jessmcb/trilog/internal/coach"
	"github.com/jessmcb/trilog/internal/dateutil"
	"github.com/jessmcb/trilog/internal/email"
	appmw "github.com/jessmcb/trilog/internal/http/middleware"
	"github.com/jessmcb/trilog/internal/jobs"
	"github.com/jessmcb/trilog/internal/metrics"
	"github.com/jessmcb/trilog/internal/store"
	"github.com/jessmcb/trilog/internal/workout"
)

// Store is the persistence surface the handlers need.
type Store interface {
	ListWorkouts(ctx context.Context) ([]workout.Record, error)
	ListWorkoutsSince(ctx context.Context, sinceISO string) ([]workout.Record, error)
	InsertWorkout(ctx context.Context, rec workout.Record) (workout.Record, error)
	GetProfile(ctx context.Context) (*workout.Profile, error)
	UpsertProfile(ctx context.Context, p *workout.Profile) error
	SetStravaTokens(ctx context.Context, access, refresh string, expiry time.Time) error
}

// Coach produces a reply to a chat message.
type Coach interface {
	Chat(ctx context.Context, userMsg string, history []coach.Message, now time.Time) (string, error)
}

type Server struct {
	Router      *chi.Mux
	Sess        *scs.SessionManager
	Store       Store
	Coach       Coach
	Magic       auth.MagicLink
	StravaConf  *oauth2.Config
	StateSecret string
	RedisAddr   string
	Email       email.Sender
	Metrics     *metrics.Metrics
	BaseURL     string
}

type ServerOptions struct {
	Sess        *scs.SessionManager
	Store       Store
	Coach       Coach
	Magic       auth.MagicLink
	StravaConf  *oauth2.Config
	StateSecret string
	RedisAddr   string
	Email       email.Sender
	Metrics     *metrics.Metrics
	BaseURL     string
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:      r,
		Sess:        opts.Sess,
		Store:       opts.Store,
		Coach:       opts.Coach,
		Magic:       opts.Magic,
		StravaConf:  opts.StravaConf,
		StateSecret: opts.StateSecret,
		RedisAddr:   opts.RedisAddr,
		Email:       opts.Email,
		Metrics:     opts.Metrics,
		BaseURL:     opts.BaseURL,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/auth/magic-link", s.handleMagicLink)
	r.Get("/auth/callback", s.handleCallback)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/strava/start", s.handleStravaStart)
	r.Get("/auth/strava/callback", s.handleStravaCallback)

	r.Group(func(pr chi.Router) {
		pr.Use(s.sessionToContext)
		pr.Use(appmw.RequireAuth)
		pr.Get("/api/workouts", s.handleListWorkouts)
		pr.Post("/api/workouts", s.handleCreateWorkout)
		pr.Get("/api/profile", s.handleGetProfile)
		pr.Put("/api/profile", s.handlePutProfile)
		pr.Post("/api/coach", s.handleCoach)
		pr.Get("/api/progress/volume", s.handleVolume)
		pr.Get("/api/progress/pbs", s.handlePBs)
		pr.Get("/api/progress/strength", s.handleStrength)
		pr.Get("/api/progress/sends", s.handleSends)
		pr.Get("/api/progress/compare", s.handleCompare)
		pr.Post("/api/sync", s.handleTriggerSync)
	})

	return s
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email := s.Sess.GetString(r.Context(), "athlete_email"); email != "" {
			r = r.WithContext(context.WithValue(r.Context(), appmw.AthleteEmailKey, email))
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write json response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// ---- Auth

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	addr := strings.TrimSpace(req.Email)
	if addr == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	// Only mail the configured athlete; anyone else gets the same
	// response so the endpoint doesn't reveal the address.
	if p, err := s.Store.GetProfile(r.Context()); err == nil && !strings.EqualFold(p.Email, addr) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}

	link := s.Magic.URL(addr, 15*time.Minute)
	if s.Email != nil {
		html := `<p>Click the link below to sign in:</p><p><a href="` + link + `">Sign in to trilog</a></p>`
		if err := s.Email.Send(addr, "Your trilog sign-in link", html); err != nil {
			log.Error().Err(err).Str("email", addr).Msg("send magic link")
			writeError(w, http.StatusInternalServerError, "could not send link")
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if un, err := url.QueryUnescape(tok); err == nil {
		tok = un
	}
	addr, err := s.Magic.Verify(tok, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("magic link verify failed")
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	s.Sess.Put(r.Context(), "athlete_email", addr)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sess.Destroy(r.Context()); err != nil {
		log.Error().Err(err).Msg("destroy session")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// ---- Workouts

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	if since == "" {
		since = dateutil.ISODate(time.Now().AddDate(0, 0, -28))
	} else if _, err := dateutil.ParseISO(since); err != nil {
		writeError(w, http.StatusBadRequest, "since must be YYYY-MM-DD")
		return
	}
	recs, err := s.Store.ListWorkoutsSince(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("list workouts")
		writeError(w, http.StatusInternalServerError, "could not load workouts")
		return
	}
	if recs == nil {
		recs = []workout.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var rec workout.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad workout payload: "+err.Error())
		return
	}
	if !rec.Discipline.Valid() {
		writeError(w, http.StatusBadRequest, "unknown discipline")
		return
	}
	if rec.Effort < 0 || rec.Effort > 10 {
		writeError(w, http.StatusBadRequest, "effort must be between 0 and 10")
		return
	}
	if rec.Date != "" {
		if _, err := dateutil.ParseISO(rec.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}
	saved, err := s.Store.InsertWorkout(r.Context(), rec)
	if err != nil {
		log.Error().Err(err).Msg("insert workout")
		writeError(w, http.StatusInternalServerError, "could not save workout")
		return
	}
	if s.Metrics != nil {
		s.Metrics.WorkoutsLogged.WithLabelValues(string(saved.Discipline)).Inc()
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ---- Profile

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.GetProfile(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no profile yet")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get profile")
		writeError(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p workout.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad profile payload")
		return
	}
	if strings.TrimSpace(p.Email) == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if p.RaceDate != "" {
		if _, err := dateutil.ParseISO(p.RaceDate); err != nil {
			writeError(w, http.StatusBadRequest, "raceDate must be YYYY-MM-DD")
			return
		}
	}
	if existing, err := s.Store.GetProfile(r.Context()); err == nil {
		p.ID = existing.ID
	}
	if err := s.Store.UpsertProfile(r.Context(), &p); err != nil {
		log.Error().Err(err).Msg("upsert profile")
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ---- Coach

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string          `json:"message"`
		History []coach.Message `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	if s.Metrics != nil {
		s.Metrics.CoachRequests.Inc()
	}
	start := time.Now()
	reply, err := s.Coach.Chat(r.Context(), req.Message, req.History, time.Now())
	if s.Metrics != nil {
		s.Metrics.CoachDuration.Observe(time.Since(start).Seconds())
	}
	if errors.Is(err, coach.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.CoachErrors.Inc()
		}
		log.Error().Err(err).Msg("coach chat")
		writeError(w, http.StatusBadGateway, "coach is unavailable right now")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// ---- Progress

func (s *Server) allWorkouts(w http.ResponseWriter, r *http.Request) ([]workout.Record, bool) {
	recs, err := s.Store.ListWorkouts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list workouts")
		writeError(w, http.StatusInternalServerError, "could not load workouts")
		return nil, false
	}
	return recs, true
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	weeks := 6
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 52 {
			writeError(w, http.StatusBadRequest, "weeks must be 1-52")
			return
		}
		weeks = n
	}
	recs, ok := s.allWorkouts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.WeeklyVolume(recs, weeks, time.Now()))
}

func (s *Server) handlePBs(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.allWorkouts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.PersonalBests(recs))
}

func (s *Server) handleStrength(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.allWorkouts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.StrengthTrend(recs))
}

func (s *Server) handleSends(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.allWorkouts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.ClimbSends(recs))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.allWorkouts(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.CompareWeeks(recs, time.Now()))
}

// ---- Strava connect + sync

func (s *Server) handleStravaStart(w http.ResponseWriter, r *http.Request) {
	if s.StravaConf == nil || s.StravaConf.ClientID == "" {
		writeError(w, http.StatusServiceUnavailable, "strava is not configured")
		return
	}
	state := s.signState(time.Now().Add(30 * time.Minute))
	authURL := s.StravaConf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleStravaCallback(w http.ResponseWriter, r *http.Request) {
	if !s.verifyState(r.URL.Query().Get("state")) {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	tok, err := s.StravaConf.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("strava token exchange")
		writeError(w, http.StatusBadGateway, "could not exchange token")
		return
	}
	if err := s.Store.SetStravaTokens(r.Context(), tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		log.Error().Err(err).Msg("save strava tokens")
		writeError(w, http.StatusInternalServerError, "could not save tokens")
		return
	}
	s.enqueueSync(0)
	writeJSON(w, http.StatusOK, map[string]string{"status": "strava connected"})
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	// Manual syncs reach back 30 days to pick up edits.
	since := time.Now().AddDate(0, 0, -30).Unix()
	if !s.enqueueSync(since) {
		writeError(w, http.StatusInternalServerError, "could not queue sync")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync queued"})
}

func (s *Server) enqueueSync(sinceUnix int64) bool {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: s.RedisAddr})
	defer func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("close asynq client")
		}
	}()
	payload, _ := json.Marshal(jobs.SyncStravaPayload{SinceUnix: sinceUnix})
	info, err := client.Enqueue(asynq.NewTask(jobs.TaskSyncStrava, payload),
		asynq.Queue("sync"),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		log.Error().Err(err).Msg("enqueue strava sync")
		return false
	}
	log.Info().Str("task_id", info.ID).Str("queue", info.Queue).Msg("strava sync queued")
	return true
}

func (s *Server) signState(exp time.Time) string {
	msg := "strava|" + strconv.FormatInt(exp.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(s.StateSecret))
	mac.Write([]byte(msg))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	pl := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return pl + "." + sig
}

func (s *Server) verifyState(state string) bool {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.StateSecret))
	mac.Write(payload)
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return false
	}
	fields := strings.SplitN(string(payload), "|", 2)
	if len(fields) != 2 {
		return false
	}
	expUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return false
	}
	return !time.Now().After(time.Unix(expUnix, 0))
}
