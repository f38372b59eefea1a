package main

import (
	"context"
	"net/http"
	"os"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/jessmcb/trilog/internal/auth"
	"github.com/jessmcb/trilog/internal/coach"
	"github.com/jessmcb/trilog/internal/config"
	"github.com/jessmcb/trilog/internal/email"
	"github.com/jessmcb/trilog/internal/http/routes"
	"github.com/jessmcb/trilog/internal/metrics"
	"github.com/jessmcb/trilog/internal/store"
	"github.com/jessmcb/trilog/internal/strava"
	"github.com/jessmcb/trilog/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = logger
	log.Info().Str("port", cfg.Port).Msg("starting api")

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	st := store.New(pool)

	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	ml := auth.MagicLink{
		Secret:  []byte(cfg.AppSecret),
		BaseURL: cfg.BaseURL,
	}

	var sender email.Sender = email.StdoutSender{}
	if cfg.SMTPAddr != "" {
		sender = email.NewSMTPSender(cfg.SMTPAddr, cfg.EmailFrom)
	}

	sumCfg := summary.Config{
		Plan:     summary.DefaultPlan(),
		RestDays: summary.DefaultRestDays(),
		Targets: summary.Targets{
			Strength: cfg.Coach.TargetStrength,
			Run:      cfg.Coach.TargetRun,
			Bike:     cfg.Coach.TargetBike,
			Swim:     cfg.Coach.TargetSwim,
		},
		RecentWeeks: cfg.Coach.RecentWeeks,
	}

	llm := coach.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature)
	if cfg.OpenAI.BaseURL != "" {
		llm.BaseURL = cfg.OpenAI.BaseURL
	}
	svc := coach.NewService(st, llm, coach.PromptBuilder{
		MaxInputChars:   cfg.Coach.MaxInputChars,
		MaxHistoryTurns: cfg.Coach.MaxHistoryTurns,
		PlanText:        summary.PlanText(sumCfg.Plan),
		Targets:         sumCfg.Targets,
	}, sumCfg)

	s := routes.New(routes.ServerOptions{
		Sess:        sess,
		Store:       st,
		Coach:       svc,
		Magic:       ml,
		StravaConf:  strava.OAuthConfig(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.BaseURL),
		StateSecret: cfg.AppSecret,
		RedisAddr:   cfg.RedisAddr,
		Email:       sender,
		Metrics:     metrics.New("trilog"),
		BaseURL:     cfg.BaseURL,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: sess.LoadAndSave(h)}
	log.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}
