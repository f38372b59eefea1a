package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jessmcb/trilog/internal/config"
	"github.com/jessmcb/trilog/internal/email"
	"github.com/jessmcb/trilog/internal/jobs"
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
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	st := store.New(pool)

	var sender email.Sender = email.StdoutSender{}
	if cfg.SMTPAddr != "" {
		sender = email.NewSMTPSender(cfg.SMTPAddr, cfg.EmailFrom)
	}

	m := metrics.New("trilog_worker")

	importer := &strava.Importer{
		Store: st,
		OAuth: strava.OAuthConfig(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.BaseURL),
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

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 8,
		Queues: map[string]int{
			"sync":    10,
			"default": 5,
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskSyncStrava, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.SyncStravaPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Error().Err(err).Msg("bad sync payload")
			return err
		}
		start := time.Now()
		n, err := importer.Sync(ctx, p.SinceUnix)
		if err != nil {
			m.StravaSyncErrors.Inc()
			if isRetryableError(err) {
				log.Warn().Err(err).Dur("took", time.Since(start)).Msg("sync failed, will retry")
				return err
			}
			log.Error().Err(err).Dur("took", time.Since(start)).Msg("sync failed permanently, dropping")
			return nil
		}
		m.StravaSyncs.Inc()
		log.Info().Int("imported", n).Dur("took", time.Since(start)).Msg("sync done")
		return nil
	})

	mux.HandleFunc(jobs.TaskWeeklyRecap, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.WeeklyRecapPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Error().Err(err).Msg("bad recap payload")
			return err
		}
		to := p.Email
		if to == "" {
			profile, err := st.GetProfile(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("no profile, skipping recap")
				return nil
			}
			to = profile.Email
		}
		recs, err := st.ListWorkouts(ctx)
		if err != nil {
			return err
		}
		html := jobs.BuildRecapHTML(recs, time.Now(), sumCfg)
		if err := sender.Send(to, jobs.RecapSubject, html); err != nil {
			return err
		}
		m.RecapsSent.Inc()
		log.Info().Str("to", to).Msg("weekly recap sent")
		return nil
	})

	// Sunday-evening recap plus a nightly top-up sync.
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, nil)
	if _, err := scheduler.Register("0 18 * * 0",
		asynq.NewTask(jobs.TaskWeeklyRecap, mustJSON(jobs.WeeklyRecapPayload{}))); err != nil {
		log.Fatal().Err(err).Msg("register recap schedule")
	}
	if cfg.HasStrava() {
		if _, err := scheduler.Register("0 3 * * *",
			asynq.NewTask(jobs.TaskSyncStrava, mustJSON(jobs.SyncStravaPayload{})),
			asynq.Queue("sync")); err != nil {
			log.Fatal().Err(err).Msg("register sync schedule")
		}
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal().Err(err).Msg("scheduler stopped")
		}
	}()

	log.Info().Msg("worker running")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// isRetryableError classifies failures: transient network and rate
// limit errors retry, everything else drops.
func isRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") {
		return true
	}
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return true
	}
	return false
}
