package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hangup-attribution/internal/audit"
	"hangup-attribution/internal/auth"
	"hangup-attribution/internal/config"
	"hangup-attribution/internal/hangupby"
	"hangup-attribution/internal/httpapi"
	"hangup-attribution/internal/reporting"
	"hangup-attribution/internal/telephony"
	"hangup-attribution/internal/worker"
	"hangup-attribution/pkg/logger"
	"hangup-attribution/pkg/utils"

	"github.com/gin-gonic/gin"
)

// auditRepo is written by the wrap-up path and read by reporting.
type auditRepo interface {
	audit.Repository
	reporting.Repository
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	checks := map[string]func(context.Context) error{}

	var store hangupby.Store = hangupby.NewMemoryStore()
	var dedup hangupby.Deduper = hangupby.NewMemoryDeduper(cfg.HangUpBy.DedupTTL)
	if cfg.HasRedis() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = hangupby.NewRedisStore(rdb, cfg.HangUpBy.StoreTTL)
		dedup = hangupby.NewRedisDeduper(rdb, cfg.HangUpBy.DedupTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn("REDIS_HOST not set; attribution store and wrap-up claims are process-local")
	}

	var events auditRepo = audit.NewMemoryRepo()
	if cfg.HasDB() {
		db, err := utils.OpenPostgres(rootCtx, utils.PostgresConfig{DSN: cfg.PostgresDSN()})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		repo := audit.NewPostgresRepo(db)
		if err := repo.EnsureSchema(rootCtx); err != nil {
			log.Error("audit schema init failed", "err", err)
			os.Exit(1)
		}
		events = repo
		checks["postgres"] = func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) }
	} else {
		log.Warn("DB_HOST not set; audit events are kept in memory")
	}

	twilio, err := telephony.NewTwilioClient(telephony.TwilioConfig{
		AccountSID:        cfg.Twilio.AccountSID,
		AuthToken:         cfg.Twilio.AuthToken,
		WorkspaceSID:      cfg.Twilio.WorkspaceSID,
		APIBaseURL:        cfg.Twilio.APIBaseURL,
		TaskRouterBaseURL: cfg.Twilio.TaskRouterBaseURL,
		Timeout:           cfg.Twilio.HTTPTimeout,
	}, nil)
	if err != nil {
		log.Error("twilio client init failed", "err", err)
		os.Exit(1)
	}
	checks[twilio.Name()] = twilio.HealthCheck

	engine, err := hangupby.NewEngine(store, telephony.NewConferenceQuery(twilio), telephony.NewTaskRouterSink(twilio))
	if err != nil {
		log.Error("engine init failed", "err", err)
		os.Exit(1)
	}
	engine.Dedup = dedup

	dispatcher := worker.NewDispatcher(cfg.HangUpBy.Workers, log)

	handlers := httpapi.Handlers{
		Auth:     authManager,
		Engine:   engine,
		Recorder: hangupby.NewRecorder(store),
		Store:    store,
		Reports:  reporting.NewService(events),
		Dispatch: dispatcher,
		Audit:    audit.NewService(events),
		Checks:   checks,

		WebhookGrace: cfg.HangUpBy.WebhookGrace,
		WorkspaceSID: cfg.Twilio.WorkspaceSID,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		auth:         authManager,
		apiKey:       cfg.App.APIKey,
		workspaceSID: cfg.Twilio.WorkspaceSID,
		handlers:     handlers,
		webhook: telephony.TaskRouterWebhookHandler{
			AuthToken:    cfg.Twilio.AuthToken,
			PublicURL:    cfg.Twilio.WebhookURL,
			WorkspaceSID: cfg.Twilio.WorkspaceSID,
			OnWrapup:     handlers.OnTaskRouterWrapup,
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           withCORS(r, cfg.App.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// No new wrap-ups can arrive; let in-flight evaluations reach the sink.
	dispatcher.Wait()
	log.Info("shutdown complete")
}
