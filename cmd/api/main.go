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

	"followup-platform/internal/auth"
	"followup-platform/internal/billing"
	"followup-platform/internal/campaign"
	"followup-platform/internal/config"
	"followup-platform/internal/contact"
	"followup-platform/internal/content"
	"followup-platform/internal/engine"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
	"followup-platform/internal/migrate"
	"followup-platform/internal/ratelimit"
	"followup-platform/internal/scheduler"
	"followup-platform/internal/stats"
	"followup-platform/pkg/logger"
	"followup-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional env file for local runs; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	cfg = cfg.WithDefaults()

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrate.Apply(rootCtx, db); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	limiter, err := ratelimit.NewRedisLimiter(rdb, cfg.Engine.SendsPerMinute, time.Minute)
	if err != nil {
		log.Error("rate limiter init failed", "err", err)
		os.Exit(1)
	}

	sender, err := gateway.NewWhatsAppClient(gateway.WhatsAppConfig{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
	})
	if err != nil {
		log.Error("gateway init failed", "err", err)
		os.Exit(1)
	}

	// ai_generated campaigns are off without a key; manual ones keep working.
	var generator content.Generator
	if cfg.GenAI.APIKey != "" {
		g, err := content.NewGenAIGenerator(rootCtx, cfg.GenAI.APIKey, cfg.GenAI.Model)
		if err != nil {
			log.Error("genai init failed", "err", err)
			os.Exit(1)
		}
		generator = g
	} else {
		log.Warn("GENAI_API_KEY not set; ai_generated campaigns disabled")
	}

	campaigns := campaign.NewPostgresRepo(db)
	enrollments := enrollment.NewPostgresRepo(db)
	attempts := enrollment.NewPostgresAttemptRepo(db)
	inbound := enrollment.NewPostgresInboundRepo(db)
	contacts := contact.NewPostgresRepo(db)
	billingSvc := billing.NewService(billing.NewPostgresRepo(db))

	eng := engine.New(engine.Deps{
		Campaigns:   campaigns,
		Contacts:    contacts,
		Enrollments: enrollments,
		Attempts:    attempts,
		Inbound:     inbound,
		Limiter:     limiter,
		Sender:      sender,
		Generator:   generator,
		Authz:       billingSvc,
		Log:         log,
	}, engine.Config{MaxParallel: cfg.Engine.MaxParallel})

	statsSvc := stats.NewService(campaigns, enrollments, attempts)

	sched := scheduler.New(eng, campaigns, scheduler.Config{
		SequencerInterval:  cfg.Engine.SequencerInterval,
		EnrollmentInterval: cfg.Engine.EnrollmentInterval,
	}, log)
	go func() {
		if err := sched.Run(rootCtx); err != nil {
			log.Error("scheduler stopped", "err", err)
			stop()
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		auth:          authManager,
		engine:        eng,
		stats:         statsSvc,
		webhookSecret: cfg.Gateway.WebhookSecret,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
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
}
