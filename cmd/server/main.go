package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/josephcall20-lang/Admissions-co-pilot/internal/auth"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/compliance/audit"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/documents"
	documentshandler "github.com/josephcall20-lang/Admissions-co-pilot/internal/documents/handler"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/esign"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/lead"
	leadhandler "github.com/josephcall20-lang/Admissions-co-pilot/internal/lead/handler"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/notify"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/observability"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/config"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/httpserver"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/logger"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/metrics"
	platformredis "github.com/josephcall20-lang/Admissions-co-pilot/internal/platform/redis"
	reportinghandler "github.com/josephcall20-lang/Admissions-co-pilot/internal/reporting/handler"
	httptransport "github.com/josephcall20-lang/Admissions-co-pilot/internal/transport/http"
	"github.com/josephcall20-lang/Admissions-co-pilot/internal/workflow"
	workflowhandler "github.com/josephcall20-lang/Admissions-co-pilot/internal/workflow/handler"
)

// main wires high-level dependencies, mounts the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	prom := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		leadStore  lead.Store
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, lead.Schema()); err != nil {
			log.Error("lead schema apply failed", "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, audit.Schema()); err != nil {
			log.Error("audit schema apply failed", "error", err)
			os.Exit(1)
		}
		leadStore = lead.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		leadStore = lead.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	// Optional audit event stream.
	var auditPublisher audit.Publisher
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAuditTopic != "" {
		kafkaPublisher, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
		log.Info("audit events publishing to kafka", "topic", cfg.KafkaAuditTopic)
	}

	// Document tracker with optional Redis-backed check cache.
	memTracker := documents.NewInMemoryTracker(cfg.UploadLinkExpiry())
	var (
		tracker     documents.Tracker
		invalidator documents.Invalidator
	)
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cached := documents.NewRedisCachedTracker(memTracker, redisClient.Client, cfg.DocCacheTTL())
		tracker, invalidator = cached, cached
		log.Info("document checks cached in redis")
	} else {
		cached := documents.NewCachedTracker(memTracker, cfg.DocCacheTTL())
		tracker, invalidator = cached, cached
	}

	provider := esign.NewInMemoryProvider()
	notifier := notify.NewLogNotifier(log)

	obs := observability.NewEngine(leadStore, prom, log)
	gate := compliance.NewGate(cfg.Compliance, leadStore, auditStore, auditPublisher, log)
	engine := workflow.NewEngine(leadStore, gate, tracker, provider, notifier, obs, prom, workflow.Config{
		ConsentTemplateVersion: cfg.ConsentTemplateVersion,
		ReminderAfter:          cfg.ReminderAfter(),
	}, log)

	tokens := auth.NewTokenService(cfg.JWTSigningKey)

	leads := leadhandler.New(leadStore, gate, log, prom)
	workflows := workflowhandler.New(engine, leadStore, obs, cfg.WebhookSecret, log)
	monitoring := reportinghandler.New(obs, gate, log)
	docs := documentshandler.New(memTracker, invalidator, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   prom,
		Tracker:   obs,
		Validator: tokens,
		Public: []func(chi.Router){
			workflows.Webhooks,
			monitoring.Probes,
			docs.Register,
		},
		Authenticated: []func(chi.Router){
			leads.Register,
			workflows.Register,
			monitoring.Register,
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting admissions co-pilot", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
