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

	"ysvs/internal/audit"
	"ysvs/internal/certificate/artifact"
	certhandler "ysvs/internal/certificate/handler"
	certmetrics "ysvs/internal/certificate/metrics"
	"ysvs/internal/certificate/serial"
	certservice "ysvs/internal/certificate/service"
	certstore "ysvs/internal/certificate/store/certificate"
	templatestore "ysvs/internal/certificate/store/template"
	"ysvs/internal/certificate/verifycache"
	eventstore "ysvs/internal/event/store/event"
	httpapi "ysvs/internal/http"
	invservice "ysvs/internal/inventory/service"
	"ysvs/internal/inventory/store/tickettype"
	"ysvs/internal/member"
	"ysvs/internal/platform/config"
	"ysvs/internal/platform/database"
	"ysvs/internal/platform/health"
	"ysvs/internal/platform/httpserver"
	"ysvs/internal/platform/kafka/producer"
	"ysvs/internal/platform/logger"
	"ysvs/internal/platform/redis"
	reghandler "ysvs/internal/registration/handler"
	regmetrics "ysvs/internal/registration/metrics"
	regservice "ysvs/internal/registration/service"
	regstore "ysvs/internal/registration/store/registration"
)

// main wires the dependency graph and owns the server lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	var db *sql.DB
	if pool != nil {
		db = pool.DB()
		defer pool.Close()
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	redisClient, err := redis.New(redisCfg)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to the in-memory implementations when no database is
	// configured, which keeps local development dependency-free.
	var (
		events        regservice.EventStore
		eventCounters invservice.EventCounters
		regs          *storeSet
	)
	if db != nil {
		pg := eventstore.NewPostgres(db)
		events, eventCounters = pg, pg
		regs = postgresStores(db)
	} else {
		mem := eventstore.NewInMemory()
		events, eventCounters = mem, mem
		regs = memoryStores()
	}

	// The Kafka path goes through a buffered sink and a drain worker so
	// request handlers never block on broker latency.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	auditSink := audit.Sink(audit.NewMemorySink())
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers: cfg.KafkaBrokers,
			Retries: 5,
		}, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		buffered := audit.NewBufferedSink(256, log)
		worker := audit.NewWorker(audit.NewKafkaSink(kafkaProducer, ""), buffered.Inbox(), log)
		go func() {
			_ = worker.Run(auditCtx)
		}()
		auditSink = buffered
	}
	auditor := audit.NewPublisher(auditSink)

	var allocator serial.Allocator = serial.NewMemory(cfg.SerialPrefix)
	if db != nil {
		allocator = serial.NewPostgres(db, cfg.SerialPrefix)
	}

	artifacts, err := artifact.NewFilesystemStore(cfg.ArtifactDir)
	if err != nil {
		log.Error("artifact store init failed", "error", err)
		os.Exit(1)
	}

	inventory := invservice.NewService(regs.tickets, eventCounters)
	registrations := regservice.NewService(
		events, regs.registrations, inventory, auditor, regmetrics.New(), log,
	)
	certificates := certservice.NewService(certservice.Config{
		Certificates:  regs.certificates,
		Templates:     regs.templates,
		Registrations: regs.registrations,
		Events:        events,
		Members:       regs.members,
		Allocator:     allocator,
		Renderer:      artifact.NewPDFRenderer(),
		Artifacts:     artifacts,
		Cache:         verifycache.New(redisClient, config.VerifyCacheTTL, log),
		Auditor:       auditor,
		Metrics:       certmetrics.New(),
		Logger:        log,
		VerifyBaseURL: cfg.VerifyBaseURL,
	})

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Registrations: reghandler.New(registrations, log),
		Certificates:  certhandler.New(certificates, log),
		Health:        healthHandler,
		JWTSigningKey: cfg.JWTSigningKey,
		Logger:        log,
	})
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// storeSet groups the persistence implementations so main swaps the whole
// family at once.
type storeSet struct {
	registrations regservice.Store
	tickets       invservice.Store
	certificates  certservice.CertificateStore
	templates     certservice.TemplateStore
	members       member.Store
}

func postgresStores(db *sql.DB) *storeSet {
	return &storeSet{
		registrations: regstore.NewPostgres(db),
		tickets:       tickettype.NewPostgres(db),
		certificates:  certstore.NewPostgres(db),
		templates:     templatestore.NewPostgres(db),
		members:       member.NewPostgres(db),
	}
}

func memoryStores() *storeSet {
	return &storeSet{
		registrations: regstore.NewInMemory(),
		tickets:       tickettype.NewInMemory(),
		certificates:  certstore.NewInMemory(),
		templates:     templatestore.NewInMemory(),
		members:       member.NewInMemory(),
	}
}
