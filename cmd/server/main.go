package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"reportdesk/server/internal/audit"
	auditrepo "reportdesk/server/internal/audit/repository"
	"reportdesk/server/internal/auth"
	"reportdesk/server/internal/clock"
	"reportdesk/server/internal/config"
	"reportdesk/server/internal/db"
	"reportdesk/server/internal/db/migrate"
	"reportdesk/server/internal/draft"
	draftrepo "reportdesk/server/internal/draft/repository"
	"reportdesk/server/internal/encryption"
	"reportdesk/server/internal/lockout"
	lockoutrepo "reportdesk/server/internal/lockout/repository"
	"reportdesk/server/internal/security"
	"reportdesk/server/internal/server"
	"reportdesk/server/internal/session"
	sessionrepo "reportdesk/server/internal/session/repository"
	"reportdesk/server/internal/telemetry"
	"reportdesk/server/internal/telemetry/otel"
	userrepo "reportdesk/server/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrate.Run(cfg.DatabasePath, "up"); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "reportdesk-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()
	emitter := otel.NewEventEmitter(providers.LoggerProvider)
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	tokens, err := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	engine, err := encryption.NewEngine(cfg.DraftKeyPassphrase, cfg.MasterKeySalt(), cfg.DraftKDFIterations, cfg.DraftKDFDigest)
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	clk := clock.System{}

	auditor := audit.NewLogger(auditrepo.NewSQLiteRepository(conn), nil)
	tracker := lockout.NewTracker(cfg.LockoutMaxAttempts, cfg.LockoutWindow(), clk,
		lockoutrepo.NewSQLiteRepository(conn), emitter, metrics)
	registry := session.NewRegistry(cfg.SlidingTimeout(), cfg.AbsoluteTTL(), clk,
		sessionrepo.NewSQLiteRepository(conn), emitter)
	authSvc := auth.NewService(userrepo.NewSQLiteRepository(conn), hasher, tokens,
		registry, tracker, auditor, emitter, metrics)
	draftSvc := draft.NewService(draftrepo.NewSQLiteRepository(conn), engine, clk, emitter, metrics)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweeper := session.NewSweeper(registry, cfg.SweepInterval(), metrics)
	sweeper.Start(sweepCtx)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(authSvc, draftSvc, tokens, conn).Router(),
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	stopSweep()
	sweeper.Stop()
	log.Println("HTTP server stopped")
}
