package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glyph-dict-activation/internal/config"
	"glyph-dict-activation/internal/infra/api"
	pg "glyph-dict-activation/internal/infra/db/postgres"
	"glyph-dict-activation/internal/infra/logging"
	"glyph-dict-activation/internal/infra/metrics"
	red "glyph-dict-activation/internal/infra/redis"
	"glyph-dict-activation/internal/infra/sched"
	"glyph-dict-activation/internal/infra/web"
	"glyph-dict-activation/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed validation)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	codeRepo := pg.NewCodeRepo(pool)
	bindingRepo := pg.NewBindingRepo(pool)
	glyphRepo := pg.NewGlyphRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	activationUC := usecase.NewActivationUseCase(codeRepo, bindingRepo, tm, cfg.Plans, cfg.Limits.GenerateMax, logger)
	reportingUC := usecase.NewReportingUseCase(codeRepo, bindingRepo)
	glyphUC := usecase.NewGlyphUseCase(glyphRepo, logger)
	if err := glyphUC.Rebuild(ctx); err != nil {
		logger.Fatal().Err(err).Msg("build glyph index")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetGlyphIndexEntries(glyphUC.Count())

	// ---- Public API server ----
	apiSrv := api.NewServer(activationUC, glyphUC, rateLimiter, cfg.Limits.ActivatePerMinute, logger)
	publicServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      apiSrv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", publicServer.Addr).Msg("public api listening")
		if err := publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("public api server error")
		}
	}()

	// ---- Admin server ----
	auth := web.NewAuthManager(cfg.Admin.SessionSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	adminSrv := web.NewServer(reportingUC, activationUC, glyphUC, auth, rateLimiter, cfg.Admin.PasswordHash, logger)
	adminServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:      adminSrv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", adminServer.Addr).Msg("admin api listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Stats worker ----
	statsWorker := sched.NewStatsWorker(time.Minute, reportingUC, logger)
	go func() { _ = statsWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = publicServer.Shutdown(shutdownCtx)
	_ = adminServer.Shutdown(shutdownCtx)
}
