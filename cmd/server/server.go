package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"velvet-server/internal/config"
	"velvet-server/internal/domain/chat"
	"velvet-server/internal/domain/exchange"
	"velvet-server/internal/domain/grounding"
	userdomain "velvet-server/internal/domain/user"
	"velvet-server/internal/infrastructure/auth"
	"velvet-server/internal/infrastructure/database"
	"velvet-server/internal/infrastructure/database/repository/chatrepo"
	"velvet-server/internal/infrastructure/database/repository/userrepo"
	"velvet-server/internal/infrastructure/generation"
	"velvet-server/internal/infrastructure/logger"
	"velvet-server/internal/infrastructure/observability"
	"velvet-server/internal/infrastructure/retrieval"
	"velvet-server/internal/infrastructure/statistics"
	"velvet-server/internal/interfaces/httpserver"
	"velvet-server/internal/interfaces/httpserver/handlers/authhandler"
	"velvet-server/internal/interfaces/httpserver/handlers/chathandler"
	"velvet-server/internal/interfaces/httpserver/handlers/healthhandler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.GetLogger()
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLog := logger.GetLogger()
		bootLog.Fatal().Err(err).Msg("failed to configure logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownObservability, err := observability.Setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up observability")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migration(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	tokenManager, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token manager")
	}

	userService := userdomain.NewService(userrepo.New(db), tokenManager, cfg.BcryptCost)
	chatService := chat.NewService(chatrepo.New(db), cfg.ChatListLimit)

	var retriever grounding.Retriever
	if cfg.RetrievalBaseURL != "" {
		retrievalClient := retrieval.NewClient(cfg.RetrievalBaseURL, cfg.GroundingTimeout, log)
		defer retrievalClient.Close()
		retriever = retrievalClient
	}
	statsClient := statistics.NewClient(cfg.StatisticsBaseURL, cfg.GroundingTimeout, log)
	defer statsClient.Close()

	assembler := grounding.NewAssembler(retriever, statsClient, cfg.GroundingTimeout, log)

	gateway := generation.NewGateway(cfg, log)
	defer gateway.Shutdown()
	gateway.Initialize(ctx)

	orchestrator := exchange.NewOrchestrator(chatService, assembler, gateway, cfg.HistoryWindow, log)

	engine := httpserver.New(cfg, log,
		userService,
		authhandler.New(userService, log),
		chathandler.New(chatService, orchestrator, cfg.DefaultStatsSeries, log),
		healthhandler.New(db, gateway, statsClient, firstOrEmpty(cfg.DefaultStatsSeries)),
	)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Str("version", config.Version).Msg("HTTP server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Int("port", cfg.MetricsPort).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		log.Info().Msg("shutting down")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("api server shutdown failed")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown failed")
		}
		if err := shutdownObservability(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("observability shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("shutdown complete")
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
