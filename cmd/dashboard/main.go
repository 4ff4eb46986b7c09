package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"guild-dashboard/internal/api"
	"guild-dashboard/internal/config"
	"guild-dashboard/internal/db"
	"guild-dashboard/internal/discord"
	"guild-dashboard/internal/guildconfig"
	"guild-dashboard/internal/logging"
	"guild-dashboard/internal/redis"
	"guild-dashboard/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_dashboard", "service", "guild-dashboard", "http_addr", cfg.HTTPAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	redisClient, err := redis.New(cfg.RedisDSN)
	if err != nil {
		logger.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	configStore := guildconfig.NewStore(dbConn)
	if err := configStore.Init(ctx); err != nil {
		logger.Error("schema_init_failed", "error", err)
		os.Exit(1)
	}

	// bot gateway presence: without a bot token every guild reads as
	// "bot absent" and the dashboard stays read-only
	var presence session.Presence = session.StaticPresence(false)
	var gateway *discord.Gateway
	if cfg.BotToken != "" {
		gateway = discord.NewGateway(cfg.BotToken, logger)
		go gateway.Run(ctx)
		presence = gateway
	} else {
		logger.Warn("bot_token_not_configured", "presence", "static_absent")
	}

	oauthClient := discord.NewOAuthClient(logger, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI)
	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	reconciler := session.NewReconciler(oauthClient, presence, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := api.NewServer(logger, cfg, dbConn, redisClient, sessions, configStore, reconciler, oauthClient, gateway)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("dashboard_started", "addr", cfg.HTTPAddr)

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	// stop the gateway loop before tearing down its dependencies
	cancel()

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis_close_error", "error", err)
	} else {
		logger.Info("redis_closed")
	}

	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("dashboard_stopped")
}
