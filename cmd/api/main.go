package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winshirt-sync/internal/config"
	"winshirt-sync/internal/handler"
	"winshirt-sync/internal/logging"
	"winshirt-sync/internal/middleware"
	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/router"
	"winshirt-sync/internal/service"
)

func main() {
	start := time.Now()
	cfg := config.MustLoad()

	level := logging.ParseLevel(cfg.App.LogLevel)
	if cfg.App.Debug {
		level = logging.ParseLevel("debug")
	}
	logger, logCloser, err := logging.New().
		FromPath(cfg.App.LogPath).
		Level(level).
		Pretty(cfg.App.IsDevelopment() && cfg.App.LogPath == "").
		Make()
	if err != nil {
		panic(err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	log := logging.Component(logger, "main")
	log.Info().Str("env", cfg.App.Environment).Str("version", cfg.App.Version).Msg("starting winshirt sync service")

	remote, err := openRemote(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.Remote.Type).Msg("failed to initialize remote data service")
	}
	defer remote.Close()
	log.Info().Str("type", cfg.Remote.Type).Msg("remote data service initialized")

	store, err := openMirror(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.Mirror.Type).Msg("failed to initialize local mirror")
	}
	defer store.Close()
	log.Info().Str("type", cfg.Mirror.Type).Msg("local mirror initialized")

	feed := notify.NewFeed(cfg.Notify.FeedSize)
	notifier := buildNotifier(cfg, feed, logger)

	probe := service.NewProbe(remote, cfg.Remote.ProbeTable, logging.Component(logger, "probe"))
	statusBook := mirror.NewStatusBook(store)
	catalog := service.NewCatalog(service.Deps{
		Remote:   remote,
		Mirror:   store,
		Probe:    probe,
		Notifier: notifier,
		Status:   statusBook,
		Logger:   logger,
	})

	sessions := openCache(cfg, logger)
	defer sessions.Close()
	tokens := service.NewTokenService(sessions, logger)

	var auth *service.AuthService
	accounts, accountsCloser := openAccounts(cfg, logger)
	if accounts != nil {
		defer accountsCloser.Close()
		auth = service.NewAuthService(accounts, tokens, service.NotifierConfirmation{Notifier: notifier}, logger)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	source, err := openRealtime(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.Realtime.Type).Msg("failed to initialize realtime source")
	}
	var refresher *service.Refresher
	if source != nil {
		refresher = service.NewRefresher(source, cfg.Realtime.Tables, logger, catalog.Tables()...)
		if err := refresher.Start(ctx); err != nil {
			log.Error().Err(err).Msg("realtime refresh disabled")
			refresher = nil
		}
	}

	resync := service.NewResyncScheduler(probe, service.ResyncConfig{Interval: cfg.Realtime.ResyncInterval}, logger, catalog.Tables()...)
	if cfg.Realtime.ResyncInterval > 0 {
		resync.Start()
	}

	authCfg := middleware.AuthConfig{AdminKey: cfg.App.AdminKey}
	if auth != nil {
		authCfg.Authenticator = auth
	}

	routes := router.Config{
		Logger:     logger,
		Handler:    handler.New(probe, store, cfg.App.Name, cfg.App.Version),
		Lotteries:  handler.NewLotteryHandler(catalog.Lotteries),
		Products:   handler.NewProductHandler(catalog.Products),
		Orders:     handler.NewOrderHandler(catalog.Orders, catalog.Checkout),
		Clients:    handler.NewClientHandler(catalog.Clients),
		Visuals:    handler.NewVisualHandler(catalog.Visuals),
		Categories: handler.NewCategoryHandler(catalog.Categories),
		AdminHandler: handler.NewAdminHandler(handler.AdminConfig{
			Backup:     catalog.Backup,
			Status:     statusBook,
			Resync:     resync,
			Auth:       auth,
			Remote:     remote,
			Mirror:     store,
			RemoteType: cfg.Remote.Type,
			MirrorType: cfg.Mirror.Type,
		}),
		NotificationHandler: handler.NewNotificationHandler(feed),
		AdminMiddleware:     middleware.RequireAdmin(authCfg),
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	}
	if auth != nil {
		routes.AuthHandler = handler.NewAuthHandler(auth)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.New(routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Address()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	resync.Stop()
	if refresher != nil {
		refresher.Stop()
	}
	stop()

	log.Info().Dur("uptime", time.Since(start)).Msg("server stopped")
}
