package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"winshirt-sync/internal/cache"
	"winshirt-sync/internal/config"
	"winshirt-sync/internal/logging"
	"winshirt-sync/internal/mirror"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/realtime"
	"winshirt-sync/internal/repository"
)

// openRemote connects the Remote Data Service selected by REMOTE_DB_TYPE.
func openRemote(cfg *config.Config, logger zerolog.Logger) (repository.RemoteRepository, error) {
	log := logging.Component(logger, "remote")
	switch cfg.Remote.Type {
	case "mongodb", "mongo":
		return repository.NewMongoRemote(cfg.Remote.MongoURI, cfg.Remote.MongoDatabase, log)
	case "libsql", "turso":
		return repository.NewLibSQLRemote(cfg.Remote.LibSQLDSN(), log)
	case "memory":
		log.Warn().Msg("using in-memory remote, data is lost on restart")
		return repository.NewMemoryRemote(), nil
	case "postgres", "postgresql":
		return repository.NewPostgresRemote(cfg.Remote.PostgresDSN(), log)
	default:
		return nil, fmt.Errorf("unknown REMOTE_DB_TYPE %q", cfg.Remote.Type)
	}
}

// openMirror opens the Local Mirror Store selected by MIRROR_TYPE.
func openMirror(cfg *config.Config, logger zerolog.Logger) (mirror.Store, error) {
	log := logging.Component(logger, "mirror")
	switch cfg.Mirror.Type {
	case "redis":
		return mirror.NewRedisStore(mirror.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Mirror.KeyPrefix,
		}, log)
	case "memory":
		return mirror.NewMemoryStore(), nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Mirror.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create mirror directory: %w", err)
			}
		}
		return mirror.NewSQLiteStore(cfg.Mirror.Path, log)
	default:
		return nil, fmt.Errorf("unknown MIRROR_TYPE %q", cfg.Mirror.Type)
	}
}

// openCache returns the session cache: Redis when reachable, memory otherwise.
func openCache(cfg *config.Config, logger zerolog.Logger) cache.Cache {
	log := logging.Component(logger, "cache")
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, sessions kept in memory")
		return cache.NewMemoryCache()
	}
	return c
}

// openAccounts connects the MySQL account store. A nil repository disables
// the account routes.
func openAccounts(cfg *config.Config, logger zerolog.Logger) (*repository.MySQLAccountRepository, io.Closer) {
	log := logging.Component(logger, "accounts")
	db, err := sql.Open("mysql", cfg.AuthDB.DSN())
	if err != nil {
		log.Warn().Err(err).Msg("mysql connection failed, accounts disabled")
		return nil, nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Warn().Err(err).Msg("mysql ping failed, accounts disabled")
		db.Close()
		return nil, nil
	}

	repo := repository.NewMySQLAccountRepository(db, log)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("mysql schema setup failed, accounts disabled")
		db.Close()
		return nil, nil
	}
	log.Info().Msg("mysql account repository initialized")
	return repo, db
}

// openRealtime builds the change source selected by REALTIME_TYPE. A nil
// source leaves the mirror to the resync loop.
func openRealtime(cfg *config.Config, logger zerolog.Logger) (realtime.Source, error) {
	log := logging.Component(logger, "realtime")
	switch cfg.Realtime.Type {
	case "postgres":
		return realtime.NewPostgresSource(cfg.Remote.PostgresDSN(), repository.ChangeChannel, log)
	case "websocket":
		if cfg.Realtime.WebSocketURL == "" {
			return nil, fmt.Errorf("REALTIME_WS_URL is required for websocket realtime")
		}
		return realtime.NewWebSocketSource(cfg.Realtime.WebSocketURL, log), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown REALTIME_TYPE %q", cfg.Realtime.Type)
	}
}

// buildNotifier fans notifications out to the feed, the log and Telegram
// when a bot token is configured.
func buildNotifier(cfg *config.Config, feed *notify.Feed, logger zerolog.Logger) notify.Notifier {
	log := logging.Component(logger, "notify")
	sinks := notify.Multi{feed, notify.NewLogNotifier(log)}
	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramAdminChatID, log)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifier disabled")
		} else {
			sinks = append(sinks, tg)
		}
	}
	return sinks
}
