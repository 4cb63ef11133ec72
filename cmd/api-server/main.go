package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careslot/appointment-booking/internal/api"
	"github.com/careslot/appointment-booking/internal/booking"
	"github.com/careslot/appointment-booking/internal/config"
	"github.com/careslot/appointment-booking/internal/db"
	redisclient "github.com/careslot/appointment-booking/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	log := newLogger(cfg.Env).With().Str("service", "api-server").Logger()
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, cfg, log)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Log:     log,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("api-server stopped")
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
