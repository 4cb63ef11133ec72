package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careslot/appointment-booking/internal/booking"
	"github.com/careslot/appointment-booking/internal/config"
	"github.com/careslot/appointment-booking/internal/db"
	redisclient "github.com/careslot/appointment-booking/internal/redis"
)

// The completion worker sweeps confirmed appointments whose end time
// has passed and marks them completed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	log := newLogger(cfg.Env).With().Str("service", "completion-worker").Logger()
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("starting up")

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

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, cfg, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping completion worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompleteFinished(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("completion run error")
		return
	}
	log.Info().Int("completed", n).Dur("took", time.Since(start)).Msg("completion run finished")
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
