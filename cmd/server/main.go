package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/auth-session-service/internal/auth"
	"github.com/iliyamo/auth-session-service/internal/config"   // Internal config loader
	"github.com/iliyamo/auth-session-service/internal/database" // MySQL connection and schema
	"github.com/iliyamo/auth-session-service/internal/handler"
	"github.com/iliyamo/auth-session-service/internal/logging"
	"github.com/iliyamo/auth-session-service/internal/queue"
	"github.com/iliyamo/auth-session-service/internal/ratelimit"
	"github.com/iliyamo/auth-session-service/internal/repository"
	"github.com/iliyamo/auth-session-service/internal/router" // Internal router setup
	"github.com/iliyamo/auth-session-service/internal/service"
	"github.com/iliyamo/auth-session-service/internal/utils"
)

func main() {
	cfg, err := config.Load() // Load environment config
	log := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Credential store
	var users service.UserStore
	var tokens service.TokenStore
	var health []func(context.Context) error
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		users, tokens = mem, mem
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("schema bootstrap failed")
		}
		users, tokens = repository.NewUserRepo(db), repository.NewTokenRepo(db)
		health = append(health, db.PingContext)
	}

	// Rate limiter: Redis when reachable, otherwise process-local.
	rlCfg := config.LoadRateLimitConfig()
	var limiter ratelimit.Limiter
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, nil)
		health = append(health, func(ctx context.Context) error { return redisPing(ctx, rdb) })
		log.Info().Msg("rate limiter: redis")
	} else {
		limiter = ratelimit.NewMemoryLimiter(nil)
		log.Info().Msg("rate limiter: in-memory")
	}

	// Audit events
	var events queue.Publisher = queue.NoopPublisher{}
	if cfg.Events.Enabled {
		events = queue.NewAMQPPublisher(cfg.Events.URL, log)
		if cfg.Events.ConsumerEnabled {
			go func() {
				if err := queue.StartAuditConsumer(ctx, cfg.Events.URL, cfg.Events.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("audit consumer stopped")
				}
			}()
		}
	}

	issuer := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
	})
	sessions := service.NewSessionService(service.Config{
		Users:  users,
		Tokens: tokens,
		Hasher: utils.NewBcryptHasher(cfg.BcryptCost),
		Issuer: issuer,
		Log:    log,
		Events: events,
	})
	go sessions.RunSweeper(ctx, cfg.SweepInterval)

	e := router.New(handler.NewAuthHandler(sessions), router.Options{
		Tokens:      issuer,
		Limiter:     limiter,
		RateLimit:   rlCfg,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
		Health:      health,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdown(e.Shutdown, sessions, log)
}

func shutdown(stopServer func(context.Context) error, sessions *service.SessionService, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := stopServer(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	sessions.Wait()
}

func redisPing(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
