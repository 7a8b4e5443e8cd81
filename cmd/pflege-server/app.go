package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/pflege/pflege/internal/config"
	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/dashboard"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/domain/task"
	"github.com/pflege/pflege/internal/domain/transfer"
	"github.com/pflege/pflege/internal/domain/vitals"
	"github.com/pflege/pflege/internal/platform/auth"
	"github.com/pflege/pflege/internal/platform/cache"
	"github.com/pflege/pflege/internal/platform/db"
	"github.com/pflege/pflege/internal/platform/events"
	"github.com/pflege/pflege/internal/platform/memstore"
	"github.com/pflege/pflege/internal/platform/middleware"
	"github.com/pflege/pflege/internal/platform/webhook"
)

const version = "0.1.0"

// repositories is the storage backing one app, either Postgres or memory.
type repositories struct {
	mitarbeiter   identity.MitarbeiterRepository
	patients      identity.PatientRepository
	admins        identity.AdminRepository
	assignments   assignment.Repository
	vitals        vitals.Repository
	notifications notification.Repository
	transfers     transfer.Repository
	tasks         task.TaskRepository
}

func pgRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		mitarbeiter:   identity.NewMitarbeiterRepoPG(pool),
		patients:      identity.NewPatientRepoPG(pool),
		admins:        identity.NewAdminRepoPG(pool),
		assignments:   assignment.NewRepoPG(pool),
		vitals:        vitals.NewRepoPG(pool),
		notifications: notification.NewRepoPG(pool),
		transfers:     transfer.NewRepoPG(pool),
		tasks:         task.NewTaskRepoPG(pool),
	}
}

func memRepositories(store *memstore.Store) repositories {
	return repositories{
		mitarbeiter:   store.Mitarbeiter(),
		patients:      store.Patients(),
		admins:        store.Admins(),
		assignments:   store.Assignments(),
		vitals:        store.Vitals(),
		notifications: store.Notifications(),
		transfers:     store.Transfers(),
		tasks:         store.Tasks(),
	}
}

// app holds the wired services. The CLI commands and the HTTP server share it.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	tokens *auth.TokenIssuer

	identity      *identity.Service
	assignments   *assignment.Service
	vitals        *vitals.Service
	notifications *notification.Service
	transfers     *transfer.Service
	tasks         *task.Service
	dashboard     *dashboard.Service

	closers []io.Closer
}

// newApp connects the storage selected by STORAGE_DRIVER and the optional
// Redis, Kafka and webhook backends.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var repos repositories
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		repos = memRepositories(memstore.New())
		logger.Warn().Msg("using in-memory storage, data is lost on exit")
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
			Schema:   cfg.DBSchema,
		})
		if err != nil {
			return nil, err
		}
		a.pool = pool
		repos = pgRepositories(pool)
		logger.Info().Msg("connected to database")
	}

	key, random, err := resolveSigningKey(cfg.JWTSigningKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	if random {
		logger.Warn().Msg("JWT_SIGNING_KEY not set, tokens are signed with a random key and die with the process")
	}
	a.tokens = auth.NewTokenIssuer(key, cfg.TokenTTL)

	var (
		publisher events.Publisher = events.Nop{}
		store     cache.Cache      = cache.Nop{}
		alerts    webhook.Notifier = webhook.Nop{}
	)
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, k)
		publisher = k
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
	}
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, r)
		store = r
		logger.Info().Dur("ttl", cfg.CacheTTL).Msg("redis cache enabled")
	}
	if cfg.AlertWebhookURL != "" {
		s, err := webhook.NewSender(cfg.AlertWebhookURL, cfg.AlertWebhookSecret)
		if err != nil {
			a.Close()
			return nil, err
		}
		alerts = s
		logger.Info().Str("url", cfg.AlertWebhookURL).Msg("critical vital alerts enabled")
	}

	a.identity = identity.NewService(repos.mitarbeiter, repos.patients, repos.admins, a.tokens)

	a.assignments = assignment.NewService(repos.assignments, cfg.CareCapacity, logger)
	a.assignments.SetPublisher(publisher)
	a.assignments.SetCache(store)
	if a.pool != nil {
		a.assignments.SetTransactor(db.NewTxRunner(a.pool))
	}

	a.notifications = notification.NewService(repos.notifications)

	a.vitals = vitals.NewService(repos.vitals, a.assignments, a.identity, a.notifications, logger)
	a.vitals.SetPublisher(publisher)
	a.vitals.SetAlerts(alerts)

	a.transfers = transfer.NewService(repos.transfers, a.identity, a.assignments, logger)
	a.transfers.SetPublisher(publisher)
	a.transfers.SetCache(store)
	if a.pool != nil {
		a.transfers.SetTransactor(db.NewTxRunner(a.pool))
	}

	a.tasks = task.NewService(repos.tasks)

	a.dashboard = dashboard.NewService(dashboard.Sources{
		People:        a.identity,
		Assignments:   a.assignments,
		Vitals:        a.vitals,
		Tasks:         a.tasks,
		Notifications: a.notifications,
		Transfers:     a.transfers,
	}, logger)
	a.dashboard.SetCache(store)

	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("close backend")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// routes builds the echo server with middleware, health checks and every
// domain handler under /api.
func (a *app) routes() *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(a.logger)

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/admin/statistics/export"))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"status":  "ok",
			"version": version,
			"storage": cfg.StorageDriver,
		})
	})
	var target db.Pinger = db.InProcess{}
	if a.pool != nil {
		target = a.pool
	}
	e.GET("/health/db", db.HealthHandler(cfg.StorageDriver, target))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(auth.Middleware(auth.Config{Issuer: a.tokens, DevMode: cfg.IsDev()}))

	identity.NewHandler(a.identity).RegisterRoutes(api)
	assignment.NewHandler(a.assignments).RegisterRoutes(api)
	vitals.NewHandler(a.vitals).RegisterRoutes(api)
	notification.NewHandler(a.notifications).RegisterRoutes(api)
	transfer.NewHandler(a.transfers).RegisterRoutes(api)
	task.NewHandler(a.tasks).RegisterRoutes(api)
	dashboard.NewHandler(a.dashboard).RegisterRoutes(api)

	return e
}

// resolveSigningKey decodes the hex JWT_SIGNING_KEY or generates a random
// 32 byte key. The second return value is true when the key is random.
func resolveSigningKey(envValue string) ([]byte, bool, error) {
	if envValue != "" {
		decoded, err := hex.DecodeString(envValue)
		if err != nil {
			return nil, false, fmt.Errorf("invalid JWT_SIGNING_KEY hex value: %w", err)
		}
		return decoded, false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate random signing key: %w", err)
	}
	return key, true, nil
}
