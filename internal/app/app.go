package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sharetube/roomsync/internal/controller"
	"github.com/sharetube/roomsync/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/roomsync/internal/repository/room/redis"
	storage "github.com/sharetube/roomsync/internal/repository/storage/gorm"
	"github.com/sharetube/roomsync/internal/service/metadata"
	"github.com/sharetube/roomsync/internal/service/registry"
	"github.com/sharetube/roomsync/internal/service/session"
	"github.com/sharetube/roomsync/internal/service/statistics"
	"github.com/sharetube/roomsync/pkg/ctxlogger"
	"github.com/sharetube/roomsync/pkg/redisclient"
	"github.com/sharetube/roomsync/pkg/ytvideodata"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Secret         string        `json:"-"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	LogLevel       string        `json:"log_level"`
	RedisHost      string        `json:"redis_host"`
	RedisPort      int           `json:"redis_port"`
	RedisPassword  string        `json:"-"`
	RedisDB        int           `json:"redis_db"`
	DatabaseDriver string        `json:"database_driver"`
	DatabaseDSN    string        `json:"-"`
	TickInterval   time.Duration `json:"tick_interval"`
	StaleAfter     time.Duration `json:"stale_after"`
	SessionTTL     time.Duration `json:"session_ttl"`
	ReadTimeout    time.Duration `json:"read_timeout"`
}

func (cfg *AppConfig) Validate() error {
	var errs []error
	if cfg.Secret == "" {
		errs = append(errs, errors.New("secret must be set"))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", cfg.Port))
	}
	if cfg.RedisPort < 1 || cfg.RedisPort > 65535 {
		errs = append(errs, fmt.Errorf("redis port %d is out of range", cfg.RedisPort))
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("database driver must be postgres or sqlite, got %q", cfg.DatabaseDriver))
	}
	if cfg.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn must be set"))
	}
	if cfg.TickInterval <= 0 {
		errs = append(errs, errors.New("tick interval must be greater than 0"))
	}
	if cfg.StaleAfter <= 0 {
		errs = append(errs, errors.New("stale after must be greater than 0"))
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func parseLogLevel(level string) (slog.Level, error) {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return logLevel, nil
}

func newLogger(level slog.Level) *slog.Logger {
	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}),
	}

	return slog.New(&h)
}

type app struct {
	server   *http.Server
	registry *registry.Registry
	logger   *slog.Logger
}

func newApp(cfg *AppConfig, logger *slog.Logger, rc *redis.Client, db *gorm.DB) *app {
	roomRepo := roomRedis.NewRepo(rc)
	storageRepo := storage.NewRepo(db)
	connectionRepo := inmemory.NewRepo(logger)
	sessionService := session.NewService(cfg.Secret, cfg.SessionTTL)
	statisticsService := statistics.NewService(roomRepo, logger)

	reg := registry.New(&registry.Params{
		Store:        roomRepo,
		Storage:      storageRepo,
		Sessions:     sessionService,
		Metadata:     metadata.NewService(ytvideodata.New()),
		Counters:     statisticsService,
		Disconnector: connectionRepo,
		Logger:       logger,
		Config: registry.Config{
			TickInterval: cfg.TickInterval,
			StaleAfter:   cfg.StaleAfter,
		},
	})

	controller := controller.NewController(&controller.Params{
		Registry:    reg,
		Sessions:    sessionService,
		SyncStates:  roomRepo,
		Connections: connectionRepo,
		Statistics:  statisticsService,
		Logger:      logger,
		ReadTimeout: cfg.ReadTimeout,
	})

	return &app{
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           controller.GetMux(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: reg,
		logger:   logger,
	}
}

// drain stops accepting requests and hands every local room back: definitions
// are flushed to the backing store and the shared store keys are removed so
// that other nodes can load them.
func (a *app) drain(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if err := a.registry.UnloadAll(ctx); err != nil {
		return fmt.Errorf("failed to unload rooms: %w", err)
	}

	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	db, err := storage.Open(&storage.Config{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		return fmt.Errorf("failed to open backing store: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	a := newApp(cfg, logger, rc, db)

	// the registry outlives the server so rooms can be drained after shutdown
	registryCtx, stopRegistry := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRegistry()

	if err := a.registry.Start(registryCtx); err != nil {
		return fmt.Errorf("failed to start registry: %w", err)
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(context.WithoutCancel(ctx))
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		select {
		case <-sig:
		case <-ctx.Done():
		}

		shutdownCtx, c := context.WithTimeout(context.WithoutCancel(serverCtx), shutdownTimeout)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		stopRegistry()
		if err := a.drain(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "failed to drain", "error", err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
