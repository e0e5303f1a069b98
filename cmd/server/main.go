package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/roomsync/internal/app"
	"github.com/sharetube/roomsync/internal/controller"
	"github.com/sharetube/roomsync/internal/service/registry"
	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/internal/service/session"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to sign session tokens",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
	redisDB = configVar[int]{
		envKey:  "REDIS_DB",
		flagKey: "redis-db",
		usage:   "Redis database number",
	}
	databaseDriver = configVar[string]{
		envKey:       "DATABASE_DRIVER",
		flagKey:      "database-driver",
		defaultValue: "sqlite",
		usage:        "Backing store driver (postgres or sqlite)",
	}
	databaseDSN = configVar[string]{
		envKey:       "DATABASE_DSN",
		flagKey:      "database-dsn",
		defaultValue: "roomsync.db",
		usage:        "Backing store DSN",
	}
	tickInterval = configVar[time.Duration]{
		envKey:       "ROOM_TICK_INTERVAL",
		flagKey:      "tick-interval",
		defaultValue: registry.DefaultTickInterval,
		usage:        "Interval between room updates",
	}
	staleAfter = configVar[time.Duration]{
		envKey:       "ROOM_STALE_AFTER",
		flagKey:      "stale-after",
		defaultValue: room.DefaultStaleAfter,
		usage:        "How long an empty room stays loaded",
	}
	sessionTTL = configVar[time.Duration]{
		envKey:       "SESSION_TTL",
		flagKey:      "session-ttl",
		defaultValue: session.DefaultTTL,
		usage:        "Lifetime of issued session tokens",
	}
	readTimeout = configVar[time.Duration]{
		envKey:       "WS_READ_TIMEOUT",
		flagKey:      "ws-read-timeout",
		defaultValue: controller.DefaultReadTimeout,
		usage:        "Websocket connections silent for longer are closed",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Int(redisDB.flagKey, redisDB.defaultValue, redisDB.usage)
	pflag.String(databaseDriver.flagKey, databaseDriver.defaultValue, databaseDriver.usage)
	pflag.String(databaseDSN.flagKey, databaseDSN.defaultValue, databaseDSN.usage)
	pflag.Duration(tickInterval.flagKey, tickInterval.defaultValue, tickInterval.usage)
	pflag.Duration(staleAfter.flagKey, staleAfter.defaultValue, staleAfter.usage)
	pflag.Duration(sessionTTL.flagKey, sessionTTL.defaultValue, sessionTTL.usage)
	pflag.Duration(readTimeout.flagKey, readTimeout.defaultValue, readTimeout.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	port.bind()
	host.bind()
	logLevel.bind()
	redisPort.bind()
	redisHost.bind()
	redisPassword.bind()
	redisDB.bind()
	databaseDriver.bind()
	databaseDSN.bind()
	tickInterval.bind()
	staleAfter.bind()
	sessionTTL.bind()
	readTimeout.bind()

	config := &app.AppConfig{
		Secret:         viper.GetString(secret.flagKey),
		Host:           viper.GetString(host.flagKey),
		Port:           viper.GetInt(port.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		RedisHost:      viper.GetString(redisHost.flagKey),
		RedisPort:      viper.GetInt(redisPort.flagKey),
		RedisPassword:  viper.GetString(redisPassword.flagKey),
		RedisDB:        viper.GetInt(redisDB.flagKey),
		DatabaseDriver: viper.GetString(databaseDriver.flagKey),
		DatabaseDSN:    viper.GetString(databaseDSN.flagKey),
		TickInterval:   viper.GetDuration(tickInterval.flagKey),
		StaleAfter:     viper.GetDuration(staleAfter.flagKey),
		SessionTTL:     viper.GetDuration(sessionTTL.flagKey),
		ReadTimeout:    viper.GetDuration(readTimeout.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
