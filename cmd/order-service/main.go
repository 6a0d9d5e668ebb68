package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/app"
	"github.com/vladislavdragonenkov/restaurant/internal/version"
)

const (
	envLogLevel  = "RESTAURANT_LOG_LEVEL"
	envLogFormat = "RESTAURANT_LOG_FORMAT"

	envAPIHost         = "RESTAURANT_API_HOST"
	envMetricsAddr     = "RESTAURANT_METRICS_ADDR"
	envStorageDriver   = "RESTAURANT_STORAGE_DRIVER"
	envShutdownTimeout = "RESTAURANT_SHUTDOWN_TIMEOUT"

	envDBDSN            = "RESTAURANT_DB_DSN"
	envDBHost           = "RESTAURANT_DB_HOST"
	envDBPort           = "RESTAURANT_DB_PORT"
	envDBDatabase       = "RESTAURANT_DB_DATABASE"
	envDBUser           = "RESTAURANT_DB_USER"
	envDBPassword       = "RESTAURANT_DB_PASSWORD"
	envDBMaxConnections = "RESTAURANT_DB_MAX_CONNECTIONS"
	envDBAutoMigrate    = "RESTAURANT_DB_AUTO_MIGRATE"

	envEventsDriver     = "RESTAURANT_EVENTS_DRIVER"
	envKafkaBrokers     = "RESTAURANT_KAFKA_BROKERS"
	envKafkaTopic       = "RESTAURANT_KAFKA_TOPIC"
	envRabbitMQURL      = "RESTAURANT_RABBITMQ_URL"
	envRabbitMQExchange = "RESTAURANT_RABBITMQ_EXCHANGE"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) []string {
	var warnings []string

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if v, ok := lookupTrimmed(lookup, envLogFormat); ok && strings.EqualFold(v, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.SetLevel(log.InfoLevel)
	if v, ok := lookupTrimmed(lookup, envLogLevel); ok {
		level, err := log.ParseLevel(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", envLogLevel, v, err))
		} else {
			log.SetLevel(level)
		}
	}

	return warnings
}

// readConfigFromEnv формирует конфигурацию: переменная окружения > значение по умолчанию.
// Некорректные значения не валят старт, а оставляют default и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	if v, ok := lookupTrimmed(lookup, envAPIHost); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envShutdownTimeout); ok {
		if d, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envShutdownTimeout, v, err)
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if v, ok := lookupTrimmed(lookup, envDBDSN); ok {
		cfg.DB.DSN = v
	}
	if v, ok := lookupTrimmed(lookup, envDBHost); ok {
		cfg.DB.Host = v
	}
	if v, ok := lookupTrimmed(lookup, envDBPort); ok {
		if port, err := parseInt(v, func(p int) bool { return p > 0 && p <= 65535 }, "must be in 1..65535"); err != nil {
			warn(envDBPort, v, err)
		} else {
			cfg.DB.Port = port
		}
	}
	if v, ok := lookupTrimmed(lookup, envDBDatabase); ok {
		cfg.DB.Database = v
	}
	if v, ok := lookupTrimmed(lookup, envDBUser); ok {
		cfg.DB.User = v
	}
	if v, ok := lookup(envDBPassword); ok && v != "" {
		cfg.DB.Password = v
	}
	if v, ok := lookupTrimmed(lookup, envDBMaxConnections); ok {
		if n, err := parseInt(v, func(n int) bool { return n > 0 && n <= 1024 }, "must be in 1..1024"); err != nil {
			warn(envDBMaxConnections, v, err)
		} else {
			cfg.DB.MaxConnections = int32(n)
		}
	}
	if v, ok := lookupTrimmed(lookup, envDBAutoMigrate); ok {
		if b, err := parseBool(v); err != nil {
			warn(envDBAutoMigrate, v, err)
		} else {
			cfg.DB.AutoMigrate = b
		}
	}

	if v, ok := lookupTrimmed(lookup, envEventsDriver); ok {
		cfg.EventsDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envKafkaTopic); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := lookupTrimmed(lookup, envRabbitMQURL); ok {
		cfg.RabbitMQURL = v
	}
	if v, ok := lookupTrimmed(lookup, envRabbitMQExchange); ok {
		cfg.RabbitMQExchange = v
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func main() {
	for _, w := range setupLogger(os.LookupEnv) {
		log.Warn(w)
	}

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"events_driver":  cfg.EventsDriver,
		"version":        version.GetVersion(),
	}).Info("запускаем restaurant order service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("restaurant order service остановлен")
}
