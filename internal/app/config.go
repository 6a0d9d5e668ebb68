package app

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// StorageDriverPostgres хранит заказы в PostgreSQL.
	StorageDriverPostgres = "postgres"
	// StorageDriverMemory хранит заказы в памяти процесса (локальная разработка, тесты).
	StorageDriverMemory = "memory"

	// EventsDriverNone отключает публикацию событий.
	EventsDriverNone = "none"
	// EventsDriverKafka публикует события в Kafka.
	EventsDriverKafka = "kafka"
	// EventsDriverRabbitMQ публикует события в RabbitMQ.
	EventsDriverRabbitMQ = "rabbitmq"
)

// DBConfig описывает подключение к PostgreSQL.
// DSN, если задан, имеет приоритет над отдельными полями.
type DBConfig struct {
	DSN            string
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	MaxConnections int32
	AutoMigrate    bool
}

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr         string
	MetricsAddr      string
	StorageDriver    string
	DB               DBConfig
	EventsDriver     string
	KafkaBrokers     string // через запятую
	KafkaTopic       string
	RabbitMQURL      string
	RabbitMQExchange string
	ShutdownTimeout  time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      "0.0.0.0:8080",
		MetricsAddr:   ":9090",
		StorageDriver: StorageDriverPostgres,
		DB: DBConfig{
			Port:           5432,
			MaxConnections: 8,
			AutoMigrate:    true,
		},
		EventsDriver:     EventsDriverNone,
		KafkaTopic:       "restaurant.order.events",
		RabbitMQExchange: "restaurant.orders",
		ShutdownTimeout:  5 * time.Second,
	}
}

// Validate проверяет конфигурацию до старта, чтобы сервис не поднимался наполовину.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if err := c.DB.validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.EventsDriver {
	case "", EventsDriverNone:
	case EventsDriverKafka:
		if len(c.KafkaBrokerList()) == 0 {
			errs = append(errs, errors.New("kafka brokers are required for kafka events driver"))
		}
	case EventsDriverRabbitMQ:
		if strings.TrimSpace(c.RabbitMQURL) == "" {
			errs = append(errs, errors.New("rabbitmq url is required for rabbitmq events driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported events driver %q", c.EventsDriver))
	}

	return errors.Join(errs...)
}

// KafkaBrokerList разбирает список брокеров, пропуская пустые элементы.
func (c Config) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (d DBConfig) validate() error {
	if d.MaxConnections <= 0 {
		return errors.New("db max connections must be positive")
	}
	if d.DSN != "" {
		return nil
	}

	var missing []string
	if d.Host == "" {
		missing = append(missing, "host")
	}
	if d.Database == "" {
		missing = append(missing, "database")
	}
	if d.User == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("postgres storage requires a DSN or db %s", strings.Join(missing, ", "))
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("db port %d is out of range", d.Port)
	}
	return nil
}

// ConnString возвращает DSN: явно заданный или собранный из отдельных полей.
func (d DBConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	return u.String()
}
