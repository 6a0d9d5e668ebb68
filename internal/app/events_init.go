package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/health"
	"github.com/vladislavdragonenkov/restaurant/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/restaurant/internal/messaging/rabbitmq"
)

// initEventPublisher подключает брокер событий. Ошибка подключения не останавливает сервис:
// события best-effort, поэтому продолжаем без публикации и показываем degraded в /healthz.
func initEventPublisher(cfg Config, logger *log.Entry) (domain.EventPublisher, health.Checker) {
	switch cfg.EventsDriver {
	case EventsDriverKafka:
		brokers := cfg.KafkaBrokerList()
		producer, err := kafka.NewProducer(brokers, cfg.KafkaTopic)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without events")
			return nil, unavailableBroker("kafka", err)
		}
		logger.WithFields(log.Fields{"brokers": brokers, "topic": cfg.KafkaTopic}).Info("kafka producer initialized")
		return producer, nil

	case EventsDriverRabbitMQ:
		publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to rabbitmq, continuing without events")
			return nil, unavailableBroker("rabbitmq", err)
		}
		logger.WithField("exchange", cfg.RabbitMQExchange).Info("rabbitmq publisher initialized")
		return publisher, health.NewFuncChecker("rabbitmq", publisher.Ping)

	default:
		return nil, nil
	}
}

type brokerChecker struct {
	name string
	err  error
}

func unavailableBroker(name string, err error) health.Checker {
	return brokerChecker{name: name, err: err}
}

// Check сообщает degraded: заказы обслуживаются, события не публикуются.
func (b brokerChecker) Check(context.Context) health.Check {
	return health.Check{Name: b.name, Status: health.StatusDegraded, Message: b.err.Error()}
}

func closePublisher(publisher domain.EventPublisher, logger *log.Entry) {
	if publisher == nil {
		return
	}
	if err := publisher.Close(); err != nil {
		logger.WithError(err).Warn("failed to close event publisher")
		return
	}
	logger.Info("event publisher closed")
}
