package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/restaurant/internal/health"
	"github.com/vladislavdragonenkov/restaurant/internal/httpapi"
	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
	"github.com/vladislavdragonenkov/restaurant/internal/service/orders"
	"github.com/vladislavdragonenkov/restaurant/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run поднимает HTTP API заказов и ops-сервер и блокируется до отмены ctx или падения сервера.
// При отмене ctx возвращает ctx.Err() после корректной остановки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	storage, err := initStorage(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	publisher, brokerCheck := initEventPublisher(cfg, logger.WithField("layer", "events"))
	defer closePublisher(publisher, logger)

	orderService := orders.NewService(storage.repo,
		orders.WithPublisher(publisher),
		orders.WithMetrics(metrics.NewOrderMetrics()),
	)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Service: orderService,
		Logger:  log.WithField("component", "http"),
		Metrics: metrics.NewHTTPMetrics(),
	})

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", storage.ping))
	if brokerCheck != nil {
		healthHandler.RegisterChecker("events", brokerCheck)
	}

	if cfg.MetricsAddr != "" {
		metricsSrv := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)
		defer shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
	}

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}

	apiSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", lis.Addr())
		errCh <- apiSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http api server: %w", err)
	}
}

// startMetricsServer запускает ops-сервер: /metrics, /healthz, /livez, /readyz.
func startMetricsServer(addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер, дожидаясь активных запросов не дольше timeout.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown with error")
	}
}
