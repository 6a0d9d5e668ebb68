package httpapi

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/metrics"
)

//go:embed openapi.json
var openAPIDocument []byte

// RouterConfig содержит зависимости HTTP роутера.
type RouterConfig struct {
	Service OrderService
	Logger  *log.Entry
	Metrics *metrics.HTTPMetrics
}

// NewRouter регистрирует маршруты API заказов на новом gin.Engine.
//
//	GET    /orders/?table_number=N
//	POST   /orders/
//	GET    /orders/:id
//	DELETE /orders/:id
//	GET    /api-docs/openapi.json
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID())
	if cfg.Metrics != nil {
		router.Use(requestMetrics(cfg.Metrics))
	}
	router.Use(requestLogger(logger))

	h := &orderHandler{svc: cfg.Service, logger: logger}

	orders := router.Group("/orders")
	{
		orders.GET("/", h.list)
		orders.POST("/", h.create)
		orders.GET("/:id", h.get)
		orders.DELETE("/:id", h.delete)
	}

	router.GET("/api-docs/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})

	return router
}
