package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

// OrderService — операции над заказами, которые нужны HTTP слою.
type OrderService interface {
	List(ctx context.Context, tableNumber *int32) ([]domain.Order, error)
	Get(ctx context.Context, id int32) (domain.Order, error)
	Create(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error)
	Delete(ctx context.Context, id int32) error
}

// createOrderRequest — тело POST /orders/. Указатели отличают отсутствующее поле от нулевого значения.
type createOrderRequest struct {
	TableNumber *int32  `json:"table_number" binding:"required"`
	ItemName    *string `json:"item_name" binding:"required"`
}

type orderHandler struct {
	svc    OrderService
	logger *log.Entry
}

func (h *orderHandler) list(c *gin.Context) {
	var filter *int32
	if raw, ok := c.GetQuery("table_number"); ok {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			writeBadRequest(c, "table_number must be an integer")
			return
		}
		table := int32(n)
		filter = &table
	}

	orders, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *orderHandler) get(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandler) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), domain.OrderCreateRequest{
		TableNumber: *req.TableNumber,
		ItemName:    *req.ItemName,
	})
	if err != nil {
		writeStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *orderHandler) delete(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeStoreError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseOrderID разбирает :id. Нечисловой id не может совпасть ни с одной записью, поэтому 404.
func parseOrderID(c *gin.Context) (int32, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Details: detailsNotFound})
		return 0, false
	}
	return int32(id), true
}
