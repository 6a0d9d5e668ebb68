package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

const (
	detailsNotFound       = "Record Not found"
	detailsInternalServer = "Internal Server Error"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Details string `json:"details"`
}

// writeStoreError — единая политика отображения ошибок хранилища в HTTP ответ.
// Текст неклассифицированных ошибок клиенту не отдаётся, только в лог.
func writeStoreError(c *gin.Context, logger *log.Entry, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Details: detailsNotFound})
	case domain.KindConstraintViolation:
		details := err.Error()
		var cv *domain.ConstraintViolationError
		if errors.As(err, &cv) {
			details = cv.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Details: details})
	default:
		logger.WithError(err).WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(requestIDKey),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Details: detailsInternalServer})
	}
}

func writeBadRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Details: details})
}
