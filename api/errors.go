package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// writeError maps service errors onto HTTP statuses. Anything unexpected is
// logged and answered with a generic 500.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	if v := domain.AsValidationError(err); v != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: v.Fields()})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFoundOrUnauthorized):
		c.JSON(http.StatusNotFound, errorResponse{Error: domain.ErrNotFoundOrUnauthorized.Error()})
	case errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: domain.ErrRoomNotFound.Error()})
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: domain.ErrBookingNotFound.Error()})
	case errors.Is(err, domain.ErrRoomNotAvailable):
		c.JSON(http.StatusConflict, errorResponse{Error: domain.ErrRoomNotAvailable.Error()})
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConstraintViolation):
		log.WithError(err).WithField("path", c.FullPath()).Warn("constraint violation")
		c.JSON(http.StatusConflict, errorResponse{Error: domain.ErrConstraintViolation.Error()})
	case errors.Is(err, booking.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: booking.ErrConflict.Error() + ", please retry"})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{
		Error:  "validation failed",
		Fields: map[string][]string{field: {msg}},
	})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, param, "invalid id")
		return 0, false
	}
	return id, true
}
