package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/rooms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RoomHandler struct {
	service rooms.RoomUseCase
	log     logrus.FieldLogger
}

func NewRoomHandler(service rooms.RoomUseCase, log logrus.FieldLogger) *RoomHandler {
	return &RoomHandler{service: service, log: log}
}

func (h *RoomHandler) Register(router *gin.RouterGroup) {
	router.GET("/rooms", h.list)
	router.GET("/rooms/:id", h.get)
	router.GET("/availability", h.available)
	router.GET("/availability/quantity", h.quantity)
}

func (h *RoomHandler) list(c *gin.Context) {
	list, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toRoomResponses(list))
}

func (h *RoomHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	room, err := h.service.GetRoom(c.Request.Context(), id)
	if err == nil && !room.Active {
		err = domain.ErrRoomNotFound
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(*room))
}

type stayQuery struct {
	checkIn  time.Time
	checkOut time.Time
	guests   int
}

// parseDateRange reads two YYYY-MM-DD query parameters.
func parseDateRange(c *gin.Context, fromKey, toKey string) (time.Time, time.Time, bool) {
	v := domain.NewValidationError()
	from, err := domain.ParseNight(c.Query(fromKey))
	if err != nil {
		v.Add(fromKey, "must be a date in YYYY-MM-DD format")
	}
	to, err := domain.ParseNight(c.Query(toKey))
	if err != nil {
		v.Add(toKey, "must be a date in YYYY-MM-DD format")
	}
	if !v.Empty() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: v.Fields()})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseStay(c *gin.Context) (stayQuery, bool) {
	checkIn, checkOut, ok := parseDateRange(c, "check_in", "check_out")
	if !ok {
		return stayQuery{}, false
	}
	q := stayQuery{checkIn: checkIn, checkOut: checkOut}
	if raw := c.Query("guests"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "guests", "must be a positive integer")
			return stayQuery{}, false
		}
		q.guests = n
	}
	return q, true
}

func (h *RoomHandler) available(c *gin.Context) {
	q, ok := parseStay(c)
	if !ok {
		return
	}
	list, err := h.service.SearchAvailable(c.Request.Context(), q.checkIn, q.checkOut, q.guests)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"check_in":  q.checkIn.Format(domain.DateLayout),
		"check_out": q.checkOut.Format(domain.DateLayout),
		"nights":    domain.NightCount(q.checkIn, q.checkOut),
		"rooms":     toRoomResponses(list),
	})
}

func (h *RoomHandler) quantity(c *gin.Context) {
	q, ok := parseStay(c)
	if !ok {
		return
	}
	list, err := h.service.SearchWithQuantity(c.Request.Context(), q.checkIn, q.checkOut, q.guests)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]roomQuantityResponse, 0, len(list))
	for _, rq := range list {
		out = append(out, roomQuantityResponse{roomResponse: toRoomResponse(rq.Room), Quantity: rq.Quantity})
	}
	c.JSON(http.StatusOK, gin.H{
		"check_in":  q.checkIn.Format(domain.DateLayout),
		"check_out": q.checkOut.Format(domain.DateLayout),
		"nights":    domain.NightCount(q.checkIn, q.checkOut),
		"rooms":     out,
	})
}
