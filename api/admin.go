package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/rooms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler is the back office surface. It is mounted under /admin and
// expects whatever sits in front of it to authenticate staff.
type AdminHandler struct {
	bookings booking.BookingUseCase
	rooms    rooms.RoomUseCase
	log      logrus.FieldLogger
}

type updateBookingRequest struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

type overrideRequest struct {
	Date           string `json:"date"`
	AvailableUnits *int   `json:"available_units"`
}

type blockRequest struct {
	Date         string `json:"date"`
	UnitsBlocked *int   `json:"units_blocked"`
	Reason       string `json:"reason"`
}

func NewAdminHandler(bookings booking.BookingUseCase, rooms rooms.RoomUseCase, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{bookings: bookings, rooms: rooms, log: log}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.listBookings)
	router.GET("/bookings/:id", h.getBooking)
	router.PATCH("/bookings/:id", h.updateBooking)
	router.POST("/bookings/reconcile", h.reconcile)

	router.POST("/rooms", h.createRoom)
	router.PUT("/rooms/:id", h.updateRoom)
	router.DELETE("/rooms/:id", h.deleteRoom)
	router.PUT("/rooms/:id/overrides", h.setOverride)
	router.DELETE("/rooms/:id/overrides/:date", h.deleteOverride)
	router.PUT("/rooms/:id/blocks", h.setBlock)
	router.DELETE("/rooms/:id/blocks/:date", h.deleteBlock)
	router.GET("/rooms/:id/calendar", h.calendar)
}

func (h *AdminHandler) listBookings(c *gin.Context) {
	filter := repository.BookingFilter{Status: domain.BookingStatus(c.Query("status"))}
	if raw := c.Query("room_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "room_id", "invalid id")
			return
		}
		filter.RoomID = id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "limit", "must be a positive integer")
			return
		}
		filter.Limit = n
	}

	list, err := h.bookings.ListBookings(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]adminBookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toAdminBookingResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) getBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toAdminBookingResponse(*b))
}

func (h *AdminHandler) updateBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	input := booking.UpdateBookingInput{AdminNotes: req.AdminNotes}
	if req.Status != nil {
		status := domain.BookingStatus(*req.Status)
		input.Status = &status
	}

	b, err := h.bookings.UpdateBooking(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toAdminBookingResponse(*b))
}

func (h *AdminHandler) reconcile(c *gin.Context) {
	n, err := h.bookings.ReconcileGroups(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *AdminHandler) createRoom(c *gin.Context) {
	var input rooms.RoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	room, err := h.rooms.CreateRoom(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toRoomResponse(*room))
}

func (h *AdminHandler) updateRoom(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input rooms.RoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	room, err := h.rooms.UpdateRoom(c.Request.Context(), id, input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toRoomResponse(*room))
}

func (h *AdminHandler) deleteRoom(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.rooms.DeleteRoom(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) setOverride(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	date, err := domain.ParseNight(req.Date)
	if err != nil {
		badRequest(c, "date", "must be a date in YYYY-MM-DD format")
		return
	}
	if req.AvailableUnits == nil {
		badRequest(c, "available_units", "is required")
		return
	}

	o, err := h.rooms.SetOverride(c.Request.Context(), id, date, *req.AvailableUnits)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":         o.RoomID,
		"date":            o.Date.Format(domain.DateLayout),
		"available_units": o.AvailableUnits,
	})
}

func (h *AdminHandler) deleteOverride(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	date, err := domain.ParseNight(c.Param("date"))
	if err != nil {
		badRequest(c, "date", "must be a date in YYYY-MM-DD format")
		return
	}
	if err := h.rooms.DeleteOverride(c.Request.Context(), id, date); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) setBlock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	date, err := domain.ParseNight(req.Date)
	if err != nil {
		badRequest(c, "date", "must be a date in YYYY-MM-DD format")
		return
	}
	if req.UnitsBlocked == nil {
		badRequest(c, "units_blocked", "is required")
		return
	}

	b, err := h.rooms.SetBlockedDate(c.Request.Context(), id, date, *req.UnitsBlocked, req.Reason)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":       b.RoomID,
		"date":          b.Date.Format(domain.DateLayout),
		"units_blocked": b.UnitsBlocked,
		"reason":        b.Reason,
	})
}

func (h *AdminHandler) deleteBlock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	date, err := domain.ParseNight(c.Param("date"))
	if err != nil {
		badRequest(c, "date", "must be a date in YYYY-MM-DD format")
		return
	}
	if err := h.rooms.DeleteBlockedDate(c.Request.Context(), id, date); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) calendar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	from, to, ok := parseDateRange(c, "from", "to")
	if !ok {
		return
	}
	nights, err := h.rooms.Calendar(c.Request.Context(), id, from, to)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]gin.H, 0, len(nights))
	for _, n := range nights {
		out = append(out, gin.H{
			"date":      n.Date.Format(domain.DateLayout),
			"capacity":  n.Capacity,
			"booked":    n.Booked,
			"blocked":   n.Blocked,
			"available": n.Available,
			"override":  n.Override,
		})
	}
	c.JSON(http.StatusOK, gin.H{"room_id": id, "nights": out})
}
