package api

import (
	"net/http"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BookingHandler struct {
	service     booking.BookingUseCase
	maxAttempts int
	log         logrus.FieldLogger
}

type createBookingRequest struct {
	RoomID          int64  `json:"room_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
	GroupID         string `json:"group_id"`
}

type guestBookingRequest struct {
	BookingNumber string `json:"booking_number"`
	Email         string `json:"email"`
}

type unavailableResponse struct {
	Error string `json:"error"`
	Night string `json:"night"`
}

// NewBookingHandler serves guest booking endpoints. A create request that
// loses a serialization conflict is retried up to maxAttempts times.
func NewBookingHandler(service booking.BookingUseCase, maxAttempts int, log logrus.FieldLogger) *BookingHandler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &BookingHandler{service: service, maxAttempts: maxAttempts, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.POST("/bookings/lookup", h.lookup)
	router.POST("/bookings/cancel", h.cancel)
}

func (req createBookingRequest) toInput() (booking.CreateBookingInput, error) {
	v := domain.NewValidationError()
	checkIn, err := domain.ParseNight(req.CheckIn)
	if err != nil {
		v.Add("check_in", "must be a date in YYYY-MM-DD format")
	}
	checkOut, err := domain.ParseNight(req.CheckOut)
	if err != nil {
		v.Add("check_out", "must be a date in YYYY-MM-DD format")
	}
	if !v.Empty() {
		return booking.CreateBookingInput{}, v
	}
	return booking.CreateBookingInput{
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		GroupID:         req.GroupID,
	}, nil
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	var result booking.CreateResult
	for attempt := 1; ; attempt++ {
		result, err = h.service.CreateBooking(c.Request.Context(), input)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		if result.Outcome != booking.OutcomeConflict || attempt >= h.maxAttempts {
			break
		}
		h.log.WithFields(logrus.Fields{"room_id": input.RoomID, "attempt": attempt}).Debug("retrying booking after conflict")
	}

	switch result.Outcome {
	case booking.OutcomeCreated:
		c.JSON(http.StatusCreated, toBookingResponse(*result.Booking))
	case booking.OutcomeUnavailable:
		c.JSON(http.StatusConflict, unavailableResponse{
			Error: domain.ErrRoomNotAvailable.Error(),
			Night: result.UnavailableNight.Format(domain.DateLayout),
		})
	default:
		writeError(c, h.log, result.Err())
	}
}

func (h *BookingHandler) lookup(c *gin.Context) {
	var req guestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	bookings, err := h.service.LookupBooking(c.Request.Context(), req.BookingNumber, req.Email)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": toBookingResponses(bookings)})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req guestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", "malformed JSON")
		return
	}
	b, err := h.service.CancelGuestBooking(c.Request.Context(), req.BookingNumber, req.Email)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(*b))
}
