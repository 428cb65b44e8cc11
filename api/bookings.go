package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createPaymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.list)
	router.POST("/bookings", h.create)
	router.GET("/bookings/:id", h.get)
	router.POST("/bookings/:id/cancel", h.cancel)
	router.POST("/bookings/:id/payments", h.createPayment)
	router.GET("/payments/:id", h.paymentStatus)
	router.PUT("/payments/:id/mark-paid", h.markPaid)
	router.GET("/fields/:id/availability", h.availability)
}

// list picks the scope from the query: userId, branchId, or everything.
func (h *BookingHandler) list(c *gin.Context) {
	ctx := c.Request.Context()
	var bookings []domain.Booking

	switch {
	case c.Query("userId") != "":
		userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
		if err != nil {
			badRequest(c, "invalid userId")
			return
		}
		bookings = h.service.ListUserBookings(ctx, userID)
	case c.Query("branchId") != "":
		branchID, err := strconv.ParseInt(c.Query("branchId"), 10, 64)
		if err != nil {
			badRequest(c, "invalid branchId")
			return
		}
		bookings = h.service.ListBranchBookings(ctx, branchID)
	default:
		bookings = h.service.ListAllBookings(ctx)
	}

	respond(c, http.StatusOK, bookings)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req domain.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	result, err := h.service.CancelBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *BookingHandler) availability(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	slots, err := h.service.CheckAvailability(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"availableSlots": slots})
}

func (h *BookingHandler) createPayment(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	payment, err := h.service.CreatePayment(c.Request.Context(), id, req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, payment)
}

func (h *BookingHandler) paymentStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	payment, err := h.service.GetPaymentStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payment)
}

func (h *BookingHandler) markPaid(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	payment, err := h.service.MarkPaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payment)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
