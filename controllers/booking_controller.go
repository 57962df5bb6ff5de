package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/services"
)

// CreateBookingRequest represents the request body for booking a service
type CreateBookingRequest struct {
	ServiceID   uint      `json:"service_id" binding:"required"`
	BookingTime time.Time `json:"booking_time" binding:"required"`
}

// UpdateBookingStatusRequest represents the request body for a status change
type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BookingController serves the /bookings endpoints
type BookingController struct {
	bookings *services.BookingService
}

func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

// Create handles POST /api/v1/bookings
func (h *BookingController) Create(c *gin.Context) {
	customer, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), customer, req.ServiceID, req.BookingTime)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, booking)
}

// List handles GET /api/v1/bookings
func (h *BookingController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.bookings.List(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// Get handles GET /api/v1/bookings/:id
func (h *BookingController) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, booking)
}

// UpdateStatus handles PUT /api/v1/bookings/:id/status
func (h *BookingController) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	booking, err := h.bookings.UpdateStatus(c.Request.Context(), user, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, booking)
}
