package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/services"
)

// CreateReviewRequest represents the request body for reviewing a booking
type CreateReviewRequest struct {
	BookingID uint   `json:"booking_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// ReviewController serves the /reviews endpoints
type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

// Create handles POST /api/v1/reviews
func (h *ReviewController) Create(c *gin.Context) {
	customer, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), customer, req.BookingID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, review)
}

// ListByService handles GET /api/v1/reviews/:service_id
func (h *ReviewController) ListByService(c *gin.Context) {
	serviceID, ok := parseID(c, "service_id")
	if !ok {
		return
	}

	list, err := h.reviews.ListByService(c.Request.Context(), serviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}
