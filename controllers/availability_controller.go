package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/services"
)

type AvailabilityEntry struct {
	Day         string `json:"day" binding:"required"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable *bool  `json:"is_available"`
}

// SaveAvailabilityRequest replaces the listed days of the caller's week
type SaveAvailabilityRequest struct {
	Availabilities []AvailabilityEntry `json:"availabilities" binding:"required,min=1,dive"`
}

// AvailabilityController serves the /availability endpoints
type AvailabilityController struct {
	availability *services.AvailabilityService
}

func NewAvailabilityController(availability *services.AvailabilityService) *AvailabilityController {
	return &AvailabilityController{availability: availability}
}

// List handles GET /api/v1/availability
func (h *AvailabilityController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	rows, err := h.availability.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rows)
}

// Save handles POST /api/v1/availability
func (h *AvailabilityController) Save(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	entries := make([]services.AvailabilityInput, 0, len(req.Availabilities))
	for _, e := range req.Availabilities {
		entries = append(entries, services.AvailabilityInput{
			Day:         e.Day,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			IsAvailable: e.IsAvailable,
		})
	}

	if err := h.availability.Save(c.Request.Context(), user.ID, entries); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get handles GET /api/v1/availability/:day
func (h *AvailabilityController) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	row, err := h.availability.Get(c.Request.Context(), user.ID, c.Param("day"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, row)
}

// Delete handles DELETE /api/v1/availability/:day
func (h *AvailabilityController) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.availability.Delete(c.Request.Context(), user.ID, c.Param("day")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAll handles DELETE /api/v1/availability
func (h *AvailabilityController) DeleteAll(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if _, err := h.availability.DeleteAll(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
