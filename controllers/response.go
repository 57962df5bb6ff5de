package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/middleware"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/kendall-kelly/service-marketplace-api/utils"
	"github.com/rs/zerolog/log"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondError maps service errors onto the response envelope. Anything
// that is not an expected failure is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := services.AsAppError(err); ok {
		respondErrorCode(c, appErr.Status(), appErr.Code, appErr.Message)
		return
	}

	var fileErr *utils.FileUploadError
	if errors.As(err, &fileErr) {
		respondErrorCode(c, http.StatusBadRequest, fileErr.Code, fileErr.Message)
		return
	}

	_ = c.Error(err)
	log.Error().Err(err).Str("method", c.Request.Method).Str("route", c.FullPath()).Msg("Request failed")
	respondErrorCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// currentUser returns the authenticated user or writes a 401
func currentUser(c *gin.Context) (*models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "INVALID_TOKEN", "Could not validate credentials")
		return nil, false
	}
	return user, true
}

// parseID reads a positive numeric path parameter or writes a 400
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
