package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAvailabilityRouter(env *testEnv, user *models.User) *gin.Engine {
	router := gin.New()
	h := NewAvailabilityController(services.NewAvailabilityService(env.db))

	a := router.Group("/api/v1/availability", mockAuthMiddleware(user))
	{
		a.GET("", h.List)
		a.POST("", h.Save)
		a.DELETE("", h.DeleteAll)
		a.GET("/:day", h.Get)
		a.DELETE("/:day", h.Delete)
	}
	return router
}

func TestSaveAvailability(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "anna", models.RoleProvider)
	router := setupAvailabilityRouter(env, user)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name: "valid week",
			body: map[string]interface{}{"availabilities": []map[string]interface{}{
				{"day": "mon", "start_time": "09:00", "end_time": "17:00"},
				{"day": "Tuesday", "start_time": "09:00:00", "end_time": "12:30:00"},
			}},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "empty list",
			body:       map[string]interface{}{"availabilities": []map[string]interface{}{}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "unknown day",
			body: map[string]interface{}{"availabilities": []map[string]interface{}{
				{"day": "funday", "start_time": "09:00", "end_time": "17:00"},
			}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_DAY",
		},
		{
			name: "malformed time",
			body: map[string]interface{}{"availabilities": []map[string]interface{}{
				{"day": "wed", "start_time": "9am", "end_time": "17:00"},
			}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_TIME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/api/v1/availability", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}

	w := performRequest(router, "GET", "/api/v1/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := parseResponse(t, w)["data"].([]interface{})
	require.Len(t, rows, 2, "failed saves leave earlier rows untouched")
	assert.Equal(t, "monday", rows[0].(map[string]interface{})["day"])
	assert.Equal(t, "09:00:00", rows[0].(map[string]interface{})["start_time"])
}

func TestAvailabilityByDay(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ben", models.RoleProvider)
	router := setupAvailabilityRouter(env, user)

	w := performRequest(router, "POST", "/api/v1/availability", map[string]interface{}{
		"availabilities": []map[string]interface{}{
			{"day": "thu", "start_time": "08:00", "end_time": "10:00"},
			{"day": "fri", "start_time": "08:00", "end_time": "10:00"},
		},
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, "GET", "/api/v1/availability/Thu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "thursday", parseResponse(t, w)["data"].(map[string]interface{})["day"])

	w = performRequest(router, "GET", "/api/v1/availability/sat", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, "GET", "/api/v1/availability/someday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, "DELETE", "/api/v1/availability/thursday", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, "DELETE", "/api/v1/availability/thursday", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, "DELETE", "/api/v1/availability", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, "GET", "/api/v1/availability", nil)
	assert.Empty(t, parseResponse(t, w)["data"])
}
