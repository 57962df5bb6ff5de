package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/services"
)

// ServiceRequest is accepted as multipart form data or JSON. "name" is an
// alias for title kept for older clients.
type ServiceRequest struct {
	Title       string   `form:"title" json:"title"`
	Name        string   `form:"name" json:"name"`
	Description string   `form:"description" json:"description"`
	Category    string   `form:"category" json:"category"`
	Pricing     float64  `form:"pricing" json:"pricing"`
	PricingType string   `form:"pricing_type" json:"pricing_type"`
	Location    string   `form:"location" json:"location"`
	Tags        []string `form:"tags" json:"tags"`
	TagList     []string `form:"tags[]" json:"-"`
}

func (r ServiceRequest) input(media []*multipart.FileHeader) services.ServiceInput {
	title := r.Title
	if title == "" {
		title = r.Name
	}
	return services.ServiceInput{
		Title:       title,
		Description: r.Description,
		Category:    r.Category,
		Pricing:     r.Pricing,
		PricingType: r.PricingType,
		Location:    r.Location,
		Tags:        append(r.Tags, r.TagList...),
		Media:       media,
	}
}

// ServiceController serves the /services endpoints
type ServiceController struct {
	catalog *services.CatalogService
}

func NewServiceController(catalog *services.CatalogService) *ServiceController {
	return &ServiceController{catalog: catalog}
}

// Create handles POST /api/v1/services
func (h *ServiceController) Create(c *gin.Context) {
	provider, ok := currentUser(c)
	if !ok {
		return
	}

	in, ok := bindService(c)
	if !ok {
		return
	}

	service, err := h.catalog.Create(c.Request.Context(), provider, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, service)
}

// List handles GET /api/v1/services
func (h *ServiceController) List(c *gin.Context) {
	list, err := h.catalog.List(c.Request.Context(), services.ServiceFilter{
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", services.DefaultPageSize),
		Offset:   queryInt(c, "offset", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// Mine handles GET /api/v1/services/mine
func (h *ServiceController) Mine(c *gin.Context) {
	provider, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.catalog.Mine(c.Request.Context(), provider.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// Search handles GET /api/v1/services/search?query=
func (h *ServiceController) Search(c *gin.Context) {
	list, err := h.catalog.Search(c.Request.Context(), c.Query("query"),
		queryInt(c, "limit", services.DefaultPageSize), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// Get handles GET /api/v1/services/:id
func (h *ServiceController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	service, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, service)
}

// Update handles PUT /api/v1/services/:id
func (h *ServiceController) Update(c *gin.Context) {
	provider, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	in, ok := bindService(c)
	if !ok {
		return
	}

	service, err := h.catalog.Update(c.Request.Context(), provider, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, service)
}

// Delete handles DELETE /api/v1/services/:id
func (h *ServiceController) Delete(c *gin.Context) {
	provider, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), provider, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindService(c *gin.Context) (services.ServiceInput, bool) {
	var req ServiceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondValidationError(c, err)
		return services.ServiceInput{}, false
	}

	var media []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		media = append(media, form.File["media"]...)
		media = append(media, form.File["media[]"]...)
	}

	return req.input(media), true
}
