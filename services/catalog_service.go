package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ServiceInput holds the mutable fields of a service listing
type ServiceInput struct {
	Title       string
	Description string
	Category    string
	Pricing     float64
	PricingType string
	Location    string
	Tags        []string
	Media       []*multipart.FileHeader
}

// ServiceFilter narrows the public listing
type ServiceFilter struct {
	Category string
	Limit    int
	Offset   int
}

// CatalogService manages provider service listings. images may be nil when
// no media storage is configured.
type CatalogService struct {
	db     *gorm.DB
	images ImageService
}

func NewCatalogService(db *gorm.DB, images ImageService) *CatalogService {
	return &CatalogService{db: db, images: images}
}

// Create lists a new service owned by provider
func (s *CatalogService) Create(ctx context.Context, provider *models.User, in ServiceInput) (*models.Service, error) {
	if err := normalizeServiceInput(&in); err != nil {
		return nil, err
	}

	keys, err := s.uploadMedia(ctx, in.Media)
	if err != nil {
		return nil, err
	}

	service := models.Service{
		ProviderID:  provider.ID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Pricing:     in.Pricing,
		PricingType: in.PricingType,
		Location:    in.Location,
		Tags:        buildTags(in.Tags),
		Media:       buildMedia(keys),
	}

	if err := s.db.WithContext(ctx).Create(&service).Error; err != nil {
		s.deleteMedia(ctx, keys)
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	log.Info().Uint("service_id", service.ID).Uint("provider_id", provider.ID).Msg("Service created")
	return s.Get(ctx, service.ID)
}

// Get returns a single service with provider, tags and media loaded
func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	if err := s.hydrated(ctx).First(&service, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("SERVICE_NOT_FOUND", "Service not found")
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	s.attachURLs(ctx, &service)
	return &service, nil
}

// List returns the public catalog, newest first
func (s *CatalogService) List(ctx context.Context, filter ServiceFilter) ([]models.Service, error) {
	query := s.hydrated(ctx)
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	return s.find(ctx, paginate(query, filter.Limit, filter.Offset))
}

// Mine returns the services owned by provider
func (s *CatalogService) Mine(ctx context.Context, providerID uint) ([]models.Service, error) {
	return s.find(ctx, s.hydrated(ctx).Where("provider_id = ?", providerID))
}

// Search matches query case-insensitively against title, description,
// category, location and tags.
func (s *CatalogService) Search(ctx context.Context, query string, limit, offset int) ([]models.Service, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, InvalidInput("MISSING_QUERY", "query parameter is required")
	}
	pattern := "%" + strings.ToLower(query) + "%"

	db := s.db.WithContext(ctx)
	tagged := db.Model(&models.ServiceTag{}).Select("service_id").Where("LOWER(text) LIKE ?", pattern)

	q := s.hydrated(ctx).Where(
		db.Where("LOWER(title) LIKE ?", pattern).
			Or("LOWER(description) LIKE ?", pattern).
			Or("LOWER(category) LIKE ?", pattern).
			Or("LOWER(location) LIKE ?", pattern).
			Or("id IN (?)", tagged),
	)
	return s.find(ctx, paginate(q, limit, offset))
}

// Update replaces the mutable fields and the tag and media collections.
// Only the owning provider may update.
func (s *CatalogService) Update(ctx context.Context, provider *models.User, id uint, in ServiceInput) (*models.Service, error) {
	existing, err := s.owned(ctx, provider, id)
	if err != nil {
		return nil, err
	}
	if err := normalizeServiceInput(&in); err != nil {
		return nil, err
	}

	keys, err := s.uploadMedia(ctx, in.Media)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Service{ID: existing.ID}).Updates(map[string]interface{}{
			"title":        in.Title,
			"description":  in.Description,
			"category":     in.Category,
			"pricing":      in.Pricing,
			"pricing_type": in.PricingType,
			"location":     in.Location,
		}).Error; err != nil {
			return err
		}
		if err := replaceChildren(tx, existing.ID, buildTags(in.Tags), buildMedia(keys)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.deleteMedia(ctx, keys)
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	s.deleteMedia(ctx, mediaKeys(existing.Media))
	return s.Get(ctx, existing.ID)
}

// Delete removes a service owned by provider together with its children
func (s *CatalogService) Delete(ctx context.Context, provider *models.User, id uint) error {
	existing, err := s.owned(ctx, provider, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceChildren(tx, existing.ID, nil, nil); err != nil {
			return err
		}
		return tx.Delete(&models.Service{}, existing.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	s.deleteMedia(ctx, mediaKeys(existing.Media))
	log.Info().Uint("service_id", existing.ID).Uint("provider_id", provider.ID).Msg("Service deleted")
	return nil
}

func (s *CatalogService) owned(ctx context.Context, provider *models.User, id uint) (*models.Service, error) {
	var service models.Service
	if err := s.db.WithContext(ctx).Preload("Media").First(&service, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("SERVICE_NOT_FOUND", "Service not found")
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if service.ProviderID != provider.ID {
		return nil, Forbidden("FORBIDDEN", "You can only modify your own services")
	}
	return &service, nil
}

func (s *CatalogService) hydrated(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Provider").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (s *CatalogService) find(ctx context.Context, q *gorm.DB) ([]models.Service, error) {
	services := []models.Service{}
	if err := q.Order("created_at DESC, id DESC").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	for i := range services {
		s.attachURLs(ctx, &services[i])
	}
	return services, nil
}

func (s *CatalogService) attachURLs(ctx context.Context, service *models.Service) {
	if s.images == nil {
		return
	}
	for i := range service.Media {
		url, err := s.images.GetImageURL(ctx, service.Media[i].StorageKey)
		if err != nil {
			log.Warn().Err(err).Uint("media_id", service.Media[i].ID).Msg("Failed to generate media URL")
			continue
		}
		service.Media[i].URL = url
	}
}

// uploadMedia stores every file or none: on failure the already uploaded
// keys are removed again.
func (s *CatalogService) uploadMedia(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, InvalidInput("MEDIA_UNAVAILABLE", "Media uploads are not configured")
	}

	keys := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := s.images.UploadImage(ctx, fh)
		if err != nil {
			s.deleteMedia(ctx, keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *CatalogService) deleteMedia(ctx context.Context, keys []string) {
	if s.images == nil {
		return
	}
	for _, key := range keys {
		if err := s.images.DeleteImage(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete media object")
		}
	}
}

func replaceChildren(tx *gorm.DB, serviceID uint, tags []models.ServiceTag, media []models.ServiceMedia) error {
	if err := tx.Where("service_id = ?", serviceID).Delete(&models.ServiceTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("service_id = ?", serviceID).Delete(&models.ServiceMedia{}).Error; err != nil {
		return err
	}
	for i := range tags {
		tags[i].ServiceID = serviceID
	}
	for i := range media {
		media[i].ServiceID = serviceID
	}
	if len(tags) > 0 {
		if err := tx.Create(&tags).Error; err != nil {
			return err
		}
	}
	if len(media) > 0 {
		if err := tx.Create(&media).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeServiceInput(in *ServiceInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.PricingType = strings.ToLower(strings.TrimSpace(in.PricingType))

	if in.Title == "" {
		return InvalidInput("VALIDATION_ERROR", "title is required")
	}
	if in.Pricing <= 0 {
		return InvalidInput("INVALID_PRICING", "pricing must be greater than 0")
	}
	if in.PricingType == "" {
		in.PricingType = models.PricingFixed
	}
	if in.PricingType != models.PricingFixed && in.PricingType != models.PricingHourly {
		return InvalidInput("INVALID_PRICING_TYPE", "pricing_type must be fixed or hourly")
	}
	return nil
}

func buildTags(texts []string) []models.ServiceTag {
	var tags []models.ServiceTag
	seen := make(map[string]bool)
	for _, t := range texts {
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[strings.ToLower(part)] {
				continue
			}
			seen[strings.ToLower(part)] = true
			tags = append(tags, models.ServiceTag{Text: part})
		}
	}
	return tags
}

func buildMedia(keys []string) []models.ServiceMedia {
	media := make([]models.ServiceMedia, 0, len(keys))
	for _, key := range keys {
		media = append(media, models.ServiceMedia{StorageKey: key})
	}
	return media
}

func mediaKeys(media []models.ServiceMedia) []string {
	keys := make([]string, 0, len(media))
	for _, m := range media {
		keys = append(keys, m.StorageKey)
	}
	return keys
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return q.Limit(limit).Offset(offset)
}
