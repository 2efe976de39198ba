package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
	"github.com/samirrijal/plaza/internal/pkg/geospatial"
	"github.com/samirrijal/plaza/internal/pkg/metrics"
)

const (
	defaultPageSize     = 20
	maxPageSize         = 100
	maxNearbyLimit      = 50
	defaultNearbyRadius = 1000.0
	maxNearbyRadius     = 50000.0
	// nearbyCandidates bounds the bounding-box query before distance filtering.
	nearbyCandidates = 500
)

// CatalogService handles product and category reads.
type CatalogService struct {
	repo  ports.CatalogRepository
	cache ports.CacheService
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(repo ports.CatalogRepository, cache ports.CacheService) *CatalogService {
	return &CatalogService{repo: repo, cache: cache}
}

// List returns a page of products and the total count.
func (s *CatalogService) List(ctx context.Context, categoryID string, offset, limit int) ([]domain.Product, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, categoryID, offset, limit)
}

// Get returns a single product.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: product id must not be empty", domain.ErrInvalidInput)
	}

	cacheKey := "catalog:product:" + id
	var cached domain.Product
	if s.fromCache(ctx, "product", cacheKey, &cached) {
		return &cached, nil
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKey, p, 600) // 10 min for single product
	return p, nil
}

// Search matches products by title.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = defaultPageSize
	}

	cacheKey := fmt.Sprintf("catalog:search:%s:%d", strings.ToLower(query), limit)
	var cached []domain.Product
	if s.fromCache(ctx, "search", cacheKey, &cached) {
		return cached, nil
	}

	products, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKey, products, 60)
	return products, nil
}

// Nearby returns products within radiusMeters of (lat, lon), closest first,
// each with its Distance set.
func (s *CatalogService) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Product, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	if radiusMeters <= 0 {
		radiusMeters = defaultNearbyRadius
	}
	if radiusMeters > maxNearbyRadius {
		radiusMeters = maxNearbyRadius
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}

	cacheKey := fmt.Sprintf("catalog:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	var cached []domain.Product
	if s.fromCache(ctx, "nearby", cacheKey, &cached) {
		return cached, nil
	}

	center := domain.GeoPoint{Lat: lat, Lon: lon}
	candidates, err := s.repo.FindInBounds(ctx, geospatial.BoundingBox(center, radiusMeters), nearbyCandidates)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(candidates))
	for _, p := range candidates {
		d := geospatial.Distance(center, p.Location)
		if d > radiusMeters {
			continue
		}
		p.Distance = &d
		products = append(products, p)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return *products[i].Distance < *products[j].Distance
	})
	if len(products) > limit {
		products = products[:limit]
	}

	s.toCache(ctx, cacheKey, products, 300)
	return products, nil
}

// Categories returns all categories.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	const cacheKey = "catalog:categories"
	var cached []domain.Category
	if s.fromCache(ctx, "categories", cacheKey, &cached) {
		return cached, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, cacheKey, categories, 600)
	return categories, nil
}

func (s *CatalogService) fromCache(ctx context.Context, op, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err == nil && json.Unmarshal(data, dst) == nil {
		metrics.CacheHits.WithLabelValues(op).Inc()
		return true
	}
	metrics.CacheMisses.WithLabelValues(op).Inc()
	return false
}

func (s *CatalogService) toCache(ctx context.Context, key string, v any, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttlSeconds)
	}
}
