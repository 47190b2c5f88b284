package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

const (
	brandsKey     = "brands"
	categoriesKey = "categories"
)

func (s *Service) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands, err := cache.Fetch(ctx, s.reference, brandsKey, func(ctx context.Context) ([]models.Brand, error) {
		return store.ListBrands(ctx, s.db)
	})
	if err != nil {
		return nil, translate(err)
	}
	return brands, nil
}

func (s *Service) GetBrand(ctx context.Context, id int64) (*models.Brand, error) {
	brands, err := s.ListBrands(ctx)
	if err != nil {
		return nil, err
	}
	for i := range brands {
		if brands[i].ID == id {
			return &brands[i], nil
		}
	}

	// Another instance may have created it since the list was cached.
	brand, err := store.GetBrand(ctx, s.db, id)
	if err != nil {
		return nil, translate(err)
	}
	return brand, nil
}

func (s *Service) CreateBrand(ctx context.Context, name, description string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("brand name is required")
	}

	brand, err := store.CreateBrand(ctx, s.db, name, strings.TrimSpace(description))
	if err != nil {
		return nil, translate(err)
	}
	s.invalidate(ctx, brandsKey)
	return brand, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := cache.Fetch(ctx, s.reference, categoriesKey, func(ctx context.Context) ([]models.Category, error) {
		return store.ListCategories(ctx, s.db)
	})
	if err != nil {
		return nil, translate(err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i], nil
		}
	}

	category, err := store.GetCategory(ctx, s.db, id)
	if err != nil {
		return nil, translate(err)
	}
	return category, nil
}

// CreateCategory adds a top-level category or, with parentID, a
// subcategory. Subcategories cannot have children of their own.
func (s *Service) CreateCategory(ctx context.Context, name string, parentID *int64, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("category name is required")
	}

	if parentID != nil {
		parent, err := store.GetCategory(ctx, s.db, *parentID)
		if err != nil {
			if errors.Is(err, database.ErrCategoryNotFound) {
				return nil, apperr.Validation("parent category %d does not exist", *parentID)
			}
			return nil, translate(err)
		}
		if parent.ParentID != nil {
			return nil, apperr.Validation("categories nest only one level deep")
		}
	}

	category, err := store.CreateCategory(ctx, s.db, name, parentID, strings.TrimSpace(description))
	if err != nil {
		return nil, translate(err)
	}
	s.invalidate(ctx, categoriesKey)
	return category, nil
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.reference.Invalidate(ctx, key); err != nil {
		s.log.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

// ListProducts returns the catalog with rating stats, narrowed by f.
func (s *Service) ListProducts(ctx context.Context, f catalog.Filter) ([]models.ProductWithRating, error) {
	products, err := store.ListProducts(ctx, s.db)
	if err != nil {
		return nil, translate(err)
	}

	stats, err := store.ListRatingStats(ctx, s.db)
	if err != nil {
		return nil, translate(err)
	}

	var brandNames map[int64]string
	if f.Query != "" {
		brands, err := s.ListBrands(ctx)
		if err != nil {
			return nil, err
		}
		brandNames = make(map[int64]string, len(brands))
		for _, b := range brands {
			brandNames[b.ID] = b.Name
		}
	}

	rated := make([]models.ProductWithRating, len(products))
	for i, p := range products {
		rated[i] = models.ProductWithRating{Product: p, RatingStats: stats[p.ID]}
	}

	return catalog.Apply(rated, brandNames, f), nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.ProductWithRating, error) {
	product, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, translate(err)
	}

	stats, err := store.GetRatingStats(ctx, s.db, id)
	if err != nil {
		return nil, translate(err)
	}

	return &models.ProductWithRating{Product: *product, RatingStats: stats}, nil
}

func (s *Service) CreateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)

	switch {
	case p.Name == "":
		return nil, apperr.Validation("product name is required")
	case p.Price.IsNegative():
		return nil, apperr.Validation("price must not be negative")
	case p.Stock < 0:
		return nil, apperr.Validation("stock must not be negative")
	case p.CategoryID <= 0:
		return nil, apperr.Validation("categoryId is required")
	case p.BrandID <= 0:
		return nil, apperr.Validation("brandId is required")
	}

	if p.SKU == "" {
		p.SKU = store.GenerateSKU(s.now())
	}

	product, err := store.CreateProduct(ctx, s.db, p)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

// UpdateProduct applies a partial update; fields absent from patch keep
// their stored values.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	if patch.IsEmpty() {
		return nil, apperr.Validation("no fields to update")
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return nil, apperr.Validation("product name must not be empty")
		}
		patch.Name = &trimmed
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, apperr.Validation("stock must not be negative")
	}

	product, err := store.UpdateProduct(ctx, s.db, id, patch)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return translate(store.DeleteProduct(ctx, s.db, id))
}
