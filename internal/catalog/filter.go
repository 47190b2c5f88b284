// Package catalog filters product listings.
package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Filter holds the optional predicates of a catalog query. A nil field or an
// empty Query matches everything.
type Filter struct {
	CategoryID *int64
	BrandID    *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinRating  *float64
	Query      string
}

// Apply returns the products that satisfy every set predicate, in input
// order. brandNames is consulted by the text query and may be nil.
func Apply(products []models.ProductWithRating, brandNames map[int64]string, f Filter) []models.ProductWithRating {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.ProductWithRating, 0, len(products))
	for _, p := range products {
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if f.BrandID != nil && p.BrandID != *f.BrandID {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.MinRating != nil && (p.Average == nil || *p.Average < *f.MinRating) {
			continue
		}
		if query != "" && !matchesText(p, brandNames[p.BrandID], query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesText(p models.ProductWithRating, brand, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Description), query) ||
		strings.Contains(strings.ToLower(brand), query)
}

// AverageRating is the mean of ratings rounded to one decimal place. The
// second result is false when ratings is empty.
func AverageRating(ratings []int) (float64, bool) {
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	stats := models.NewRatingStats(len(ratings), sum)
	if stats.Average == nil {
		return 0, false
	}
	return *stats.Average, true
}

// ParseFilter reads categoryId, brandId, minPrice, maxPrice, minRating and q.
func ParseFilter(values url.Values) (Filter, error) {
	var f Filter
	var err error

	if f.CategoryID, err = parseID(values, "categoryId"); err != nil {
		return Filter{}, err
	}
	if f.BrandID, err = parseID(values, "brandId"); err != nil {
		return Filter{}, err
	}
	if f.MinPrice, err = parsePrice(values, "minPrice"); err != nil {
		return Filter{}, err
	}
	if f.MaxPrice, err = parsePrice(values, "maxPrice"); err != nil {
		return Filter{}, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Filter{}, fmt.Errorf("minPrice must not exceed maxPrice")
	}

	if raw := values.Get("minRating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			return Filter{}, fmt.Errorf("minRating must be a number between 0 and 5")
		}
		f.MinRating = &rating
	}

	f.Query = strings.TrimSpace(values.Get("q"))
	return f, nil
}

func parseID(values url.Values, name string) (*int64, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%s must be a positive integer", name)
	}
	return &id, nil
}

func parsePrice(values url.Values, name string) (*decimal.Decimal, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%s must be a non-negative number", name)
	}
	return &price, nil
}
