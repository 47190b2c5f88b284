package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

func ListBrands(ctx context.Context, q Querier) ([]models.Brand, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, description FROM brands ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands := []models.Brand{}
	for rows.Next() {
		var brand models.Brand
		if err := rows.Scan(&brand.ID, &brand.Name, &brand.Description); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, brand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return brands, nil
}

func GetBrand(ctx context.Context, q Querier, id int64) (*models.Brand, error) {
	brand := &models.Brand{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description FROM brands WHERE id = $1`, id).
		Scan(&brand.ID, &brand.Name, &brand.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrBrandNotFound
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}

	return brand, nil
}

func CreateBrand(ctx context.Context, q Querier, name, description string) (*models.Brand, error) {
	brand := &models.Brand{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO brands (name, description) VALUES ($1, $2)
		 RETURNING id, name, description`,
		name, description).Scan(&brand.ID, &brand.Name, &brand.Description)
	if err != nil {
		if database.IsUniqueViolation(err, "brands_name_key") {
			return nil, database.ErrBrandExists
		}
		return nil, fmt.Errorf("create brand: %w", err)
	}

	return brand, nil
}

// EnsureBrand returns the brand with the given name, creating it first when
// it does not exist yet. Used by seeding.
func EnsureBrand(ctx context.Context, q Querier, name, description string) (*models.Brand, error) {
	brand := &models.Brand{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO brands (name, description) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, description`,
		name, description).Scan(&brand.ID, &brand.Name, &brand.Description)
	if err != nil {
		return nil, fmt.Errorf("ensure brand %q: %w", name, err)
	}

	return brand, nil
}
