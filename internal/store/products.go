package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const productColumns = `id, sku, name, description, price, image_url, category_id, brand_id, stock, created_at, updated_at`

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.CategoryID,
		&product.BrandID,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}

// GenerateSKU builds the SKU assigned to products created without one.
func GenerateSKU(now time.Time) string {
	return fmt.Sprintf("SKU%d%03d", now.UnixMilli(), rand.Intn(1000))
}

func mapProductWriteError(err error) error {
	switch {
	case database.IsUniqueViolation(err, "products_sku_key"):
		return database.ErrDuplicateSKU
	case database.IsForeignKeyViolation(err):
		return database.ErrInvalidReference
	}
	return err
}

func CreateProduct(ctx context.Context, q Querier, p models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (sku, name, description, price, image_url, category_id, brand_id, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		p.SKU, p.Name, p.Description, p.Price, p.ImageURL, p.CategoryID, p.BrandID, p.Stock))
	if err != nil {
		if mapped := mapProductWriteError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// ListProducts returns the whole catalog ordered by id. Filtering happens in
// the catalog package on top of this result.
func ListProducts(ctx context.Context, q Querier) ([]models.Product, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct applies the non-nil fields of patch and bumps updated_at.
func UpdateProduct(ctx context.Context, q Querier, id int64, patch models.ProductPatch) (*models.Product, error) {
	query := `
		UPDATE products
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    price       = COALESCE($4, price),
		    image_url   = COALESCE($5, image_url),
		    category_id = COALESCE($6, category_id),
		    brand_id    = COALESCE($7, brand_id),
		    stock       = COALESCE($8, stock),
		    updated_at  = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query, id,
		patch.Name, patch.Description, patch.Price, patch.ImageURL,
		patch.CategoryID, patch.BrandID, patch.Stock))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		if mapped := mapProductWriteError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes the product. Cart lines and reviews go with it via
// ON DELETE CASCADE; order lines keep their product_id.
func DeleteProduct(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := affectedOne(result, database.ErrProductNotFound); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("get rows affected: %w", err)
	}

	return nil
}
