package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const cartItemColumns = `c.id, c.user_id, c.product_id, c.quantity, c.created_at`

// GetCartItems returns the user's cart lines, each joined with its product.
func GetCartItems(ctx context.Context, q Querier, userID int64) ([]models.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `,
		       p.id, p.sku, p.name, p.description, p.price, p.image_url,
		       p.category_id, p.brand_id, p.stock, p.created_at, p.updated_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		product := &models.Product{}
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt,
			&product.ID, &product.SKU, &product.Name, &product.Description, &product.Price,
			&product.ImageURL, &product.CategoryID, &product.BrandID, &product.Stock,
			&product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.Product = product
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func GetCartItem(ctx context.Context, q Querier, id int64) (*models.CartItem, error) {
	item := &models.CartItem{}
	err := q.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items c WHERE c.id = $1`, id).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

// AddCartItem always inserts a new line; adding the same product twice
// yields two lines.
func AddCartItem(ctx context.Context, q Querier, userID, productID int64, quantity int) (*models.CartItem, error) {
	item := &models.CartItem{}
	err := q.QueryRowContext(ctx,
		`INSERT INTO cart_items AS c (user_id, product_id, quantity, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING `+cartItemColumns,
		userID, productID, quantity).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return item, nil
}

func UpdateCartQuantity(ctx context.Context, q Querier, id int64, quantity int) (*models.CartItem, error) {
	item := &models.CartItem{}
	err := q.QueryRowContext(ctx,
		`UPDATE cart_items AS c SET quantity = $2 WHERE c.id = $1
		 RETURNING `+cartItemColumns,
		id, quantity).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	return item, nil
}

func RemoveCartItem(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	if err := affectedOne(result, database.ErrCartItemNotFound); err != nil {
		if errors.Is(err, database.ErrCartItemNotFound) {
			return err
		}
		return fmt.Errorf("get rows affected: %w", err)
	}

	return nil
}

// lockCartItems row-locks the user's cart for the rest of the transaction.
func lockCartItems(ctx context.Context, tx *sql.Tx, userID int64) ([]models.CartItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+cartItemColumns+`
		 FROM cart_items c
		 WHERE c.user_id = $1
		 ORDER BY c.id
		 FOR UPDATE`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func deleteCartItems(ctx context.Context, tx *sql.Tx, ids []int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
