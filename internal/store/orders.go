package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, status, total_amount, shipping_address, contact_phone, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.ShippingAddress,
		&order.ContactPhone,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

type CheckoutRequest struct {
	UserID          int64
	ShippingAddress string
	ContactPhone    string
}

// CreateOrderFromCart converts the user's cart into an order. The cart rows
// are locked, priced against the current catalog, copied into order_items
// and deleted, all in one serializable transaction. Two concurrent
// checkouts of the same cart cannot both succeed: the loser blocks on the
// row locks, fails serialization, and on retry finds the cart empty.
func CreateOrderFromCart(ctx context.Context, db database.TxBeginner, req CheckoutRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.CheckoutTxOptions(), func(tx *sql.Tx) error {
		items, err := lockCartItems(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return database.ErrEmptyCart
		}

		prices, err := productPrices(ctx, tx, items)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, item := range items {
			price, ok := prices[item.ProductID]
			if !ok {
				return database.ErrProductNotFound
			}
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		order, err = scanOrder(tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, status, total_amount, shipping_address, contact_phone, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			 RETURNING `+orderColumns,
			req.UserID, models.OrderStatusPending, total, req.ShippingAddress, req.ContactPhone))
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		order.Items = make([]models.OrderItem, 0, len(items))
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			line := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
				PriceAtTime: prices[item.ProductID],
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price_at_time)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id`,
				line.OrderID, line.ProductID, line.Quantity, line.PriceAtTime).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, line)
			ids = append(ids, item.ID)
		}

		return deleteCartItems(ctx, tx, ids)
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

// productPrices reads the current price of every product in the cart. The
// rows are share-locked so a concurrent price edit waits for checkout.
func productPrices(ctx context.Context, tx *sql.Tx, items []models.CartItem) (map[int64]decimal.Decimal, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, price FROM products WHERE id = ANY($1) FOR SHARE`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	prices := make(map[int64]decimal.Decimal, len(ids))
	for rows.Next() {
		var id int64
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices[id] = price
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return prices, nil
}

func GetOrder(ctx context.Context, q Querier, id int64) (*models.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := attachOrderItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// ListOrdersForUser returns every order of the user, newest first.
func ListOrdersForUser(ctx context.Context, q Querier, userID int64) ([]models.Order, error) {
	orders, err := queryOrders(ctx, q,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}

	if err := attachOrderItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func ListOrdersCursor(ctx context.Context, q Querier, userID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	orders, err := queryOrders(ctx, q,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1
		   AND (created_at, id) < ($2, $3)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`,
		userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if err := attachOrderItems(ctx, q, orders); err != nil {
		return nil, err
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListAllOrders is the admin view over every user's orders.
func ListAllOrders(ctx context.Context, q Querier, page, pageSize int) (*OffsetPage[models.Order], error) {
	page, pageSize = ClampPage(page, pageSize)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	orders, err := queryOrders(ctx, q,
		`SELECT `+orderColumns+` FROM orders
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	if err := attachOrderItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}

// LockOrder reads the order header and holds its row lock until tx ends.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

func UpdateOrderStatus(ctx context.Context, q Querier, id int64, status models.OrderStatus) (*models.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		id, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	orders := []models.Order{*order}
	if err := attachOrderItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func queryOrders(ctx context.Context, q Querier, query string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// attachOrderItems loads the lines of all given orders in one query. Lines
// whose product has been deleted come back without a summary.
func attachOrderItems(ctx context.Context, q Querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_time, p.name, p.sku
		 FROM order_items oi
		 LEFT JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.order_id, oi.id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		var name, sku sql.NullString
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtTime, &name, &sku)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if name.Valid {
			item.Product = &models.ProductSummary{Name: name.String, SKU: sku.String}
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}
