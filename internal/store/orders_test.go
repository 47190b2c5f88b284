package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRowColumns = []string{"id", "user_id", "status", "total_amount", "shipping_address", "contact_phone", "created_at", "updated_at"}

var cartRowColumns = []string{"id", "user_id", "product_id", "quantity", "created_at"}

func TestCreateOrderFromCart_TwoItems(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM cart_items c WHERE c.user_id = $1 ORDER BY c.id FOR UPDATE`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cartRowColumns).
			AddRow(10, 1, 100, 2, now).
			AddRow(11, 1, 200, 1, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, price FROM products WHERE id = ANY($1) FOR SHARE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).
			AddRow(100, "1000.00").
			AddRow(200, "500.00"))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(int64(1), models.OrderStatusPending, sqlmock.AnyArg(), "1 Main St", "555-0100").
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(7, 1, "pending", "2500.00", "1 Main St", "555-0100", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(int64(7), int64(100), 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(70))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(int64(7), int64(200), 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(71))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE id = ANY($1)`)).
		WithArgs(pq.Array([]int64{10, 11})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	order, err := CreateOrderFromCart(context.Background(), db, CheckoutRequest{
		UserID:          1,
		ShippingAddress: "1 Main St",
		ContactPhone:    "555-0100",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2500)))
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].PriceAtTime.Equal(decimal.NewFromInt(1000)))
	assert.True(t, order.Items[1].PriceAtTime.Equal(decimal.NewFromInt(500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderFromCart_EmptyCart(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cartRowColumns))
	mock.ExpectRollback()

	order, err := CreateOrderFromCart(context.Background(), db, CheckoutRequest{UserID: 1})
	assert.ErrorIs(t, err, database.ErrEmptyCart)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderFromCart_RetriesSerializationFailure(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(cartRowColumns))
	mock.ExpectRollback()

	_, err := CreateOrderFromCart(context.Background(), db, CheckoutRequest{UserID: 1})
	assert.ErrorIs(t, err, database.ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderFromCart_DeletedProduct(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(cartRowColumns).AddRow(10, 1, 100, 1, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FOR SHARE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}))
	mock.ExpectRollback()

	_, err := CreateOrderFromCart(context.Background(), db, CheckoutRequest{UserID: 1})
	assert.ErrorIs(t, err, database.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersForUser_ItemsWithDeletedProduct(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(2, 1, "shipped", "10.00", "a", "b", now, now).
			AddRow(1, 1, "pending", "20.00", "a", "b", now.Add(-time.Hour), now.Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items oi LEFT JOIN products p`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price_at_time", "name", "sku"}).
			AddRow(1, 1, 5, 2, "10.00", "Phone", "SKU5").
			AddRow(2, 2, 6, 1, "10.00", nil, nil))

	orders, err := ListOrdersForUser(context.Background(), db, 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, int64(2), orders[0].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Nil(t, orders[0].Items[0].Product)

	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, "Phone", orders[1].Items[0].Product.Name)
}

func TestListOrdersCursor_HasMore(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`AND (created_at, id) < ($2, $3)`)).
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), 2).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(3, 1, "pending", "1.00", "", "", now, now).
			AddRow(2, 1, "pending", "1.00", "", "", now.Add(-time.Minute), now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price_at_time", "name", "sku"}))

	page, err := ListOrdersCursor(context.Background(), db, 1, "", 1)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.Items[0].Items)

	cursor, err := DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor.ID)
}

func TestListAllOrders_OffsetPage(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1 OFFSET $2`)).
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(15, 2, "pending", "1.00", "", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price_at_time", "name", "sku"}))

	page, err := ListAllOrders(context.Background(), db, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 1)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE orders SET status = $2`)).
		WithArgs(int64(9), models.OrderStatusShipped).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	_, err := UpdateOrderStatus(context.Background(), db, 9, models.OrderStatusShipped)
	assert.ErrorIs(t, err, database.ErrOrderNotFound)
}
