package shop

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Checkout turns the caller's cart into a pending order.
func (s *Service) Checkout(ctx context.Context, userID int64, shippingAddress, contactPhone string) (*models.Order, error) {
	shippingAddress = strings.TrimSpace(shippingAddress)
	contactPhone = strings.TrimSpace(contactPhone)
	if shippingAddress == "" {
		return nil, apperr.Validation("shipping address is required")
	}
	if !phonePattern.MatchString(contactPhone) {
		return nil, apperr.Validation("contact phone must be 10 to 15 digits")
	}

	order, err := store.CreateOrderFromCart(ctx, s.db, store.CheckoutRequest{
		UserID:          userID,
		ShippingAddress: shippingAddress,
		ContactPhone:    contactPhone,
	})
	switch {
	case err == nil:
		s.checkouts.ObserveCheckout("created")
		s.log.Info("order created",
			zap.Int64("order_id", order.ID),
			zap.Int64("user_id", userID),
			zap.String("total", order.TotalAmount.StringFixed(2)))
		return order, nil
	case errors.Is(err, database.ErrEmptyCart):
		s.checkouts.ObserveCheckout("empty_cart")
		return nil, translate(err)
	case errors.Is(err, database.ErrProductNotFound):
		s.checkouts.ObserveCheckout("rejected")
		return nil, apperr.New(apperr.KindValidation, "cart contains a product that is no longer available", err)
	default:
		s.checkouts.ObserveCheckout("failed")
		return nil, translate(err)
	}
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := store.ListOrdersForUser(ctx, s.db, userID)
	if err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

func (s *Service) ListOrdersPage(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	if _, err := store.DecodeCursor(cursor); err != nil {
		return nil, apperr.Validation("invalid cursor")
	}

	_, limit = store.ClampPage(1, limit)
	page, err := store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
	if err != nil {
		return nil, translate(err)
	}
	return page, nil
}

func (s *Service) ListAllOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	result, err := store.ListAllOrders(ctx, s.db, page, pageSize)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// UpdateOrderStatus sets the status of an order. With strict transitions
// enabled only forward moves and cancellation of open orders are accepted.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, apperr.Validation("unknown order status %q", status)
	}

	if !s.policy.StrictTransitions {
		order, err := store.UpdateOrderStatus(ctx, s.db, orderID, next)
		if err != nil {
			return nil, translate(err)
		}
		return order, nil
	}

	var order *models.Order
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !current.Status.CanAdvanceTo(next) {
			return apperr.Validation("cannot change order status from %s to %s", current.Status, next)
		}
		order, err = store.UpdateOrderStatus(ctx, tx, orderID, next)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}
