package shop

import (
	"context"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

func (s *Service) Cart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items, err := store.GetCartItems(ctx, s.db, userID)
	if err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (s *Service) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return nil, translate(err)
	}

	item, err := store.AddCartItem(ctx, s.db, userID, productID, quantity)
	if err != nil {
		return nil, translate(err)
	}
	item.Product = product
	return item, nil
}

func (s *Service) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if err := s.ownCartItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	item, err := store.UpdateCartQuantity(ctx, s.db, itemID, quantity)
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func (s *Service) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	if err := s.ownCartItem(ctx, userID, itemID); err != nil {
		return err
	}
	return translate(store.RemoveCartItem(ctx, s.db, itemID))
}

func (s *Service) ownCartItem(ctx context.Context, userID, itemID int64) error {
	item, err := store.GetCartItem(ctx, s.db, itemID)
	if err != nil {
		return translate(err)
	}
	if item.UserID != userID {
		return apperr.Forbidden("cart item belongs to another user")
	}
	return nil
}
