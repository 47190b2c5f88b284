package shop

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const maxCommentLen = 2000

func (s *Service) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	if _, err := store.GetProduct(ctx, s.db, productID); err != nil {
		return nil, translate(err)
	}

	reviews, err := store.ListReviewsForProduct(ctx, s.db, productID)
	if err != nil {
		return nil, translate(err)
	}
	return reviews, nil
}

func (s *Service) CreateReview(ctx context.Context, userID int64, username string, productID int64, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, apperr.Validation("comment must be at most %d characters", maxCommentLen)
	}

	if _, err := store.GetProduct(ctx, s.db, productID); err != nil {
		return nil, translate(err)
	}

	if s.policy.RequirePurchase {
		purchased, err := store.HasPurchased(ctx, s.db, userID, productID)
		if err != nil {
			return nil, translate(err)
		}
		if !purchased {
			return nil, apperr.Forbidden("review requires prior purchase")
		}
	}

	review, err := store.CreateReview(ctx, s.db, userID, productID, rating, comment)
	if err != nil {
		return nil, translate(err)
	}
	review.Username = username
	return review, nil
}
