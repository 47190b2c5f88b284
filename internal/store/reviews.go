package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// ListReviewsForProduct returns the product's reviews, newest first, with the
// author's username.
func ListReviewsForProduct(ctx context.Context, q Querier, productID int64) ([]models.Review, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.user_id, u.username, r.product_id, r.rating, r.comment, r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.product_id = $1
		 ORDER BY r.created_at DESC, r.id DESC`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.ProductID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

func CreateReview(ctx context.Context, q Querier, userID, productID int64, rating int, comment string) (*models.Review, error) {
	r := &models.Review{UserID: userID, ProductID: productID, Rating: rating, Comment: comment}
	err := q.QueryRowContext(ctx,
		`INSERT INTO reviews (user_id, product_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, created_at`,
		userID, productID, rating, comment).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	return r, nil
}

// HasPurchased reports whether any of the user's orders, in any status,
// contains the product.
func HasPurchased(ctx context.Context, q Querier, userID, productID int64) (bool, error) {
	var purchased bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND oi.product_id = $2)`,
		userID, productID).Scan(&purchased)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return purchased, nil
}

func GetRatingStats(ctx context.Context, q Querier, productID int64) (models.RatingStats, error) {
	var count int
	var sum sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(rating) FROM reviews WHERE product_id = $1`,
		productID).Scan(&count, &sum)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.RatingStats{}, fmt.Errorf("rating stats: %w", err)
	}
	return models.NewRatingStats(count, sum.Int64), nil
}

// ListRatingStats returns the stats of every product that has at least one
// review, keyed by product id.
func ListRatingStats(ctx context.Context, q Querier) (map[int64]models.RatingStats, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT product_id, COUNT(*), SUM(rating) FROM reviews GROUP BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("list rating stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[int64]models.RatingStats)
	for rows.Next() {
		var productID int64
		var count int
		var sum int64
		if err := rows.Scan(&productID, &count, &sum); err != nil {
			return nil, fmt.Errorf("scan rating stats: %w", err)
		}
		stats[productID] = models.NewRatingStats(count, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
