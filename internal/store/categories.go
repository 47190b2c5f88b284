package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const categoryColumns = `id, name, parent_id, description`

func scanCategory(row rowScanner) (*models.Category, error) {
	category := &models.Category{}
	var parentID sql.NullInt64
	if err := row.Scan(&category.ID, &category.Name, &parentID, &category.Description); err != nil {
		return nil, err
	}
	if parentID.Valid {
		category.ParentID = &parentID.Int64
	}
	return category, nil
}

func ListCategories(ctx context.Context, q Querier) ([]models.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY COALESCE(parent_id, id), parent_id NULLS FIRST, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func GetCategory(ctx context.Context, q Querier, id int64) (*models.Category, error) {
	category, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	return category, nil
}

func CreateCategory(ctx context.Context, q Querier, name string, parentID *int64, description string) (*models.Category, error) {
	category, err := scanCategory(q.QueryRowContext(ctx,
		`INSERT INTO categories (name, parent_id, description) VALUES ($1, $2, $3)
		 RETURNING `+categoryColumns,
		name, parentID, description))
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "categories_parent_name_key"):
			return nil, database.ErrCategoryExists
		case database.IsForeignKeyViolation(err):
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

// EnsureCategory finds a category by (parent, name) or creates it.
func EnsureCategory(ctx context.Context, q Querier, name string, parentID *int64, description string) (*models.Category, error) {
	category, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 WHERE name = $1 AND parent_id IS NOT DISTINCT FROM $2`,
		name, parentID))
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}

	return CreateCategory(ctx, q, name, parentID, description)
}
