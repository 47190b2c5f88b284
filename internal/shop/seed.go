package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

type seedCategory struct {
	name          string
	description   string
	subcategories []string
}

var defaultBrands = []struct{ name, description string }{
	{"Apple", "Consumer electronics and software"},
	{"Samsung", "Phones, TVs and home appliances"},
	{"Sony", "Audio, video and gaming"},
	{"Xiaomi", "Smartphones and smart home devices"},
	{"LG", "Home appliances and displays"},
}

var defaultCategories = []seedCategory{
	{"Electronics", "Phones, computers and accessories", []string{"Smartphones", "Laptops", "Headphones"}},
	{"Home Appliances", "Large and small appliances", []string{"Refrigerators", "Washing Machines"}},
	{"TV & Video", "Televisions and projectors", []string{"Televisions"}},
}

type SeedAdmin struct {
	Username string
	Password string
}

// Seed inserts the default brands and categories and, when admin is set,
// an admin account. Running it again changes nothing.
func (s *Service) Seed(ctx context.Context, admin SeedAdmin) error {
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, b := range defaultBrands {
			if _, err := store.EnsureBrand(ctx, tx, b.name, b.description); err != nil {
				return err
			}
		}

		for _, c := range defaultCategories {
			parent, err := store.EnsureCategory(ctx, tx, c.name, nil, c.description)
			if err != nil {
				return err
			}
			for _, sub := range c.subcategories {
				if _, err := store.EnsureCategory(ctx, tx, sub, &parent.ID, ""); err != nil {
					return err
				}
			}
		}

		if admin.Username == "" {
			return nil
		}
		return s.seedAdmin(ctx, tx, admin)
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	s.invalidate(ctx, brandsKey)
	s.invalidate(ctx, categoriesKey)
	return nil
}

func (s *Service) seedAdmin(ctx context.Context, tx *sql.Tx, admin SeedAdmin) error {
	_, err := store.GetUserByUsername(ctx, tx, admin.Username)
	if err == nil {
		s.log.Info("admin user already exists", zap.String("username", admin.Username))
		return nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return err
	}

	if len(admin.Password) < minPasswordLen {
		return fmt.Errorf("admin password must be at least %d characters", minPasswordLen)
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(ctx, tx, admin.Username, hash, true); err != nil {
		return err
	}

	s.log.Info("admin user created", zap.String("username", admin.Username))
	return nil
}
