//go:build integration

package shop

import (
	"context"
	"testing"
	"time"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/testdb"
	"github.com/shopspring/decimal"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db := testdb.StartPostgres(t)
	backend := cache.NewMemory(time.Now)

	svc := New(Options{
		DB:          db,
		Reference:   cache.NewLoader(backend, time.Minute),
		Revocations: cache.NewRevocations(backend, time.Now),
		Tokens:      auth.NewIssuer("integration-secret", time.Hour, time.Now),
		Policy:      Policy{RequirePurchase: true},
	})

	if err := svc.Seed(context.Background(), SeedAdmin{Username: "admin", Password: "admin-pass"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return svc
}

// refs returns the ids of the seeded Smartphones category and the named
// brand.
func refs(t *testing.T, svc *Service, brand string) (categoryID, brandID int64) {
	t.Helper()
	ctx := context.Background()

	categories, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("List categories: %v", err)
	}
	for _, c := range categories {
		if c.Name == "Smartphones" {
			categoryID = c.ID
		}
	}

	brands, err := svc.ListBrands(ctx)
	if err != nil {
		t.Fatalf("List brands: %v", err)
	}
	for _, b := range brands {
		if b.Name == brand {
			brandID = b.ID
		}
	}

	if categoryID == 0 || brandID == 0 {
		t.Fatalf("Seed data missing: category=%d brand=%d", categoryID, brandID)
	}
	return categoryID, brandID
}

func mustProduct(t *testing.T, svc *Service, name, brand string, price int64) *models.Product {
	t.Helper()
	categoryID, brandID := refs(t, svc, brand)

	product, err := svc.CreateProduct(context.Background(), models.Product{
		Name:       name,
		Price:      decimal.NewFromInt(price),
		CategoryID: categoryID,
		BrandID:    brandID,
		Stock:      10,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func mustRegister(t *testing.T, svc *Service, username string) *models.User {
	t.Helper()
	result, err := svc.Register(context.Background(), username, "password1")
	if err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	return result.User
}

func TestSeed_IsIdempotent(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if err := svc.Seed(ctx, SeedAdmin{Username: "admin", Password: "admin-pass"}); err != nil {
		t.Fatalf("Second seed: %v", err)
	}

	brands, err := svc.ListBrands(ctx)
	if err != nil {
		t.Fatalf("List brands: %v", err)
	}
	if len(brands) != len(defaultBrands) {
		t.Errorf("Expected %d brands, got %d", len(defaultBrands), len(brands))
	}

	result, err := svc.Login(ctx, "admin", "admin-pass")
	if err != nil {
		t.Fatalf("Admin login: %v", err)
	}
	if !result.User.IsAdmin {
		t.Error("Seeded admin should be an admin")
	}
}

func TestRegister_DuplicateUsernameLeavesUserUnchanged(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	original := mustRegister(t, svc, "alice")

	_, err := svc.Register(ctx, "alice", "another-pass")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("Expected conflict, got: %v", err)
	}

	stored, err := svc.CurrentUser(ctx, original.ID)
	if err != nil {
		t.Fatalf("Current user: %v", err)
	}
	if stored.Username != original.Username || stored.IsAdmin != original.IsAdmin ||
		!stored.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("User changed: before %+v, after %+v", original, stored)
	}

	if _, err := svc.Login(ctx, "alice", "password1"); err != nil {
		t.Errorf("Original password should still work: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "another-pass"); apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Errorf("Rejected password should not log in, got: %v", err)
	}
}

func TestCheckout_TotalsAndClearsCart(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "buyer")
	phone := mustProduct(t, svc, "Phone", "Apple", 1000)
	phoneCase := mustProduct(t, svc, "Case", "Apple", 500)

	if _, err := svc.AddToCart(ctx, user.ID, phone.ID, 2); err != nil {
		t.Fatalf("Add phone: %v", err)
	}
	if _, err := svc.AddToCart(ctx, user.ID, phoneCase.ID, 1); err != nil {
		t.Fatalf("Add case: %v", err)
	}

	order, err := svc.Checkout(ctx, user.ID, "1 Main St", "+15550100123")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if !order.TotalAmount.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("Expected total 2500, got %s", order.TotalAmount)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(order.Items))
	}

	cart, err := svc.Cart(ctx, user.ID)
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if len(cart) != 0 {
		t.Errorf("Cart should be empty after checkout, has %d items", len(cart))
	}

	// Price changes after the order do not touch the recorded price.
	newPrice := decimal.NewFromInt(1200)
	if _, err := svc.UpdateProduct(ctx, phone.ID, models.ProductPatch{Price: &newPrice}); err != nil {
		t.Fatalf("Update price: %v", err)
	}
	orders, err := svc.ListOrders(ctx, user.ID)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if !orders[0].Items[0].PriceAtTime.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Recorded price changed to %s", orders[0].Items[0].PriceAtTime)
	}

	_, err = svc.Checkout(ctx, user.ID, "1 Main St", "+15550100123")
	if apperr.KindOf(err) != apperr.KindEmptyCart {
		t.Errorf("Expected empty cart, got: %v", err)
	}
}

func TestUpdateProduct_PartialUpdate(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	product := mustProduct(t, svc, "Phone", "Samsung", 800)
	time.Sleep(10 * time.Millisecond)

	stock := 3
	updated, err := svc.UpdateProduct(ctx, product.ID, models.ProductPatch{Stock: &stock})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}

	if updated.Stock != 3 {
		t.Errorf("Expected stock 3, got %d", updated.Stock)
	}
	if updated.Name != "Phone" || !updated.Price.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(product.UpdatedAt) {
		t.Error("updated_at should advance")
	}
}

func TestCreateReview_RequiresPurchase(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "reviewer")
	product := mustProduct(t, svc, "Headphones", "Sony", 200)

	_, err := svc.CreateReview(ctx, user.ID, user.Username, product.ID, 5, "great")
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("Expected forbidden before purchase, got: %v", err)
	}

	if _, err := svc.AddToCart(ctx, user.ID, product.ID, 1); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
	if _, err := svc.Checkout(ctx, user.ID, "2 Side St", "+15550100123"); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	review, err := svc.CreateReview(ctx, user.ID, user.Username, product.ID, 4, "good")
	if err != nil {
		t.Fatalf("Create review after purchase: %v", err)
	}
	if review.Username != "reviewer" {
		t.Errorf("Expected username reviewer, got %s", review.Username)
	}

	got, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if got.Count != 1 || got.Average == nil || *got.Average != 4 {
		t.Errorf("Unexpected rating stats: %+v", got.RatingStats)
	}
}

func TestListProducts_FiltersIntersect(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	mustProduct(t, svc, "Cheap Apple", "Apple", 100)
	pricey := mustProduct(t, svc, "Pricey Apple", "Apple", 1500)
	mustProduct(t, svc, "Pricey Samsung", "Samsung", 1500)

	_, appleID := refs(t, svc, "Apple")
	minPrice := decimal.NewFromInt(1000)

	all, err := svc.ListProducts(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	byBrand, err := svc.ListProducts(ctx, catalog.Filter{BrandID: &appleID})
	if err != nil {
		t.Fatalf("List by brand: %v", err)
	}
	both, err := svc.ListProducts(ctx, catalog.Filter{BrandID: &appleID, MinPrice: &minPrice})
	if err != nil {
		t.Fatalf("List by brand and price: %v", err)
	}

	if len(all) != 3 || len(byBrand) != 2 {
		t.Errorf("Expected 3 and 2 products, got %d and %d", len(all), len(byBrand))
	}
	if len(both) != 1 || both[0].ID != pricey.ID {
		t.Errorf("Expected only %q, got %+v", pricey.Name, both)
	}
}

func TestUpdateOrderStatus_AdminShipsOrder(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user := mustRegister(t, svc, "shipper")
	product := mustProduct(t, svc, "TV", "LG", 900)
	if _, err := svc.AddToCart(ctx, user.ID, product.ID, 1); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
	order, err := svc.Checkout(ctx, user.ID, "3 High St", "+15550100123")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	shipped, err := svc.UpdateOrderStatus(ctx, order.ID, "shipped")
	if err != nil {
		t.Fatalf("Update status: %v", err)
	}
	if shipped.Status != models.OrderStatusShipped {
		t.Errorf("Expected shipped, got %s", shipped.Status)
	}
	if !shipped.UpdatedAt.After(order.UpdatedAt) {
		t.Error("updated_at should advance")
	}

	_, err = svc.UpdateOrderStatus(ctx, 999999, "shipped")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Expected not found, got: %v", err)
	}
}
