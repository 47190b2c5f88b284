// Package api is the HTTP JSON interface of the storefront.
package api

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/shop"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service is the application layer the handlers call. *shop.Service
// implements it.
type Service interface {
	Register(ctx context.Context, username, password string) (*shop.AuthResult, error)
	Login(ctx context.Context, username, password string) (*shop.AuthResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, userID int64) (*models.User, error)

	ListBrands(ctx context.Context) ([]models.Brand, error)
	GetBrand(ctx context.Context, id int64) (*models.Brand, error)
	CreateBrand(ctx context.Context, name, description string) (*models.Brand, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, name string, parentID *int64, description string) (*models.Category, error)

	ListProducts(ctx context.Context, f catalog.Filter) ([]models.ProductWithRating, error)
	GetProduct(ctx context.Context, id int64) (*models.ProductWithRating, error)
	CreateProduct(ctx context.Context, p models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	Cart(ctx context.Context, userID int64) ([]models.CartItem, error)
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error)
	RemoveCartItem(ctx context.Context, userID, itemID int64) error

	ListReviews(ctx context.Context, productID int64) ([]models.Review, error)
	CreateReview(ctx context.Context, userID int64, username string, productID int64, rating int, comment string) (*models.Review, error)

	Checkout(ctx context.Context, userID int64, shippingAddress, contactPhone string) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
	ListOrdersPage(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
	ListAllOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*models.Order, error)
}

type Config struct {
	Service Service
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Per-IP limit on register and login.
	AuthRatePerMinute int
	AuthBurst         int

	// Forwarding headers are honoured only from these peers.
	TrustedProxies []netip.Prefix
}

type handler struct {
	svc Service
	log *zap.Logger
}

func NewRouter(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	perMinute := cfg.AuthRatePerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	burst := cfg.AuthBurst
	if burst <= 0 {
		burst = 10
	}

	h := &handler{svc: cfg.Service, log: log}
	limiter := newIPLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst, 10*time.Minute)

	r := chi.NewRouter()
	r.Use(realIP(cfg.TrustedProxies))
	r.Use(RequestID)
	r.Use(limitBody)
	r.Use(m.Middleware)
	r.Use(requestLogger(log))
	r.Use(recoverer(log))

	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		r.Group(func(r chi.Router) {
			r.Use(limiter.middleware)
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})

		r.Get("/brands", h.listBrands)
		r.Get("/brands/{id}", h.getBrand)
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{id}", h.getCategory)
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/products/{id}/reviews", h.listReviews)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/logout", h.logout)
			r.Get("/user", h.currentUser)

			r.Get("/cart", h.getCart)
			r.Post("/cart", h.addToCart)
			r.Patch("/cart/{id}", h.updateCartItem)
			r.Delete("/cart/{id}", h.removeCartItem)

			r.Post("/products/{id}/reviews", h.createReview)

			r.Get("/orders", h.listOrders)
			r.Post("/orders", h.createOrder)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post("/brands", h.createBrand)
				r.Post("/categories", h.createCategory)
				r.Post("/products", h.createProduct)
				r.Patch("/products/{id}", h.updateProduct)
				r.Delete("/products/{id}", h.deleteProduct)

				r.Get("/admin/orders", h.listAllOrders)
				r.Patch("/admin/orders/{id}", h.updateOrderStatus)
			})
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
