// Package shop holds the storefront's business rules. It validates input,
// checks ownership, and translates store errors into apperr kinds.
package shop

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/database"
	"go.uber.org/zap"
)

// DB is what the service needs from the pool: plain queries and the
// ability to open transactions. *sql.DB satisfies it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// CheckoutObserver receives the outcome of every checkout attempt.
type CheckoutObserver interface {
	ObserveCheckout(outcome string)
}

type Policy struct {
	StrictTransitions bool
	RequirePurchase   bool
}

type Service struct {
	db          DB
	reference   *cache.Loader
	revocations *cache.Revocations
	tokens      *auth.Issuer
	policy      Policy
	checkouts   CheckoutObserver
	log         *zap.Logger
	now         func() time.Time
}

type Options struct {
	DB          DB
	Reference   *cache.Loader
	Revocations *cache.Revocations
	Tokens      *auth.Issuer
	Policy      Policy
	Checkouts   CheckoutObserver
	Logger      *zap.Logger
	Now         func() time.Time
}

func New(opts Options) *Service {
	s := &Service{
		db:          opts.DB,
		reference:   opts.Reference,
		revocations: opts.Revocations,
		tokens:      opts.Tokens,
		policy:      opts.Policy,
		checkouts:   opts.Checkouts,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.checkouts == nil {
		s.checkouts = nopObserver{}
	}
	return s
}

type nopObserver struct{}

func (nopObserver) ObserveCheckout(string) {}

var notFound = []error{
	database.ErrUserNotFound,
	database.ErrBrandNotFound,
	database.ErrCategoryNotFound,
	database.ErrProductNotFound,
	database.ErrCartItemNotFound,
	database.ErrOrderNotFound,
}

var conflicts = []error{
	database.ErrUsernameTaken,
	database.ErrBrandExists,
	database.ErrCategoryExists,
	database.ErrDuplicateSKU,
}

// translate maps store errors onto apperr kinds. Anything unrecognised is
// internal.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			return apperr.NotFound(target)
		}
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return apperr.Conflict(target)
		}
	}

	switch {
	case errors.Is(err, database.ErrEmptyCart):
		return apperr.New(apperr.KindEmptyCart, database.ErrEmptyCart.Error(), err)
	case errors.Is(err, database.ErrInvalidReference):
		return apperr.New(apperr.KindValidation, database.ErrInvalidReference.Error(), err)
	case database.IsCheckViolation(err):
		return apperr.New(apperr.KindValidation, "value out of range", err)
	}

	return apperr.Internal(err)
}
