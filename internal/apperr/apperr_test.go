package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindConflict:        http.StatusBadRequest,
		KindEmptyCart:       http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindInternal:        http.StatusInternalServerError,
	}

	for kind, want := range tests {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("product not found")
	err := fmt.Errorf("load cart: %w", NotFound(cause))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "product not found", PublicMessage(err))
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
	assert.Contains(t, err.Error(), "connection refused")
}
