package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestServeMigratesByDefault(t *testing.T) {
	migrate := serveCmd.Flags().Lookup("migrate")
	seed := serveCmd.Flags().Lookup("seed")

	assert.Equal(t, "true", seed.DefValue)
	assert.Equal(t, "true", migrate.DefValue)
}

func TestSeedErrorMentionsMigrate(t *testing.T) {
	missing := fmt.Errorf("ensure brand: %w", &pq.Error{Code: "42P01", Message: `relation "brands" does not exist`})

	assert.Contains(t, seedError(missing).Error(), "storefront migrate up")
	assert.ErrorIs(t, seedError(missing), missing)
	assert.NotContains(t, seedError(errors.New("connection refused")).Error(), "migrate")
}
