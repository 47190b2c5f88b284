package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("lost").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusShipped, true},
		{OrderStatusPending, OrderStatus("lost"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestUserPasswordHashNotSerialized(t *testing.T) {
	data, err := json.Marshal(User{ID: 1, Username: "alice", PasswordHash: "scrypt$secret", IsAdmin: true})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "scrypt")
	assert.Contains(t, string(data), `"isAdmin":true`)
}

func TestProductPatchIsEmpty(t *testing.T) {
	assert.True(t, ProductPatch{}.IsEmpty())

	name := "Speaker"
	assert.False(t, ProductPatch{Name: &name}.IsEmpty())
}

func TestNewRatingStats(t *testing.T) {
	empty := NewRatingStats(0, 0)
	assert.Equal(t, 0, empty.Count)
	assert.Nil(t, empty.Average)

	stats := NewRatingStats(3, 13)
	assert.Equal(t, 3, stats.Count)
	if assert.NotNil(t, stats.Average) {
		assert.Equal(t, 4.3, *stats.Average)
	}

	stats = NewRatingStats(2, 9)
	assert.Equal(t, 4.5, *stats.Average)
}
