package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCartRepository(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetCart", func(t *testing.T) {
		cart := testCart()
		require.NoError(t, repo.SetCart(ctx, "user:1", cart))

		got, err := repo.GetCart(ctx, "user:1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cart, got)
	})

	t.Run("GetNonExistentCart", func(t *testing.T) {
		got, err := repo.GetCart(ctx, "user:404")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearCart", func(t *testing.T) {
		repo.SetCart(ctx, "session:xyz", testCart())
		require.NoError(t, repo.ClearCart(ctx, "session:xyz"))

		got, _ := repo.GetCart(ctx, "session:xyz")
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewMemoryCartRepository(time.Millisecond)
		require.NoError(t, short.SetCart(ctx, "user:2", testCart()))

		time.Sleep(5 * time.Millisecond)

		got, err := short.GetCart(ctx, "user:2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
