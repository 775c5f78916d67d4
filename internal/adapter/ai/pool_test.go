package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

func TestNewCredentialPool_DedupAndOrder(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{" k1 ", "", "k2", "k1", "k3", "  "})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Len())

	var got []string
	for c, ok := pool.Next(-1); ok; c, ok = pool.Next(c.Index()) {
		got = append(got, c.Secret())
	}
	assert.Equal(t, []string{"k1", "k2", "k3"}, got)
	assert.Equal(t, "k1", pool.First().Secret())
}

func TestNewCredentialPool_Empty(t *testing.T) {
	t.Parallel()

	for _, in := range [][]string{nil, {}, {"", "   "}} {
		pool, err := NewCredentialPool(in)
		assert.Nil(t, pool)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNoCredentials))
		assert.Equal(t, domain.KindNoCredentials, domain.KindOf(err))
	}
}

func TestCredentialPool_NextBounds(t *testing.T) {
	t.Parallel()

	pool, err := NewCredentialPool([]string{"only"})
	require.NoError(t, err)

	_, ok := pool.Next(0)
	assert.False(t, ok)
	_, ok = pool.Next(-5)
	assert.False(t, ok)
	c, ok := pool.Next(-1)
	assert.True(t, ok)
	assert.Equal(t, 0, c.Index())
	assert.NotContains(t, fmt.Sprintf("%v", c), "only")
}
