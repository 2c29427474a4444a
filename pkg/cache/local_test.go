package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Phrase string `json:"phrase"`
	Views  []int  `json:"views"`
}

func TestLocalSetGet(t *testing.T) {
	c := NewLocal(100, time.Minute)
	ctx := context.Background()

	in := payload{Phrase: "a", Views: []int{5, 15, 10}}
	require.NoError(t, c.SetJSON(ctx, "hv:1:2025-01-01", in, 0))
	in.Views[0] = 99

	var out payload
	require.NoError(t, c.GetJSON(ctx, "hv:1:2025-01-01", &out))
	assert.Equal(t, payload{Phrase: "a", Views: []int{5, 15, 10}}, out)

	require.ErrorIs(t, c.GetJSON(ctx, "hv:2:2025-01-01", &out), ErrCacheMiss)
}

func TestLocalExpiry(t *testing.T) {
	c := NewLocal(100, 50*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, "k", 1, 0))

	assert.Eventually(t, func() bool {
		var v int
		return c.GetJSON(ctx, "k", &v) != nil
	}, time.Second, 10*time.Millisecond)
}

func TestLocalEvictsOldest(t *testing.T) {
	c := NewLocal(10, time.Minute)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		require.NoError(t, c.SetJSON(ctx, fmt.Sprintf("k%d", i), i, 0))
	}
	assert.Equal(t, 10, c.Len())

	var v int
	assert.ErrorIs(t, c.GetJSON(ctx, "k0", &v), ErrCacheMiss)
	require.NoError(t, c.GetJSON(ctx, "k14", &v))
	assert.Equal(t, 14, v)
}

func TestLocalDeletePrefix(t *testing.T) {
	c := NewLocal(100, time.Minute)
	ctx := context.Background()
	for _, k := range []string{"repos:list:5", "repos:positions:2025-01-01", "hv:1:2025-01-01"} {
		require.NoError(t, c.SetJSON(ctx, k, k, 0))
	}

	n, err := c.DeletePrefix(ctx, "repos:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
}

func TestLocalDecodeError(t *testing.T) {
	c := NewLocal(100, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, "k", "text", 0))

	var v int
	err := c.GetJSON(ctx, "k", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
