package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c, err := New[[]float32](100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", []float32{1, 2, 3})

	// Admission is asynchronous in the backing store.
	assert.Eventually(t, func() bool {
		v, ok := c.Get("k")
		return ok && len(v) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, err := New[string](100, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", "v")
	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 20*time.Millisecond)
}

func TestNopCache(t *testing.T) {
	c := NewNop[int]()
	c.Set("k", 42)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
