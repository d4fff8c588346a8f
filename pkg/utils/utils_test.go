package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hash(""))
}

func TestHashJSON(t *testing.T) {
	type key struct {
		Spot  float64
		Steps int
	}
	a, err := HashJSON(key{Spot: 100, Steps: 50})
	require.NoError(t, err)
	b, err := HashJSON(key{Spot: 100, Steps: 50})
	require.NoError(t, err)
	c, err := HashJSON(key{Spot: 100, Steps: 51})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	_, err = HashJSON(func() {})
	assert.Error(t, err)
}
