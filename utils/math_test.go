package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPOW(t *testing.T) {
	for p := -10; p <= 10; p++ {
		assert.InDelta(t, math.Pow(1.7, float64(p)), POW(1.7, p), 1.e-12)
	}
	assert.Equal(t, 1., POW(0, 0))
	assert.Equal(t, 0.25, POW(-0.5, 2))
}

func TestRelEqual(t *testing.T) {
	assert.True(t, RelEqual(1.e-12, 0, 1.e-9))
	assert.False(t, RelEqual(1.e-8, 0, 1.e-9))
	assert.True(t, RelEqual(1.e6+1.e-4, 1.e6, 1.e-9))
	assert.False(t, RelEqual(1.e6+1.e-2, 1.e6, 1.e-9))
}

func TestIsNan(t *testing.T) {
	assert.False(t, IsNan([]float64{1, 2}))
	assert.True(t, IsNan([][]float64{{1}, {math.NaN()}}))
	assert.True(t, IsNan(float32(math.NaN())))
	assert.NotEmpty(t, GetMemUsage())
}
