package flatex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBits(t *testing.T) {
	assert.Equal(t, 32, bits[float32]())
	assert.Equal(t, 64, bits[float64]())
}

func TestParseLiteral(t *testing.T) {
	v, err := parseLiteral[float64]("1e400")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))

	f, err := parseLiteral[float32]("1e39")
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(f), 1))

	f, err = parseLiteral[float32]("0.1")
	require.NoError(t, err)
	assert.Equal(t, float32(0.1), f)

	_, err = parseLiteral[float64]("1..2")
	assert.Error(t, err)
}

func TestFormatLiteral(t *testing.T) {
	assert.Equal(t, "0.1", formatLiteral(float32(0.1)))
	assert.Equal(t, "0.1", formatLiteral(0.1))
	assert.Equal(t, "1e+21", formatLiteral(1e21))
	assert.Equal(t, "-0", formatLiteral(math.Copysign(0, -1)))
	assert.Equal(t, "(1/0)", formatLiteral(math.Inf(1)))
	assert.Equal(t, "(-1/0)", formatLiteral(float32(math.Inf(-1))))
	assert.Equal(t, "(0/0)", formatLiteral(math.NaN()))
}

func TestSignumAndFract(t *testing.T) {
	assert.Equal(t, -1.0, signum(-3))
	assert.Equal(t, 0.0, signum(0))
	assert.True(t, math.IsNaN(signum(math.NaN())))
	assert.Equal(t, -0.25, fract(-2.25))
}
