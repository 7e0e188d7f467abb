package flatex

import (
	"math"
	"strconv"
	"unsafe"
)

// Float is the set of element types an Expression can be instantiated over.
// Arithmetic runs in T; transcendental functions go through package math
// and are rounded back to T.
type Float interface {
	float32 | float64
}

// bits returns the width of T in bits (32 or 64).
func bits[T Float]() int {
	var z T
	return int(unsafe.Sizeof(z)) * 8
}

// parseLiteral converts numeric literal text to T, rounding once at the
// target width.
func parseLiteral[T Float](text string) (T, error) {
	v, err := strconv.ParseFloat(text, bits[T]())
	if err != nil {
		// Overflowing literals still parse to ±Inf; keep IEEE behaviour.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return T(v), nil
		}
		return 0, err
	}
	return T(v), nil
}

// formatLiteral renders v with the shortest text that parses back to the
// same T.
func formatLiteral[T Float](v T) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "(0/0)"
	case math.IsInf(f, 1):
		return "(1/0)"
	case math.IsInf(f, -1):
		return "(-1/0)"
	}
	return strconv.FormatFloat(f, 'g', -1, bits[T]())
}

// lift turns a float64 function into one over T.
func lift[T Float](f func(float64) float64) func(T) T {
	return func(x T) T { return T(f(float64(x))) }
}

func lift2[T Float](f func(float64, float64) float64) func(T, T) T {
	return func(x, y T) T { return T(f(float64(x), float64(y))) }
}

func signum(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return x
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func fract(x float64) float64 {
	_, f := math.Modf(x)
	return f
}
