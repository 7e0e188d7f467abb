package flatex_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flatex "github.com/njchilds90/goflatex"
)

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Float64bits(a) == math.Float64bits(b)
}

func TestUnparse(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2*x+1", "2*x + 1"},
		{"(x+y)*z", "(x + y)*z"},
		{"x-(y-z)", "x - (y - z)"},
		{"(x-y)-z", "x - y - z"},
		{"x/(y*z)", "x/(y*z)"},
		{"x*y/z", "x*y/z"},
		{"2^3^x", "2^3^x"},
		{"(x^y)^z", "(x^y)^z"},
		{"-x^2", "-x^2"},
		{"-(x^2)", "-(x^2)"},
		{"x*-2", "x*(-2)"},
		{"x - -2", "x - (-2)"},
		{"-2*x", "(-2)*x"},
		{"sin(x)^2", "sin(x)^2"},
		{"atan2(y,x)", "atan2(y, x)"},
		{"round 2.7 + x", "3 + x"},
		{"0.1+x", "0.1 + x"},
		{"1/0", "(1/0)"},
		{"0/0", "(0/0)"},
		{"x + -1/0", "x + (-1/0)"},
		{"1e300*1e300 + x", "(1/0) + x"},
		{"x**2", "x^2"},
		{"PI*x", "3.141592653589793*x"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := flatex.Parse64(tt.expr)
			require.NoError(t, err)
			got, err := e.Unparse()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestUnparseRoundTrip parses the rendered text again and requires the same
// values bit for bit, for the expression and its first partials.
func TestUnparseRoundTrip(t *testing.T) {
	exprs := []string{
		"2*x + 1",
		"x - (y - x) - -x",
		"x^y^2 + (x^y)^2",
		"-x^2 - -(x^2)",
		"sin(x)*cos(y)/(x*y)",
		"atan2(x - y, -x) + hypot(x, 2)",
		"x % 3 - floor(y)",
		"exp(-x)*ln(y) + sqrt(x^2 + y^2)",
		"0.1*x + 1e-7*y - 1e21",
		"x/(y/(x/y))",
		"1/(x - x) + y",
		"max(x, -3) * min(-y, 0.5)",
		"tanh(x)^-1",
	}
	points := [][]float64{{0.5, 1.5}, {-2, 3}, {0, 0}, {1e10, -1e-10}}
	for _, src := range exprs {
		t.Run(src, func(t *testing.T) {
			e, err := flatex.Parse64(src)
			require.NoError(t, err)

			forms := []*flatex.Expression[float64]{e}
			for i := 0; i < e.VariableCount(); i++ {
				if d, err := e.Differentiate(i); err == nil {
					forms = append(forms, d)
				}
			}
			for _, f := range forms {
				text, err := f.Unparse()
				require.NoError(t, err)
				back, err := flatex.Parse64(text)
				require.NoError(t, err, text)

				again, err := back.Unparse()
				require.NoError(t, err)
				assert.Equal(t, text, again, "unparse is not idempotent")

				for _, x := range points {
					want, err := f.Evaluate(x)
					require.NoError(t, err)
					// Variable order may differ once a partial drops a variable.
					bx := make([]float64, back.VariableCount())
					for j, name := range back.Variables() {
						for k, n := range f.Variables() {
							if n == name {
								bx[j] = x[k]
							}
						}
					}
					got, err := back.Evaluate(bx)
					require.NoError(t, err)
					assert.True(t, sameFloat(want, got), "%s at %v: %v != %v", text, x, want, got)
				}
			}
		})
	}
}

func TestUnparseDerivativeRenumbersVariables(t *testing.T) {
	e, err := flatex.Parse64("x/y/z")
	require.NoError(t, err)
	d, err := e.Differentiate(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, d.Variables())

	text, err := d.Unparse()
	require.NoError(t, err)
	assert.Equal(t, "1/y/z", text)

	back, err := flatex.Parse64(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, back.Variables())

	want, err := d.Evaluate([]float64{7, 2, 4})
	require.NoError(t, err)
	got, err := back.Evaluate([]float64{2, 4})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 0.125, got)
}

func TestUnparseFloat32(t *testing.T) {
	e, err := flatex.Parse32("0.1 + x")
	require.NoError(t, err)
	assert.Equal(t, "0.1 + x", e.String())

	c, err := flatex.Parse32("0.1 + 0.2")
	require.NoError(t, err)
	assert.Equal(t, "0.3", c.String())

	d, err := flatex.Parse64("0.1 + 0.2")
	require.NoError(t, err)
	assert.Equal(t, "0.30000000000000004", d.String())
}

func TestUnparseWith(t *testing.T) {
	// A table where + binds tighter than *.
	inverted, err := flatex.NewOperatorTable([]flatex.Operator[float64]{
		{Symbol: "+", Arity: flatex.Binary, Prec: 2, Binary: func(a, b float64) float64 { return a + b }},
		{Symbol: "*", Arity: flatex.Binary, Prec: 1, Binary: func(a, b float64) float64 { return a * b }},
	})
	require.NoError(t, err)

	e, err := flatex.Parse64("(x+y)*z")
	require.NoError(t, err)
	text, err := e.UnparseWith(inverted)
	require.NoError(t, err)
	assert.Equal(t, "x + y*z", text)

	back, err := flatex.ParseWith(inverted, text)
	require.NoError(t, err)
	v, err := back.Evaluate([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	f, err := flatex.Parse64("x/y")
	require.NoError(t, err)
	_, err = f.UnparseWith(inverted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatex.ErrUnparse))
	var ue *flatex.UnparseError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "/", ue.Symbol)
}

func TestLaTeX(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"x/y", `\frac{x}{y}`},
		{"(x+1)/2", `\frac{x + 1}{2}`},
		{"x^2", `{x}^{2}`},
		{"x^(y+1)", `{x}^{y + 1}`},
		{"sqrt(x)", `\sqrt{x}`},
		{"cbrt(x)", `\sqrt[3]{x}`},
		{"abs(x)", `\left|x\right|`},
		{"sin(x)*y", `\sin\left(x\right) \cdot y`},
		{"(x+y)*z", `\left(x + y\right) \cdot z`},
		{"x % y", `x \bmod y`},
		{"alpha_1*x", `\mathit{alpha\_1} \cdot x`},
		{"1/0 + x", `\infty + x`},
		{"atan2(y, x)", `\operatorname{atan2}\left(y, x\right)`},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := flatex.Parse64(tt.expr)
			require.NoError(t, err)
			got, err := e.LaTeX()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
