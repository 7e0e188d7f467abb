package flatex_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flatex "github.com/njchilds90/goflatex"
)

// ============================================================
// Precedence and associativity
// ============================================================

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		expr string
		x    []float64
		want float64
	}{
		{"2+3*4", nil, 14},
		{"(2+3)*4", nil, 20},
		{"10-4-3", nil, 3},
		{"2^3^2", nil, 512},
		{"2**3**2", nil, 512},
		{"(2^3)^2", nil, 64},
		{"24/4/3", nil, 2},
		{"7 % 4 * 2", nil, 6},
		{"-x^2", []float64{3}, 9},
		{"-(x^2)", []float64{3}, -9},
		{"2*-x", []float64{3}, -6},
		{"2^-x", []float64{1}, 0.5},
		{"--x", []float64{4}, 4},
		{"+x", []float64{4}, 4},
		{"x - -1", []float64{4}, 5},
		{"sin x^2", []float64{0}, 0},
		{"round 2.7 + x", []float64{1}, 4},
		{"atan2(1, 1)*4", nil, 3.141592653589793},
		{"max(x, 2) - min(x, 2)", []float64{5}, 3},
		{"PI - π", nil, 0},
		{"TAU/2 - PI", nil, 0},
		{"ln(E)", nil, 1},
		{"hypot(3, 4)", nil, 5},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := flatex.Parse64(tt.expr)
			require.NoError(t, err)
			got, err := e.Evaluate(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseVariableOrder(t *testing.T) {
	e, err := flatex.Parse64("z*x + y - x/z")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y"}, e.Variables())
	assert.Equal(t, 3, e.VariableCount())

	v, err := e.Evaluate([]float64{2, 4, 1})
	require.NoError(t, err)
	assert.Equal(t, 2.0*4+1-4.0/2, v)
}

func TestParseUnicodeVariable(t *testing.T) {
	e, err := flatex.Parse64("Δ*2 + Δ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Δ"}, e.Variables())
	v, err := e.Evaluate([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, 15.0, v)
}

// ============================================================
// Errors
// ============================================================

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr    string
		pos     int
		token   string
		message string
	}{
		{"x+", 1, "+", "missing its right operand"},
		{"", 0, "", "empty expression"},
		{"   ", 3, "", "empty expression"},
		{"(x", 0, "(", "missing closing parenthesis"},
		{"x)", 1, ")", "unmatched closing parenthesis"},
		{"x y", 2, "y", "unexpected identifier"},
		{"*x", 0, "*", "missing its left operand"},
		{"sin", 0, "sin", "without an argument"},
		{"sin * 1", 0, "sin", "without an argument"},
		{"sin(x, y)", 0, "sin", "expects 1 argument(s), got 2"},
		{"atan2(x)", 0, "atan2", "expects 2 argument(s), got 1"},
		{"atan2 x", 0, "atan2", "expects 2 arguments in parentheses"},
		{"x, y", 1, ",", "unexpected ','"},
		{"()", 1, ")", "expected an operand"},
		{"(x y)", 3, "y", "expected ')'"},
		{"x sin y", 2, "sin", "unexpected identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := flatex.Parse64(tt.expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, flatex.ErrParse), err.Error())

			var pe *flatex.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.pos, pe.Pos)
			assert.Equal(t, tt.token, pe.Token)
			assert.Contains(t, pe.Msg, tt.message)
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	deep := strings.Repeat("(", 5000) + "x" + strings.Repeat(")", 5000)
	_, err := flatex.Parse64(deep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")

	_, err = flatex.Parse64(strings.Repeat("-", 5000) + "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, flatex.ErrParse))

	ok := strings.Repeat("(", 200) + "x" + strings.Repeat(")", 200)
	e, err := flatex.Parse64(ok)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Len())
}

func TestParseLexErrorPropagates(t *testing.T) {
	_, err := flatex.Parse32("x # 2")
	assert.True(t, errors.Is(err, flatex.ErrLex))
	assert.False(t, errors.Is(err, flatex.ErrParse))
}
