package flatex_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flatex "github.com/njchilds90/goflatex"
)

func TestSourceSnippet(t *testing.T) {
	_, err := flatex.Parse64("x + $")
	require.Error(t, err)

	snip := flatex.SourceSnippet(err, "x + $")
	assert.Equal(t, err.Error()+"\n\n  x + $\n      ^", snip.Error())
	assert.True(t, errors.Is(snip, flatex.ErrLex))
	var le *flatex.LexError
	require.True(t, errors.As(snip, &le))
	assert.Equal(t, 4, le.Pos)
}

func TestSourceSnippetCountsRunes(t *testing.T) {
	// Δ is two bytes; the caret is placed by character, not byte.
	src := "Δ + $"
	_, err := flatex.Parse64(src)
	require.Error(t, err)
	snip := flatex.SourceSnippet(err, src)
	assert.Equal(t, err.Error()+"\n\n  Δ + $\n      ^", snip.Error())
}

func TestSourceSnippetParseError(t *testing.T) {
	_, err := flatex.Parse64("x+")
	require.Error(t, err)
	snip := flatex.SourceSnippet(err, "x+")
	assert.Equal(t, err.Error()+"\n\n  x+\n   ^", snip.Error())
	assert.True(t, errors.Is(snip, flatex.ErrParse))
}

func TestSourceSnippetPassesOtherErrors(t *testing.T) {
	err := &flatex.DimensionError{Required: 2, Provided: 1}
	assert.Same(t, err, flatex.SourceSnippet(err, "x+y"))
}

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		text     string
	}{
		{&flatex.LexError{Pos: 3, Char: '#'}, flatex.ErrLex, `lex error at 3: unexpected character '#'`},
		{&flatex.ParseError{Pos: 0, Msg: "empty expression"}, flatex.ErrParse, "parse error at 0: empty expression"},
		{&flatex.ParseError{Pos: 1, Token: "+", Msg: "x"}, flatex.ErrParse, `parse error at 1 near "+": x`},
		{&flatex.DimensionError{Required: 2, Provided: 1}, flatex.ErrDimension, "dimension error: expression needs 2 values, got 1"},
		{&flatex.IndexError{Index: 3, NumVars: 2}, flatex.ErrIndex, "index error: variable index 3 out of range [0, 2)"},
		{&flatex.NameError{Name: "q"}, flatex.ErrIndex, `index error: unknown variable "q"`},
		{&flatex.NotDifferentiableError{Symbol: "floor"}, flatex.ErrNotDifferentiable, `operator "floor" is not differentiable`},
		{&flatex.UnparseError{Symbol: "/"}, flatex.ErrUnparse, `unparse error: operator "/" not in table`},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.text, tt.err.Error())
		})
	}
}
