package flatex

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrLex               = errors.New("flatex: lex error")
	ErrParse             = errors.New("flatex: parse error")
	ErrDimension         = errors.New("flatex: dimension error")
	ErrIndex             = errors.New("flatex: index error")
	ErrNotDifferentiable = errors.New("flatex: not differentiable")
	ErrUnparse           = errors.New("flatex: unparse error")
)

// LexError reports a character that starts no token. Pos is a byte offset.
type LexError struct {
	Pos  int
	Char rune
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d: unexpected character %q", e.Pos, e.Char)
}

func (e *LexError) Is(target error) bool { return target == ErrLex }

// ParseError reports malformed grammar. Token is the offending token text,
// empty at end of input.
type ParseError struct {
	Pos   int
	Token string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("parse error at %d near %q: %s", e.Pos, e.Token, e.Msg)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// DimensionError reports an input vector shorter than VariableCount.
type DimensionError struct {
	Required int
	Provided int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension error: expression needs %d values, got %d", e.Required, e.Provided)
}

func (e *DimensionError) Is(target error) bool { return target == ErrDimension }

// IndexError reports a variable index outside [0, NumVars).
type IndexError struct {
	Index   int
	NumVars int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error: variable index %d out of range [0, %d)", e.Index, e.NumVars)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndex }

// NameError reports an unknown variable name passed to DifferentiateByName.
// It also matches ErrIndex.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("index error: unknown variable %q", e.Name)
}

func (e *NameError) Is(target error) bool { return target == ErrIndex }

// NotDifferentiableError names an operator without a derivative rule.
type NotDifferentiableError struct {
	Symbol string
}

func (e *NotDifferentiableError) Error() string {
	return fmt.Sprintf("operator %q is not differentiable", e.Symbol)
}

func (e *NotDifferentiableError) Is(target error) bool { return target == ErrNotDifferentiable }

// UnparseError names a symbol missing from the table used for rendering.
type UnparseError struct {
	Symbol string
}

func (e *UnparseError) Error() string {
	return fmt.Sprintf("unparse error: operator %q not in table", e.Symbol)
}

func (e *UnparseError) Is(target error) bool { return target == ErrUnparse }

// SourceSnippet decorates lex and parse errors with the source line and a
// caret under the offending column. Other errors come back unchanged.
func SourceSnippet(err error, src string) error {
	var pos int
	var le *LexError
	var pe *ParseError
	switch {
	case errors.As(err, &le):
		pos = le.Pos
	case errors.As(err, &pe):
		pos = pe.Pos
	default:
		return err
	}
	if pos > len(src) {
		pos = len(src)
	}
	col := utf8.RuneCountInString(src[:pos])
	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteString("\n\n  ")
	b.WriteString(src)
	b.WriteString("\n  ")
	b.WriteString(strings.Repeat(" ", col))
	b.WriteString("^")
	return &snippetError{err: err, msg: b.String()}
}

type snippetError struct {
	err error
	msg string
}

func (e *snippetError) Error() string { return e.msg }
func (e *snippetError) Unwrap() error { return e.err }
