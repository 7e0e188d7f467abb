package flatex

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenKind tags a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokNumber
	TokIdent
	TokOperator
	TokLParen
	TokRParen
	TokComma
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokNumber:
		return "number"
	case TokIdent:
		return "identifier"
	case TokOperator:
		return "operator"
	case TokLParen:
		return "'('"
	case TokRParen:
		return "')'"
	case TokComma:
		return "','"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexeme. Pos is the byte offset of its first character.
// Operator tokens carry the canonical symbol, so an alias such as "**"
// arrives as "^".
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// symbolMatcher is the part of an OperatorTable the lexer needs.
type symbolMatcher interface {
	matchSymbol(src string) (string, int)
}

// Tokenize splits text using the symbols of the default float64 table.
// The result always ends with a TokEOF token.
func Tokenize(text string) ([]Token, error) {
	return tokenize(text, DefaultOperators[float64]())
}

type lexer struct {
	src     string
	pos     int
	symbols symbolMatcher
}

func tokenize(text string, symbols symbolMatcher) ([]Token, error) {
	l := &lexer{src: text, symbols: symbols}
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) peekRune(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+off:])
	return r
}

func (l *lexer) skipSpaces() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func (l *lexer) next() (Token, error) {
	l.skipSpaces()
	start := l.pos
	if start >= len(l.src) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}
	r, size := utf8.DecodeRuneInString(l.src[start:])

	switch {
	case isDigit(r) || (r == '.' && isDigit(l.peekRune(1))):
		l.lexNumber()
		return Token{Kind: TokNumber, Text: l.src[start:l.pos], Pos: start}, nil
	case isIdentStart(r):
		l.pos += size
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isIdentPart(r) {
				break
			}
			l.pos += size
		}
		return Token{Kind: TokIdent, Text: l.src[start:l.pos], Pos: start}, nil
	case r == '(':
		l.pos++
		return Token{Kind: TokLParen, Text: "(", Pos: start}, nil
	case r == ')':
		l.pos++
		return Token{Kind: TokRParen, Text: ")", Pos: start}, nil
	case r == ',':
		l.pos++
		return Token{Kind: TokComma, Text: ",", Pos: start}, nil
	}

	if sym, n := l.symbols.matchSymbol(l.src[start:]); n > 0 {
		l.pos += n
		return Token{Kind: TokOperator, Text: sym, Pos: start}, nil
	}
	return Token{}, &LexError{Pos: start, Char: r}
}

// lexNumber consumes digits, an optional fraction and an optional exponent.
// The exponent is only taken when at least one digit follows it.
func (l *lexer) lexNumber() {
	l.digits()
	if l.peekRune(0) == '.' {
		l.pos++
		l.digits()
	}
	if r := l.peekRune(0); r == 'e' || r == 'E' {
		off := 1
		if s := l.peekRune(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(l.peekRune(off)) {
			l.pos += off
			l.digits()
		}
	}
}

func (l *lexer) digits() {
	for l.pos < len(l.src) && isDigit(rune(l.src[l.pos])) {
		l.pos++
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
